package registry

import (
	"context"

	"github.com/dalemusser/mdregistry/internal/app/policy/workgrouppolicy"
	"github.com/dalemusser/mdregistry/internal/app/system/paging"
	"github.com/dalemusser/mdregistry/internal/app/system/sortopts"
	"github.com/dalemusser/mdregistry/internal/domain/models"
	"github.com/dalemusser/mdregistry/internal/domain/roles"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ItemPage is one page of a workgroup's items.
type ItemPage struct {
	Workgroup models.Workgroup
	Sort      sortopts.Option
	Items     []models.MetadataItem
	Page      paging.Page
}

// Overview is the summary shown on a workgroup's home page.
type Overview struct {
	Workgroup models.Workgroup
	Roles     roles.Set
	Counts    []models.StatusCount
	Recent    []models.MetadataItem
}

// ListItems returns page (1-based) of the workgroup's items in sortKey order.
// Unknown sort keys fall back to newest-modified first; page < 1 is page 1;
// pageSize < 1 uses the configured default.
func (s *Service) ListItems(ctx context.Context, actor workgrouppolicy.Actor, workgroupID primitive.ObjectID, sortKey string, page, pageSize int) (ItemPage, error) {
	wg, _, err := s.View(ctx, actor, workgroupID)
	if err != nil {
		return ItemPage{}, err
	}

	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = s.defaultSize
	}
	order := sortopts.Resolve(sortKey)

	total, err := s.items.CountByWorkgroup(ctx, wg.ID)
	if err != nil {
		return ItemPage{}, err
	}
	items, err := s.items.ListByWorkgroup(ctx, wg.ID, order, paging.Offset(page, pageSize), int64(pageSize))
	if err != nil {
		return ItemPage{}, err
	}
	if items == nil {
		items = []models.MetadataItem{}
	}

	return ItemPage{
		Workgroup: wg,
		Sort:      order,
		Items:     items,
		Page:      paging.NewPage(page, pageSize, total),
	}, nil
}

// Overview returns status counts (cached briefly) and the most recently
// modified items.
func (s *Service) Overview(ctx context.Context, actor workgrouppolicy.Actor, workgroupID primitive.ObjectID) (Overview, error) {
	wg, held, err := s.View(ctx, actor, workgroupID)
	if err != nil {
		return Overview{}, err
	}

	counts, err := s.counts.GetOrLoad(ctx, wg.ID.Hex(), func(ctx context.Context) ([]models.StatusCount, error) {
		return s.items.StatusCounts(ctx, wg.ID)
	})
	if err != nil {
		return Overview{}, err
	}
	recent, err := s.items.ListByWorkgroup(ctx, wg.ID, sortopts.Resolve(sortopts.ModDesc), 0, paging.RecentLimit)
	if err != nil {
		return Overview{}, err
	}

	return Overview{Workgroup: wg, Roles: held, Counts: counts, Recent: recent}, nil
}

// AssignItem moves an item into the workgroup. The actor must be able to
// submit there, and also in the item's current workgroup when it has one.
// Archived workgroups refuse new items.
func (s *Service) AssignItem(ctx context.Context, actor workgrouppolicy.Actor, workgroupID, itemID primitive.ObjectID) error {
	var from *primitive.ObjectID
	err := s.tx.Run(ctx, func(ctx context.Context) error {
		wg, err := s.workgroups.Lock(ctx, workgroupID)
		if err != nil {
			return err
		}
		if _, err := s.authorize(ctx, actor, wg, workgrouppolicy.ActionSubmit); err != nil {
			return err
		}
		item, err := s.items.GetByID(ctx, itemID)
		if err != nil {
			return err
		}
		from = item.WorkgroupID
		if from != nil && *from != workgroupID {
			src, err := s.workgroups.GetByID(ctx, *from)
			if err != nil {
				return err
			}
			if _, err := s.authorize(ctx, actor, src, workgrouppolicy.ActionSubmit); err != nil {
				return err
			}
		}
		return s.items.SetWorkgroup(ctx, itemID, workgroupID)
	})
	if err != nil {
		s.denied(ctx, actor, &workgroupID, workgrouppolicy.ActionSubmit, err)
		return err
	}

	s.counts.Delete(workgroupID.Hex())
	fromHex := ""
	if from != nil {
		fromHex = from.Hex()
		s.counts.Delete(fromHex)
	}
	s.audit.ItemAssigned(ctx, actor.UserID, workgroupID, itemID, fromHex)
	return nil
}
