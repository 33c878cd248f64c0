package registry

import (
	"context"
	"fmt"
	"strings"

	"github.com/dalemusser/mdregistry/internal/app/policy/workgrouppolicy"
	"github.com/dalemusser/mdregistry/internal/app/system/limits"
	"github.com/dalemusser/mdregistry/internal/app/system/normalize"
	"github.com/dalemusser/mdregistry/internal/app/system/paging"
	"github.com/dalemusser/mdregistry/internal/domain/models"
	"github.com/dalemusser/mdregistry/internal/domain/roles"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// MaxNameLength bounds workgroup names.
const MaxNameLength = 200

func cleanInfo(name, definition string) (string, string, error) {
	name = normalize.Name(name)
	if name == "" {
		return "", "", fmt.Errorf("%w: name is required", models.ErrInvalidArgument)
	}
	if len([]rune(name)) > MaxNameLength {
		return "", "", fmt.Errorf("%w: name is longer than %d characters", models.ErrInvalidArgument, MaxNameLength)
	}
	// Stored as submitted so list filters match it; markup is cleaned when
	// the definition is rendered.
	definition = strings.TrimSpace(definition)
	if len(definition) > limits.MaxDefinitionSize {
		return "", "", fmt.Errorf("%w: definition is larger than %d bytes", models.ErrInvalidArgument, limits.MaxDefinitionSize)
	}
	return name, definition, nil
}

// Create adds an unarchived workgroup. The creator needs the add-workgroup
// capability and becomes the workgroup's first Manager in the same
// transaction, so a new workgroup always has someone able to run it.
func (s *Service) Create(ctx context.Context, creator workgrouppolicy.Actor, name, definition string) (models.Workgroup, error) {
	if err := workgrouppolicy.Require(creator, models.Workgroup{}, nil, workgrouppolicy.ActionCreate); err != nil {
		s.denied(ctx, creator, nil, workgrouppolicy.ActionCreate, err)
		return models.Workgroup{}, err
	}
	name, definition, err := cleanInfo(name, definition)
	if err != nil {
		return models.Workgroup{}, err
	}

	var wg models.Workgroup
	err = s.tx.Run(ctx, func(ctx context.Context) error {
		var err error
		wg, err = s.workgroups.Create(ctx, models.Workgroup{
			ID:         primitive.NewObjectID(),
			Name:       name,
			Definition: definition,
			CreatedBy:  creator.UserID,
		})
		if err != nil {
			return err
		}
		return s.members.Add(ctx, wg.ID, creator.UserID, roles.Manager)
	})
	if err != nil {
		return models.Workgroup{}, err
	}

	s.audit.WorkgroupCreated(ctx, creator.UserID, wg.ID, wg.Name)
	s.log.Info("workgroup created",
		zap.String("workgroup_id", wg.ID.Hex()),
		zap.String("creator_id", creator.UserID.Hex()))
	return wg, nil
}

// ToggleArchive flips the archived flag and returns the updated workgroup.
func (s *Service) ToggleArchive(ctx context.Context, actor workgrouppolicy.Actor, workgroupID primitive.ObjectID) (models.Workgroup, error) {
	var wg models.Workgroup
	err := s.tx.Run(ctx, func(ctx context.Context) error {
		cur, err := s.workgroups.Lock(ctx, workgroupID)
		if err != nil {
			return err
		}
		if _, err := s.authorize(ctx, actor, cur, workgrouppolicy.ActionArchive); err != nil {
			return err
		}
		wg, err = s.workgroups.SetArchived(ctx, workgroupID, !cur.Archived)
		return err
	})
	if err != nil {
		s.denied(ctx, actor, &workgroupID, workgrouppolicy.ActionArchive, err)
		return models.Workgroup{}, err
	}

	s.audit.ArchiveToggled(ctx, actor.UserID, wg.ID, wg.Archived)
	return wg, nil
}

// WorkgroupPage is one page of the registry listing.
type WorkgroupPage struct {
	Filter     string
	Workgroups []models.Workgroup
	Page       paging.Page
}

// List returns page (1-based) of the workgroups whose name or definition
// contains filter, ignoring case. An empty filter matches every workgroup.
// Only registry administrators may list. page < 1 is page 1; pageSize < 1
// uses the configured default.
func (s *Service) List(ctx context.Context, actor workgrouppolicy.Actor, filter string, page, pageSize int) (WorkgroupPage, error) {
	if err := workgrouppolicy.Require(actor, models.Workgroup{}, nil, workgrouppolicy.ActionAdminister); err != nil {
		s.denied(ctx, actor, nil, workgrouppolicy.ActionAdminister, err)
		return WorkgroupPage{}, err
	}
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = s.defaultSize
	}

	total, err := s.workgroups.Count(ctx, filter)
	if err != nil {
		return WorkgroupPage{}, err
	}
	out, err := s.workgroups.List(ctx, filter, paging.Offset(page, pageSize), int64(pageSize))
	if err != nil {
		return WorkgroupPage{}, err
	}
	if out == nil {
		out = []models.Workgroup{}
	}
	return WorkgroupPage{
		Filter:     filter,
		Workgroups: out,
		Page:       paging.NewPage(page, pageSize, total),
	}, nil
}

// Edit replaces name and definition. Editing is allowed on archived
// workgroups.
func (s *Service) Edit(ctx context.Context, actor workgrouppolicy.Actor, workgroupID primitive.ObjectID, name, definition string) (models.Workgroup, error) {
	name, definition, err := cleanInfo(name, definition)
	if err != nil {
		return models.Workgroup{}, err
	}

	var before, after models.Workgroup
	err = s.tx.Run(ctx, func(ctx context.Context) error {
		var err error
		before, err = s.workgroups.Lock(ctx, workgroupID)
		if err != nil {
			return err
		}
		if _, err := s.authorize(ctx, actor, before, workgrouppolicy.ActionChangeMetadata); err != nil {
			return err
		}
		after, err = s.workgroups.UpdateInfo(ctx, workgroupID, name, definition)
		return err
	})
	if err != nil {
		s.denied(ctx, actor, &workgroupID, workgrouppolicy.ActionChangeMetadata, err)
		return models.Workgroup{}, err
	}

	var changed []string
	if before.Name != after.Name {
		changed = append(changed, "name")
	}
	if before.Definition != after.Definition {
		changed = append(changed, "definition")
	}
	if len(changed) > 0 {
		s.audit.WorkgroupUpdated(ctx, actor.UserID, workgroupID, strings.Join(changed, ","))
	}
	return after, nil
}

// View returns the workgroup and the actor's roles in it, provided the actor
// may view it.
func (s *Service) View(ctx context.Context, actor workgrouppolicy.Actor, workgroupID primitive.ObjectID) (models.Workgroup, roles.Set, error) {
	wg, err := s.workgroups.GetByID(ctx, workgroupID)
	if err != nil {
		return models.Workgroup{}, nil, err
	}
	held, err := s.authorize(ctx, actor, wg, workgrouppolicy.ActionView)
	if err != nil {
		s.denied(ctx, actor, &wg.ID, workgrouppolicy.ActionView, err)
		return models.Workgroup{}, nil, err
	}
	return wg, held, nil
}
