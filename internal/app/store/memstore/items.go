package memstore

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/dalemusser/mdregistry/internal/app/system/normalize"
	"github.com/dalemusser/mdregistry/internal/app/system/sortopts"
	"github.com/dalemusser/mdregistry/internal/domain/models"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Items mirrors itemstore.Store.
type Items struct {
	db *DB
}

func itemNotFound(id primitive.ObjectID) error {
	return fmt.Errorf("%w: item %s", models.ErrNotFound, id.Hex())
}

func (it *Items) Create(ctx context.Context, item models.MetadataItem) (models.MetadataItem, error) {
	now := time.Now().UTC()
	if item.ID.IsZero() {
		item.ID = primitive.NewObjectID()
	}
	if item.UUID == "" {
		item.UUID = uuid.NewString()
	}
	item.NameCI = normalize.Fold(item.Name)
	item.Status = normalize.Status(item.Status)
	if item.CreatedAt.IsZero() {
		item.CreatedAt = now
	}
	if item.Modified.IsZero() {
		item.Modified = now
	}
	err := it.db.write(ctx, func(s *state) error {
		s.items[item.ID] = item
		return nil
	})
	return item, err
}

func (it *Items) GetByID(ctx context.Context, id primitive.ObjectID) (models.MetadataItem, error) {
	var out models.MetadataItem
	err := it.db.read(ctx, func(s *state) error {
		item, ok := s.items[id]
		if !ok {
			return itemNotFound(id)
		}
		out = item
		return nil
	})
	return out, err
}

func (it *Items) inWorkgroup(s *state, workgroupID primitive.ObjectID) []models.MetadataItem {
	var out []models.MetadataItem
	for _, item := range s.items {
		if item.WorkgroupID != nil && *item.WorkgroupID == workgroupID {
			out = append(out, item)
		}
	}
	return out
}

func (it *Items) ListByWorkgroup(ctx context.Context, workgroupID primitive.ObjectID, order sortopts.Option, offset, limit int64) ([]models.MetadataItem, error) {
	var all []models.MetadataItem
	err := it.db.read(ctx, func(s *state) error {
		all = it.inWorkgroup(s, workgroupID)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(all, func(i, j int) bool { return order.Less(all[i], all[j]) })

	return window(all, offset, limit), nil
}

func (it *Items) CountByWorkgroup(ctx context.Context, workgroupID primitive.ObjectID) (int64, error) {
	var n int64
	err := it.db.read(ctx, func(s *state) error {
		n = int64(len(it.inWorkgroup(s, workgroupID)))
		return nil
	})
	return n, err
}

func (it *Items) StatusCounts(ctx context.Context, workgroupID primitive.ObjectID) ([]models.StatusCount, error) {
	counts := map[string]int64{}
	err := it.db.read(ctx, func(s *state) error {
		for _, item := range it.inWorkgroup(s, workgroupID) {
			counts[item.Status]++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	out := make([]models.StatusCount, 0, len(counts))
	for status, n := range counts {
		out = append(out, models.StatusCount{Status: status, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Status < out[j].Status })
	return out, nil
}

func (it *Items) SetWorkgroup(ctx context.Context, itemID, workgroupID primitive.ObjectID) error {
	return it.db.write(ctx, func(s *state) error {
		item, ok := s.items[itemID]
		if !ok {
			return itemNotFound(itemID)
		}
		wg := workgroupID
		item.WorkgroupID = &wg
		item.Modified = time.Now().UTC()
		s.items[itemID] = item
		return nil
	})
}
