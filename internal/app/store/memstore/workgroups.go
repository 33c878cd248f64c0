package memstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dalemusser/mdregistry/internal/app/system/normalize"
	"github.com/dalemusser/mdregistry/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Workgroups mirrors workgroupstore.Store.
type Workgroups struct {
	db *DB
}

func workgroupNotFound(id primitive.ObjectID) error {
	return fmt.Errorf("%w: workgroup %s", models.ErrNotFound, id.Hex())
}

func (w *Workgroups) GetByID(ctx context.Context, id primitive.ObjectID) (models.Workgroup, error) {
	var out models.Workgroup
	err := w.db.read(ctx, func(s *state) error {
		wg, ok := s.workgroups[id]
		if !ok {
			return workgroupNotFound(id)
		}
		out = wg
		return nil
	})
	return out, err
}

func (w *Workgroups) Create(ctx context.Context, wg models.Workgroup) (models.Workgroup, error) {
	now := time.Now().UTC()
	if wg.ID.IsZero() {
		wg.ID = primitive.NewObjectID()
	}
	wg.NameCI = normalize.Fold(wg.Name)
	wg.DefinitionCI = normalize.Fold(wg.Definition)
	wg.Archived = false
	wg.Version = 1
	wg.CreatedAt = now
	wg.UpdatedAt = now

	err := w.db.write(ctx, func(s *state) error {
		if _, exists := s.workgroups[wg.ID]; exists {
			return fmt.Errorf("workgroup %s already exists", wg.ID.Hex())
		}
		s.workgroups[wg.ID] = wg
		return nil
	})
	if err != nil {
		return models.Workgroup{}, err
	}
	return wg, nil
}

// Lock bumps the version. Run already serializes transactions, so this only
// has to return the current document.
func (w *Workgroups) Lock(ctx context.Context, id primitive.ObjectID) (models.Workgroup, error) {
	return w.update(ctx, id, func(*models.Workgroup) {})
}

func (w *Workgroups) SetArchived(ctx context.Context, id primitive.ObjectID, archived bool) (models.Workgroup, error) {
	return w.update(ctx, id, func(wg *models.Workgroup) {
		wg.Archived = archived
		wg.UpdatedAt = time.Now().UTC()
	})
}

func (w *Workgroups) UpdateInfo(ctx context.Context, id primitive.ObjectID, name, definition string) (models.Workgroup, error) {
	return w.update(ctx, id, func(wg *models.Workgroup) {
		wg.Name = name
		wg.NameCI = normalize.Fold(name)
		wg.Definition = definition
		wg.DefinitionCI = normalize.Fold(definition)
		wg.UpdatedAt = time.Now().UTC()
	})
}

func (w *Workgroups) update(ctx context.Context, id primitive.ObjectID, mutate func(*models.Workgroup)) (models.Workgroup, error) {
	var out models.Workgroup
	err := w.db.write(ctx, func(s *state) error {
		wg, ok := s.workgroups[id]
		if !ok {
			return workgroupNotFound(id)
		}
		mutate(&wg)
		wg.Version++
		s.workgroups[id] = wg
		out = wg
		return nil
	})
	return out, err
}

func (w *Workgroups) matching(s *state, filter string) []models.Workgroup {
	f := normalize.SearchKey(filter)
	var out []models.Workgroup
	for _, wg := range s.workgroups {
		if f == "" || strings.Contains(wg.NameCI, f) || strings.Contains(wg.DefinitionCI, f) {
			out = append(out, wg)
		}
	}
	return out
}

func (w *Workgroups) List(ctx context.Context, filter string, offset, limit int64) ([]models.Workgroup, error) {
	var out []models.Workgroup
	err := w.db.read(ctx, func(s *state) error {
		out = w.matching(s, filter)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].NameCI != out[j].NameCI {
			return out[i].NameCI < out[j].NameCI
		}
		return out[i].ID.Hex() < out[j].ID.Hex()
	})
	return window(out, offset, limit), nil
}

func (w *Workgroups) Count(ctx context.Context, filter string) (int64, error) {
	var n int64
	err := w.db.read(ctx, func(s *state) error {
		n = int64(len(w.matching(s, filter)))
		return nil
	})
	return n, err
}
