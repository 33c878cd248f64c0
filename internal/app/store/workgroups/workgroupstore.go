// internal/app/store/workgroups/workgroupstore.go
package workgroupstore

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/dalemusser/mdregistry/internal/app/system/normalize"
	"github.com/dalemusser/mdregistry/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("workgroups")}
}

func notFound(err error, id primitive.ObjectID) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return fmt.Errorf("%w: workgroup %s", models.ErrNotFound, id.Hex())
	}
	return err
}

// GetByID loads a workgroup without taking part in write conflict detection.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Workgroup, error) {
	var wg models.Workgroup
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&wg); err != nil {
		return models.Workgroup{}, notFound(err, id)
	}
	return wg, nil
}

// Create inserts a new, unarchived workgroup.
func (s *Store) Create(ctx context.Context, wg models.Workgroup) (models.Workgroup, error) {
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
	if _, err := s.c.InsertOne(ctx, wg); err != nil {
		return models.Workgroup{}, err
	}
	return wg, nil
}

// Lock re-reads the workgroup inside the caller's transaction and bumps its
// version. Any other transaction that writes the same workgroup (an archive
// toggle, another membership change) now conflicts with this one, so the
// archived flag returned here stays true until commit.
func (s *Store) Lock(ctx context.Context, id primitive.ObjectID) (models.Workgroup, error) {
	var wg models.Workgroup
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$inc": bson.M{"version": 1}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&wg)
	if err != nil {
		return models.Workgroup{}, notFound(err, id)
	}
	return wg, nil
}

// SetArchived sets the archived flag and returns the updated workgroup.
func (s *Store) SetArchived(ctx context.Context, id primitive.ObjectID, archived bool) (models.Workgroup, error) {
	return s.update(ctx, id, bson.M{"archived": archived})
}

// UpdateInfo replaces name and definition.
func (s *Store) UpdateInfo(ctx context.Context, id primitive.ObjectID, name, definition string) (models.Workgroup, error) {
	return s.update(ctx, id, bson.M{
		"name":          name,
		"name_ci":       normalize.Fold(name),
		"definition":    definition,
		"definition_ci": normalize.Fold(definition),
	})
}

func (s *Store) update(ctx context.Context, id primitive.ObjectID, set bson.M) (models.Workgroup, error) {
	set["updated_at"] = time.Now().UTC()
	var wg models.Workgroup
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": set, "$inc": bson.M{"version": 1}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&wg)
	if err != nil {
		return models.Workgroup{}, notFound(err, id)
	}
	return wg, nil
}

func listFilter(filter string) bson.M {
	q := bson.M{}
	if f := normalize.SearchKey(filter); f != "" {
		pat := primitive.Regex{Pattern: regexp.QuoteMeta(f)}
		q["$or"] = []bson.M{
			{"name_ci": pat},
			{"definition_ci": pat},
		}
	}
	return q
}

// List returns workgroups whose name or definition contains filter,
// compared case- and diacritic-insensitively. An empty filter returns all.
// Results are ordered by folded name, then _id, and windowed by
// offset/limit (limit <= 0 means no limit).
func (s *Store) List(ctx context.Context, filter string, offset, limit int64) ([]models.Workgroup, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "name_ci", Value: 1}, {Key: "_id", Value: 1}}).
		SetSkip(max(offset, 0))
	if limit > 0 {
		opts.SetLimit(limit)
	}
	cur, err := s.c.Find(ctx, listFilter(filter), opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.Workgroup
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Count returns how many workgroups List would return without a window.
func (s *Store) Count(ctx context.Context, filter string) (int64, error) {
	return s.c.CountDocuments(ctx, listFilter(filter))
}
