// internal/app/store/items/itemstore.go
package itemstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dalemusser/mdregistry/internal/app/system/normalize"
	"github.com/dalemusser/mdregistry/internal/app/system/sortopts"
	"github.com/dalemusser/mdregistry/internal/domain/models"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Store reads and writes metadata items. Every item subtype lives in the
// same collection, so listings never filter on type.
type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("metadata_items")}
}

// Create inserts an item, assigning an id and a UUID when missing.
func (s *Store) Create(ctx context.Context, it models.MetadataItem) (models.MetadataItem, error) {
	now := time.Now().UTC()
	if it.ID.IsZero() {
		it.ID = primitive.NewObjectID()
	}
	if it.UUID == "" {
		it.UUID = uuid.NewString()
	}
	it.NameCI = normalize.Fold(it.Name)
	it.Status = normalize.Status(it.Status)
	if it.CreatedAt.IsZero() {
		it.CreatedAt = now
	}
	if it.Modified.IsZero() {
		it.Modified = now
	}
	if _, err := s.c.InsertOne(ctx, it); err != nil {
		return models.MetadataItem{}, err
	}
	return it, nil
}

// GetByID loads one item.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.MetadataItem, error) {
	var it models.MetadataItem
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&it); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.MetadataItem{}, fmt.Errorf("%w: item %s", models.ErrNotFound, id.Hex())
		}
		return models.MetadataItem{}, err
	}
	return it, nil
}

// ListByWorkgroup returns one page of the workgroup's items in the given
// order. limit <= 0 means no limit.
func (s *Store) ListByWorkgroup(ctx context.Context, workgroupID primitive.ObjectID, order sortopts.Option, offset, limit int64) ([]models.MetadataItem, error) {
	opts := options.Find().SetSort(order.BSON()).SetSkip(offset)
	if limit > 0 {
		opts.SetLimit(limit)
	}
	cur, err := s.c.Find(ctx, bson.M{"workgroup_id": workgroupID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.MetadataItem
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CountByWorkgroup returns how many items belong to the workgroup.
func (s *Store) CountByWorkgroup(ctx context.Context, workgroupID primitive.ObjectID) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{"workgroup_id": workgroupID})
}

// StatusCounts groups the workgroup's items by status, ordered by status.
func (s *Store) StatusCounts(ctx context.Context, workgroupID primitive.ObjectID) ([]models.StatusCount, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"workgroup_id": workgroupID}}},
		{{Key: "$group", Value: bson.M{"_id": "$status", "n": bson.M{"$sum": 1}}}},
		{{Key: "$sort", Value: bson.M{"_id": 1}}},
	}
	cur, err := s.c.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.StatusCount
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SetWorkgroup moves an item into a workgroup and touches its modified time.
func (s *Store) SetWorkgroup(ctx context.Context, itemID, workgroupID primitive.ObjectID) error {
	res, err := s.c.UpdateByID(ctx, itemID, bson.M{"$set": bson.M{
		"workgroup_id": workgroupID,
		"modified":     time.Now().UTC(),
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("%w: item %s", models.ErrNotFound, itemID.Hex())
	}
	return nil
}
