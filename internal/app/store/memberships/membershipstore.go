// internal/app/store/memberships/membershipstore.go
package membershipstore

import (
	"context"
	"fmt"
	"time"

	"github.com/dalemusser/mdregistry/internal/domain/models"
	"github.com/dalemusser/mdregistry/internal/domain/roles"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Store keeps one document per (workgroup, user, role). It does not look at
// the workgroup's archived flag; callers check it inside their transaction.
type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("workgroup_memberships")}
}

func checkRole(role roles.Role) error {
	if !role.Valid() {
		return fmt.Errorf("%w: %q", roles.ErrInvalidRole, string(role))
	}
	return nil
}

// Add grants role to the user. Granting a role the user already holds is a
// no-op. An upsert is used rather than insert-and-ignore-duplicate because a
// duplicate key error aborts the surrounding transaction.
func (s *Store) Add(ctx context.Context, workgroupID, userID primitive.ObjectID, role roles.Role) error {
	if err := checkRole(role); err != nil {
		return err
	}
	filter := bson.M{"workgroup_id": workgroupID, "user_id": userID, "role": role}
	update := bson.M{"$setOnInsert": bson.M{
		"_id":        primitive.NewObjectID(),
		"created_at": time.Now().UTC(),
	}}
	_, err := s.c.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	return err
}

// Remove revokes role. Revoking a role the user does not hold is a no-op.
func (s *Store) Remove(ctx context.Context, workgroupID, userID primitive.ObjectID, role roles.Role) error {
	if err := checkRole(role); err != nil {
		return err
	}
	_, err := s.c.DeleteOne(ctx, bson.M{"workgroup_id": workgroupID, "user_id": userID, "role": role})
	return err
}

// RemoveUser revokes every role the user holds in the workgroup and returns
// how many were removed.
func (s *Store) RemoveUser(ctx context.Context, workgroupID, userID primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"workgroup_id": workgroupID, "user_id": userID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// RolesOf returns the roles the user holds in the workgroup (possibly none).
func (s *Store) RolesOf(ctx context.Context, workgroupID, userID primitive.ObjectID) (roles.Set, error) {
	opts := options.Find().SetProjection(bson.M{"role": 1})
	cur, err := s.c.Find(ctx, bson.M{"workgroup_id": workgroupID, "user_id": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	set := roles.NewSet()
	for cur.Next(ctx) {
		var m models.Membership
		if err := cur.Decode(&m); err != nil {
			return nil, err
		}
		set.Add(m.Role)
	}
	return set, cur.Err()
}

// ListByWorkgroup returns every membership document of the workgroup.
func (s *Store) ListByWorkgroup(ctx context.Context, workgroupID primitive.ObjectID) ([]models.Membership, error) {
	cur, err := s.c.Find(ctx, bson.M{"workgroup_id": workgroupID})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.Membership
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
