package memstore

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/dalemusser/mdregistry/internal/domain/models"
	"github.com/dalemusser/mdregistry/internal/domain/roles"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Memberships mirrors membershipstore.Store. Like it, it ignores the
// archived flag.
type Memberships struct {
	db *DB
}

func checkRole(role roles.Role) error {
	if !role.Valid() {
		return fmt.Errorf("%w: %q", roles.ErrInvalidRole, string(role))
	}
	return nil
}

func (m *Memberships) Add(ctx context.Context, workgroupID, userID primitive.ObjectID, role roles.Role) error {
	if err := checkRole(role); err != nil {
		return err
	}
	return m.db.write(ctx, func(s *state) error {
		k := memberKey{workgroupID, userID, role}
		if _, ok := s.memberships[k]; ok {
			return nil
		}
		s.memberships[k] = models.Membership{
			ID:          primitive.NewObjectID(),
			WorkgroupID: workgroupID,
			UserID:      userID,
			Role:        role,
			CreatedAt:   time.Now().UTC(),
		}
		return nil
	})
}

func (m *Memberships) Remove(ctx context.Context, workgroupID, userID primitive.ObjectID, role roles.Role) error {
	if err := checkRole(role); err != nil {
		return err
	}
	return m.db.write(ctx, func(s *state) error {
		delete(s.memberships, memberKey{workgroupID, userID, role})
		return nil
	})
}

func (m *Memberships) RemoveUser(ctx context.Context, workgroupID, userID primitive.ObjectID) (int64, error) {
	var n int64
	err := m.db.write(ctx, func(s *state) error {
		for _, r := range roles.All() {
			k := memberKey{workgroupID, userID, r}
			if _, ok := s.memberships[k]; ok {
				delete(s.memberships, k)
				n++
			}
		}
		return nil
	})
	return n, err
}

func (m *Memberships) RolesOf(ctx context.Context, workgroupID, userID primitive.ObjectID) (roles.Set, error) {
	set := roles.NewSet()
	err := m.db.read(ctx, func(s *state) error {
		for _, r := range roles.All() {
			if _, ok := s.memberships[memberKey{workgroupID, userID, r}]; ok {
				set.Add(r)
			}
		}
		return nil
	})
	return set, err
}

// ListByWorkgroup returns the workgroup's memberships ordered by user id then
// role, so callers see a stable order.
func (m *Memberships) ListByWorkgroup(ctx context.Context, workgroupID primitive.ObjectID) ([]models.Membership, error) {
	var out []models.Membership
	err := m.db.read(ctx, func(s *state) error {
		for k, v := range s.memberships {
			if k.workgroup == workgroupID {
				out = append(out, v)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].UserID != out[j].UserID {
			return out[i].UserID.Hex() < out[j].UserID.Hex()
		}
		return out[i].Role < out[j].Role
	})
	return out, err
}
