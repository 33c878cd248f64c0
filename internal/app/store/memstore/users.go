package memstore

import (
	"context"
	"fmt"
	"slices"
	"time"

	userstore "github.com/dalemusser/mdregistry/internal/app/store/users"
	"github.com/dalemusser/mdregistry/internal/app/system/normalize"
	"github.com/dalemusser/mdregistry/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Users mirrors userstore.Store.
type Users struct {
	db *DB
}

func (u *Users) GetByID(ctx context.Context, id primitive.ObjectID) (models.User, error) {
	var out models.User
	err := u.db.read(ctx, func(s *state) error {
		user, ok := s.users[id]
		if !ok {
			return fmt.Errorf("%w: user %s", models.ErrNotFound, id.Hex())
		}
		out = user
		return nil
	})
	return out, err
}

func (u *Users) GetByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.User, error) {
	var out []models.User
	err := u.db.read(ctx, func(s *state) error {
		for _, id := range ids {
			if user, ok := s.users[id]; ok {
				out = append(out, user)
			}
		}
		return nil
	})
	return out, err
}

func (u *Users) GetByEmail(ctx context.Context, email string) (models.User, error) {
	email = normalize.Email(email)
	var out models.User
	err := u.db.read(ctx, func(s *state) error {
		for _, user := range s.users {
			if user.Email == email {
				out = user
				return nil
			}
		}
		return fmt.Errorf("%w: user %s", models.ErrNotFound, email)
	})
	return out, err
}

func (u *Users) Create(ctx context.Context, user models.User) (models.User, error) {
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	user.FullName = normalize.Name(user.FullName)
	user.FullNameCI = normalize.Fold(user.FullName)
	user.Email = normalize.Email(user.Email)
	if user.Status == "" {
		user.Status = models.UserStatusActive
	}
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now
	user.Capabilities = slices.Clone(user.Capabilities)

	err := u.db.write(ctx, func(s *state) error {
		for _, existing := range s.users {
			if existing.Email == user.Email {
				return userstore.ErrDuplicateEmail
			}
		}
		s.users[user.ID] = user
		return nil
	})
	if err != nil {
		return models.User{}, err
	}
	return user, nil
}

func (u *Users) GrantCapabilities(ctx context.Context, id primitive.ObjectID, caps ...string) error {
	if len(caps) == 0 {
		return nil
	}
	return u.db.write(ctx, func(s *state) error {
		user, ok := s.users[id]
		if !ok {
			return fmt.Errorf("%w: user %s", models.ErrNotFound, id.Hex())
		}
		have := slices.Clone(user.Capabilities)
		for _, c := range caps {
			if !slices.Contains(have, c) {
				have = append(have, c)
			}
		}
		user.Capabilities = have
		user.UpdatedAt = time.Now().UTC()
		s.users[id] = user
		return nil
	})
}
