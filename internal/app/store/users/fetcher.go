package userstore

import (
	"context"

	"github.com/dalemusser/mdregistry/internal/app/system/auth"
	"github.com/dalemusser/mdregistry/internal/app/system/timeouts"
	"github.com/dalemusser/mdregistry/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Getter is the lookup Fetcher needs; both the Mongo store and the
// in-memory backend provide it.
type Getter interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (models.User, error)
}

// Fetcher implements auth.UserFetcher to load fresh user data on each request.
type Fetcher struct {
	users Getter
}

// NewFetcher creates a UserFetcher backed by users.
func NewFetcher(users Getter) *Fetcher {
	return &Fetcher{users: users}
}

// FetchUser retrieves a user by ID and returns nil if the user is not found,
// disabled, or if any error occurs. This implements auth.UserFetcher.
func (f *Fetcher) FetchUser(ctx context.Context, userID string) *auth.SessionUser {
	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil
	}

	// Use a short timeout for the DB query
	ctx, cancel := context.WithTimeout(ctx, timeouts.Short())
	defer cancel()

	u, err := f.users.GetByID(ctx, oid)
	if err != nil {
		return nil
	}
	if u.Status == models.UserStatusDisabled {
		return nil
	}

	return &auth.SessionUser{
		ID:           u.ID.Hex(),
		Name:         u.FullName,
		Email:        u.Email,
		Capabilities: append([]string(nil), u.Capabilities...),
	}
}
