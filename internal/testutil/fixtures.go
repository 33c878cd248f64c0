package testutil

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/dalemusser/mdregistry/internal/app/system/normalize"
	"github.com/dalemusser/mdregistry/internal/domain/models"
	"github.com/dalemusser/mdregistry/internal/domain/roles"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// WithChiURLParam adds a chi URL parameter to the request context.
// Use this in handler tests that need to access chi.URLParam values.
func WithChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx, ok := r.Context().Value(chi.RouteCtxKey).(*chi.Context)
	if !ok || rctx == nil {
		rctx = chi.NewRouteContext()
	}
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// Fixtures provides helper methods for creating test data.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

// CreateWorkgroup creates an unarchived workgroup with the given name.
func (f *Fixtures) CreateWorkgroup(ctx context.Context, name string) models.Workgroup {
	f.t.Helper()

	now := time.Now().UTC()
	def := "Test workgroup definition"
	wg := models.Workgroup{
		ID:           primitive.NewObjectID(),
		Name:         name,
		NameCI:       normalize.Fold(name),
		Definition:   def,
		DefinitionCI: normalize.Fold(def),
		Version:      1,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if _, err := f.db.Collection("workgroups").InsertOne(ctx, wg); err != nil {
		f.t.Fatalf("failed to create test workgroup: %v", err)
	}
	return wg
}

// CreateArchivedWorkgroup creates a workgroup that is already archived.
func (f *Fixtures) CreateArchivedWorkgroup(ctx context.Context, name string) models.Workgroup {
	f.t.Helper()

	wg := f.CreateWorkgroup(ctx, name)
	if _, err := f.db.Collection("workgroups").UpdateByID(ctx, wg.ID,
		map[string]any{"$set": map[string]any{"archived": true}}); err != nil {
		f.t.Fatalf("failed to archive test workgroup: %v", err)
	}
	wg.Archived = true
	return wg
}

// CreateUser creates an active user with no registry capabilities.
func (f *Fixtures) CreateUser(ctx context.Context, fullName, email string, caps ...string) models.User {
	f.t.Helper()

	now := time.Now().UTC()
	user := models.User{
		ID:           primitive.NewObjectID(),
		FullName:     fullName,
		FullNameCI:   normalize.Fold(fullName),
		Email:        email,
		Capabilities: caps,
		Status:       models.UserStatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if _, err := f.db.Collection("users").InsertOne(ctx, user); err != nil {
		f.t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// CreateAdmin creates a registry administrator.
func (f *Fixtures) CreateAdmin(ctx context.Context, fullName, email string) models.User {
	f.t.Helper()
	return f.CreateUser(ctx, fullName, email, models.CapRegistryAdmin)
}

// CreateDisabledUser creates a test user with disabled status.
func (f *Fixtures) CreateDisabledUser(ctx context.Context, fullName, email string) models.User {
	f.t.Helper()

	u := f.CreateUser(ctx, fullName, email)
	if _, err := f.db.Collection("users").UpdateByID(ctx, u.ID,
		map[string]any{"$set": map[string]any{"status": models.UserStatusDisabled}}); err != nil {
		f.t.Fatalf("failed to disable test user: %v", err)
	}
	u.Status = models.UserStatusDisabled
	return u
}

// GrantRole creates a membership document giving userID role in workgroupID.
func (f *Fixtures) GrantRole(ctx context.Context, workgroupID, userID primitive.ObjectID, role roles.Role) models.Membership {
	f.t.Helper()

	m := models.Membership{
		ID:          primitive.NewObjectID(),
		WorkgroupID: workgroupID,
		UserID:      userID,
		Role:        role,
		CreatedAt:   time.Now().UTC(),
	}
	if _, err := f.db.Collection("workgroup_memberships").InsertOne(ctx, m); err != nil {
		f.t.Fatalf("failed to create test membership: %v", err)
	}
	return m
}

// CreateItem creates a metadata item owned by workgroupID.
func (f *Fixtures) CreateItem(ctx context.Context, workgroupID primitive.ObjectID, name, status string, modified time.Time) models.MetadataItem {
	f.t.Helper()

	wg := workgroupID
	item := models.MetadataItem{
		ID:          primitive.NewObjectID(),
		UUID:        uuid.NewString(),
		Type:        "data_element",
		Name:        name,
		NameCI:      normalize.Fold(name),
		Status:      status,
		WorkgroupID: &wg,
		CreatedAt:   modified,
		Modified:    modified,
	}
	if _, err := f.db.Collection("metadata_items").InsertOne(ctx, item); err != nil {
		f.t.Fatalf("failed to create test item: %v", err)
	}
	return item
}
