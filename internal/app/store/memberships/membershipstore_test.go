package membershipstore_test

import (
	"errors"
	"testing"

	membershipstore "github.com/dalemusser/mdregistry/internal/app/store/memberships"
	"github.com/dalemusser/mdregistry/internal/domain/roles"
	"github.com/dalemusser/mdregistry/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestStore_Add(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := membershipstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	wg := fixtures.CreateWorkgroup(ctx, "Data Standards")
	user := fixtures.CreateUser(ctx, "Ada Lovelace", "ada@example.com")

	if err := store.Add(ctx, wg.ID, user.ID, roles.Submitter); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if err := store.Add(ctx, wg.ID, user.ID, roles.Steward); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	got, err := store.RolesOf(ctx, wg.ID, user.ID)
	if err != nil {
		t.Fatalf("RolesOf failed: %v", err)
	}
	if !got.Equal(roles.NewSet(roles.Submitter, roles.Steward)) {
		t.Errorf("RolesOf = %v, want submitter+steward", got)
	}
}

func TestStore_Add_Idempotent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := membershipstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	wg := fixtures.CreateWorkgroup(ctx, "Data Standards")
	user := fixtures.CreateUser(ctx, "Ada Lovelace", "ada@example.com")

	for i := 0; i < 3; i++ {
		if err := store.Add(ctx, wg.ID, user.ID, roles.Viewer); err != nil {
			t.Fatalf("Add #%d failed: %v", i+1, err)
		}
	}

	count, err := db.Collection("workgroup_memberships").CountDocuments(ctx, bson.M{
		"workgroup_id": wg.ID,
		"user_id":      user.ID,
	})
	if err != nil {
		t.Fatalf("CountDocuments failed: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 membership document, got %d", count)
	}
}

func TestStore_Add_InvalidRole(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := membershipstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	err := store.Add(ctx, primitive.NewObjectID(), primitive.NewObjectID(), roles.Role("owner"))
	if !errors.Is(err, roles.ErrInvalidRole) {
		t.Errorf("expected ErrInvalidRole, got %v", err)
	}
}

func TestStore_Remove(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := membershipstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	wg := fixtures.CreateWorkgroup(ctx, "Data Standards")
	user := fixtures.CreateUser(ctx, "Ada Lovelace", "ada@example.com")

	if err := store.Add(ctx, wg.ID, user.ID, roles.Viewer); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if err := store.Remove(ctx, wg.ID, user.ID, roles.Viewer); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	// absent role: no-op
	if err := store.Remove(ctx, wg.ID, user.ID, roles.Manager); err != nil {
		t.Fatalf("Remove of absent role failed: %v", err)
	}

	got, err := store.RolesOf(ctx, wg.ID, user.ID)
	if err != nil {
		t.Fatalf("RolesOf failed: %v", err)
	}
	if !got.Empty() {
		t.Errorf("expected no roles, got %v", got)
	}
}

func TestStore_RemoveUser(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := membershipstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	wg := fixtures.CreateWorkgroup(ctx, "Data Standards")
	a := fixtures.CreateUser(ctx, "Ada Lovelace", "ada@example.com")
	b := fixtures.CreateUser(ctx, "Brian Kernighan", "bwk@example.com")

	for _, r := range []roles.Role{roles.Viewer, roles.Steward, roles.Manager} {
		if err := store.Add(ctx, wg.ID, a.ID, r); err != nil {
			t.Fatalf("Add failed: %v", err)
		}
	}
	if err := store.Add(ctx, wg.ID, b.ID, roles.Viewer); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	n, err := store.RemoveUser(ctx, wg.ID, a.ID)
	if err != nil {
		t.Fatalf("RemoveUser failed: %v", err)
	}
	if n != 3 {
		t.Errorf("expected 3 removed, got %d", n)
	}

	n, err = store.RemoveUser(ctx, wg.ID, a.ID)
	if err != nil || n != 0 {
		t.Errorf("second RemoveUser = (%d, %v), want (0, nil)", n, err)
	}

	members, err := store.ListByWorkgroup(ctx, wg.ID)
	if err != nil {
		t.Fatalf("ListByWorkgroup failed: %v", err)
	}
	if len(members) != 1 || members[0].UserID != b.ID {
		t.Errorf("expected only B to remain, got %+v", members)
	}
}

func TestStore_RolesOf_Empty(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := membershipstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	got, err := store.RolesOf(ctx, primitive.NewObjectID(), primitive.NewObjectID())
	if err != nil {
		t.Fatalf("RolesOf failed: %v", err)
	}
	if !got.Empty() {
		t.Errorf("expected empty set, got %v", got)
	}
}
