package registry_test

import (
	"context"
	"testing"

	"github.com/dalemusser/mdregistry/internal/app/policy/workgrouppolicy"
	"github.com/dalemusser/mdregistry/internal/app/registry"
	"github.com/dalemusser/mdregistry/internal/app/store/audit"
	"github.com/dalemusser/mdregistry/internal/domain/models"
	"github.com/dalemusser/mdregistry/internal/domain/roles"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestHistory_ManagerReadsTrailNewestFirst(t *testing.T) {
	e := newEnv(t, nil)
	ctx := context.Background()
	mgr := e.user(t, "Manager", models.CapAddWorkgroup)
	stew := e.user(t, "Stewart")
	wg := e.workgroup(t, mgr, "Data Standards")

	require.NoError(t, e.svc.AddMembersWithRoles(ctx, workgrouppolicy.ActorFor(mgr), wg.ID,
		[]primitive.ObjectID{stew.ID}, []roles.Role{roles.Steward}))

	_, err := e.svc.History(ctx, workgrouppolicy.ActorFor(stew), wg.ID, registry.HistoryQuery{})
	require.ErrorIs(t, err, models.ErrPermissionDenied)

	got, err := e.svc.History(ctx, workgrouppolicy.ActorFor(mgr), wg.ID, registry.HistoryQuery{Category: audit.CategoryAdmin})
	require.NoError(t, err)
	require.Len(t, got.Entries, 2)
	require.Equal(t, audit.EventMemberRolesAdded, got.Entries[0].EventType)
	require.Equal(t, "Manager", got.Entries[0].ActorName)
	require.Equal(t, "Stewart", got.Entries[0].UserName)
	require.Equal(t, audit.EventWorkgroupCreated, got.Entries[1].EventType)
	require.EqualValues(t, 2, got.Page.Total)

	// The steward's refusal is on the trail too, as a security event.
	all, err := e.svc.History(ctx, workgrouppolicy.ActorFor(mgr), wg.ID, registry.HistoryQuery{})
	require.NoError(t, err)
	require.Len(t, all.Entries, 3)
	require.Equal(t, audit.EventPermissionDenied, all.Entries[0].EventType)
	require.Equal(t, "Stewart", all.Entries[0].ActorName)
}

func TestHistory_PagingAndArchivedAndAdmin(t *testing.T) {
	e := newEnv(t, nil)
	ctx := context.Background()
	mgr := e.user(t, "Manager", models.CapAddWorkgroup)
	admin := e.user(t, "Admin", models.CapRegistryAdmin)
	wg := e.workgroup(t, mgr, "Data Standards")

	_, err := e.svc.ToggleArchive(ctx, workgrouppolicy.ActorFor(mgr), wg.ID)
	require.NoError(t, err)
	_, err = e.svc.ToggleArchive(ctx, workgrouppolicy.ActorFor(mgr), wg.ID)
	require.NoError(t, err)
	_, err = e.svc.ToggleArchive(ctx, workgrouppolicy.ActorFor(mgr), wg.ID)
	require.NoError(t, err)

	// Archived, and read by an administrator who holds no role here.
	got, err := e.svc.History(ctx, workgrouppolicy.ActorFor(admin), wg.ID, registry.HistoryQuery{Page: 2, PageSize: 2})
	require.NoError(t, err)
	require.True(t, got.Workgroup.Archived)
	require.Len(t, got.Entries, 2)
	require.Equal(t, audit.EventWorkgroupArchived, got.Entries[0].EventType)
	require.Equal(t, audit.EventWorkgroupCreated, got.Entries[1].EventType)
	require.EqualValues(t, 4, got.Page.Total)
	require.Equal(t, 2, got.Page.Pages)
	require.True(t, got.Page.HasPrev)
	require.False(t, got.Page.HasNext)

	byType, err := e.svc.History(ctx, workgrouppolicy.ActorFor(mgr), wg.ID, registry.HistoryQuery{EventType: audit.EventWorkgroupUnarchived})
	require.NoError(t, err)
	require.Len(t, byType.Entries, 1)
}

func TestHistory_UnknownWorkgroupAndNoReader(t *testing.T) {
	e := newEnv(t, func(d *registry.Deps) { d.Events = nil })
	ctx := context.Background()
	mgr := e.user(t, "Manager", models.CapAddWorkgroup)
	wg := e.workgroup(t, mgr, "Data Standards")

	_, err := e.svc.History(ctx, workgrouppolicy.ActorFor(mgr), primitive.NewObjectID(), registry.HistoryQuery{})
	require.ErrorIs(t, err, models.ErrNotFound)

	got, err := e.svc.History(ctx, workgrouppolicy.ActorFor(mgr), wg.ID, registry.HistoryQuery{})
	require.NoError(t, err)
	require.Empty(t, got.Entries)
	require.NotNil(t, got.Entries)
}
