// internal/app/policy/workgrouppolicy/workgrouppolicy.go

// Package workgrouppolicy decides whether an actor may perform an action on a
// workgroup. Decisions are pure functions of the values passed in: callers
// load the workgroup and the actor's roles (inside the same transaction when
// they are about to mutate) and the policy never touches storage.
package workgrouppolicy

import (
	"fmt"

	"github.com/dalemusser/mdregistry/internal/domain/models"
	"github.com/dalemusser/mdregistry/internal/domain/roles"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Action is something an actor can attempt against a workgroup.
type Action string

const (
	ActionView           Action = "view"            // view workgroup and its items
	ActionSubmit         Action = "submit"          // submit or edit items
	ActionChangeMetadata Action = "change_metadata" // rename, edit definition
	ActionManageMembers  Action = "manage_members"  // add/remove members, change roles
	ActionArchive        Action = "archive"         // archive or unarchive
	ActionLeave          Action = "leave"           // remove oneself
	ActionViewHistory    Action = "view_history"    // read the workgroup's audit trail
	ActionAdminister     Action = "administer"      // list every workgroup
	ActionCreate         Action = "create"          // create a workgroup
)

// qualifying lists, per workgroup-scoped action, the roles any one of which
// is enough to perform it.
var qualifying = map[Action][]roles.Role{
	ActionView:           {roles.Viewer, roles.Submitter, roles.Steward, roles.Manager},
	ActionLeave:          {roles.Viewer, roles.Submitter, roles.Steward, roles.Manager},
	ActionSubmit:         {roles.Submitter, roles.Steward, roles.Manager},
	ActionChangeMetadata: {roles.Manager},
	ActionManageMembers:  {roles.Manager},
	ActionArchive:        {roles.Manager},
	ActionViewHistory:    {roles.Manager},
}

// blockedWhenArchived marks the actions an archived workgroup refuses even
// to qualified actors. Archive itself stays allowed so it can be undone.
var blockedWhenArchived = map[Action]bool{
	ActionSubmit:        true,
	ActionManageMembers: true,
}

// Actor is the identity an action is attempted under.
type Actor struct {
	UserID        primitive.ObjectID
	Name          string
	Authenticated bool
	Capabilities  []string
}

// Anonymous returns the unauthenticated actor. It is denied everything.
func Anonymous() Actor {
	return Actor{}
}

// ActorFor builds an authenticated actor from a user record.
func ActorFor(u models.User) Actor {
	caps := make([]string, len(u.Capabilities))
	copy(caps, u.Capabilities)
	return Actor{
		UserID:        u.ID,
		Name:          u.FullName,
		Authenticated: true,
		Capabilities:  caps,
	}
}

// HasCapability reports whether the actor holds a registry-wide capability.
// Registry administrators hold all of them.
func (a Actor) HasCapability(c string) bool {
	if !a.Authenticated {
		return false
	}
	for _, have := range a.Capabilities {
		if have == c || have == models.CapRegistryAdmin {
			return true
		}
	}
	return false
}

// Require returns nil when actor may perform action on wg, given the roles
// the actor holds there. It returns ErrPermissionDenied when a role or
// capability is missing, and ErrWorkgroupArchived when the actor qualifies
// but the workgroup's archived state forbids the action.
func Require(actor Actor, wg models.Workgroup, held roles.Set, action Action) error {
	if !actor.Authenticated {
		return fmt.Errorf("%w: sign-in required to %s", models.ErrPermissionDenied, action)
	}

	switch action {
	case ActionAdminister:
		if !actor.HasCapability(models.CapRegistryAdmin) {
			return fmt.Errorf("%w: registry administrator capability required", models.ErrPermissionDenied)
		}
		return nil
	case ActionCreate:
		if !actor.HasCapability(models.CapAddWorkgroup) {
			return fmt.Errorf("%w: add-workgroup capability required", models.ErrPermissionDenied)
		}
		return nil
	}

	// Registry administrators review any workgroup's history without
	// holding a role in it.
	if action == ActionViewHistory && actor.HasCapability(models.CapRegistryAdmin) {
		return nil
	}

	need, ok := qualifying[action]
	if !ok {
		return fmt.Errorf("%w: unknown action %q", models.ErrPermissionDenied, action)
	}
	if !held.HasAny(need...) {
		return fmt.Errorf("%w: %s on workgroup %s", models.ErrPermissionDenied, action, wg.ID.Hex())
	}
	if wg.Archived && blockedWhenArchived[action] {
		return fmt.Errorf("%w: %s on workgroup %s", models.ErrWorkgroupArchived, action, wg.ID.Hex())
	}
	return nil
}

// CanPerform is the boolean form of Require.
func CanPerform(actor Actor, wg models.Workgroup, held roles.Set, action Action) bool {
	return Require(actor, wg, held, action) == nil
}
