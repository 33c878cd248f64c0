// internal/app/features/workgroups/members.go
package workgroups

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/dalemusser/mdregistry/internal/app/system/timeouts"
	"github.com/dalemusser/mdregistry/internal/domain/models"
	"github.com/dalemusser/mdregistry/internal/domain/roles"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ServeMembers handles GET /workgroups/{id}/members.
func (h *Handler) ServeMembers(w http.ResponseWriter, r *http.Request) {
	id, ok := workgroupID(w, r)
	if !ok {
		return
	}
	ctx, cancel := requestCtx(r, timeouts.Medium)
	defer cancel()

	ms, err := h.Svc.Members(ctx, actorFrom(r), id)
	if err != nil {
		h.fail(w, r, "list members", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"members": newMemberViews(ms)})
}

// formRoles reads every "role" value. Any unknown value fails the whole
// request: a typo must not shrink a role set, and an empty set on
// /members/roles removes the member.
func formRoles(r *http.Request) ([]roles.Role, error) {
	set, rejected := roles.ParseAll(r.PostForm["role"])
	if len(rejected) > 0 {
		return nil, fmt.Errorf("%w: %s", models.ErrInvalidRole, strings.Join(rejected, ", "))
	}
	return set.Roles(), nil
}

func formUserIDs(r *http.Request) ([]primitive.ObjectID, bool) {
	vals := r.PostForm["user"]
	out := make([]primitive.ObjectID, 0, len(vals))
	for _, v := range vals {
		id, err := primitive.ObjectIDFromHex(v)
		if err != nil {
			return nil, false
		}
		out = append(out, id)
	}
	return out, true
}

func formUserID(w http.ResponseWriter, r *http.Request) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(r.PostForm.Get("user"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad user id")
		return primitive.NilObjectID, false
	}
	return id, true
}

// HandleAddMembers handles POST /workgroups/{id}/members/add
// (form: user and role, each repeatable). Every user gets every role.
func (h *Handler) HandleAddMembers(w http.ResponseWriter, r *http.Request) {
	id, ok := workgroupID(w, r)
	if !ok {
		return
	}
	if !parseForm(w, r) {
		return
	}
	users, ok := formUserIDs(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "bad user id")
		return
	}
	rs, err := formRoles(r)
	if err != nil {
		h.fail(w, r, "add members", err)
		return
	}
	ctx, cancel := requestCtx(r, timeouts.Long)
	defer cancel()

	if err := h.Svc.AddMembersWithRoles(ctx, actorFrom(r), id, users, rs); err != nil {
		h.fail(w, r, "add members", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleChangeRoles handles POST /workgroups/{id}/members/roles
// (form: user, role repeatable). The user ends up with exactly the posted
// roles; posting none removes them.
func (h *Handler) HandleChangeRoles(w http.ResponseWriter, r *http.Request) {
	id, ok := workgroupID(w, r)
	if !ok {
		return
	}
	if !parseForm(w, r) {
		return
	}
	userID, ok := formUserID(w, r)
	if !ok {
		return
	}
	rs, err := formRoles(r)
	if err != nil {
		h.fail(w, r, "change roles", err)
		return
	}
	ctx, cancel := requestCtx(r, timeouts.Short)
	defer cancel()

	if err := h.Svc.ChangeUserRoles(ctx, actorFrom(r), id, userID, rs); err != nil {
		h.fail(w, r, "change roles", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleRemoveMember handles POST /workgroups/{id}/members/remove (form: user).
func (h *Handler) HandleRemoveMember(w http.ResponseWriter, r *http.Request) {
	id, ok := workgroupID(w, r)
	if !ok {
		return
	}
	if !parseForm(w, r) {
		return
	}
	userID, ok := formUserID(w, r)
	if !ok {
		return
	}
	ctx, cancel := requestCtx(r, timeouts.Short)
	defer cancel()

	if err := h.Svc.RemoveMember(ctx, actorFrom(r), id, userID); err != nil {
		h.fail(w, r, "remove member", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleLeave handles POST /workgroups/{id}/leave.
func (h *Handler) HandleLeave(w http.ResponseWriter, r *http.Request) {
	id, ok := workgroupID(w, r)
	if !ok {
		return
	}
	ctx, cancel := requestCtx(r, timeouts.Short)
	defer cancel()

	if err := h.Svc.Leave(ctx, actorFrom(r), id); err != nil {
		h.fail(w, r, "leave workgroup", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
