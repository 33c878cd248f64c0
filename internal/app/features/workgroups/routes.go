// internal/app/features/workgroups/routes.go
package workgroups

import (
	"github.com/dalemusser/mdregistry/internal/app/system/auth"
	"github.com/dalemusser/mdregistry/internal/app/system/limits"
	"github.com/go-chi/chi/v5"
)

// Routes mounts the workgroup endpoints (typically at "/workgroups").
// Static segments win over {slug} in chi, so "items", "members" and
// "history" are never taken for slugs.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)
		pr.Use(limits.Body(limits.MaxFormSize))

		// LIST / CREATE
		pr.Get("/", h.ServeList)
		pr.Post("/", h.HandleCreate)

		// OVERVIEW
		pr.Get("/{id}", h.ServeOverview)
		pr.Get("/{id}/{slug}", h.ServeOverview)

		// EDIT / ARCHIVE
		pr.Post("/{id}/edit", h.HandleEdit)
		pr.Post("/{id}/archive", h.HandleToggleArchive)

		// ITEMS
		pr.Get("/{id}/items", h.ServeItems)
		pr.Post("/{id}/items/assign", h.HandleAssignItem)

		// MEMBERS
		pr.Get("/{id}/members", h.ServeMembers)
		pr.Post("/{id}/members/add", h.HandleAddMembers)
		pr.Post("/{id}/members/roles", h.HandleChangeRoles)
		pr.Post("/{id}/members/remove", h.HandleRemoveMember)
		pr.Post("/{id}/leave", h.HandleLeave)

		// AUDIT TRAIL
		pr.Get("/{id}/history", h.ServeHistory)
	})

	return r
}
