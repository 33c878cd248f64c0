// internal/app/features/workgroups/edit.go
package workgroups

import (
	"net/http"

	"github.com/dalemusser/mdregistry/internal/app/system/timeouts"
)

// HandleEdit handles POST /workgroups/{id}/edit (form: name, definition).
func (h *Handler) HandleEdit(w http.ResponseWriter, r *http.Request) {
	id, ok := workgroupID(w, r)
	if !ok {
		return
	}
	if !parseForm(w, r) {
		return
	}
	ctx, cancel := requestCtx(r, timeouts.Short)
	defer cancel()

	wg, err := h.Svc.Edit(ctx, actorFrom(r), id, r.PostForm.Get("name"), r.PostForm.Get("definition"))
	if err != nil {
		h.fail(w, r, "edit workgroup", err)
		return
	}
	writeJSON(w, http.StatusOK, newWorkgroupView(wg))
}

// HandleToggleArchive handles POST /workgroups/{id}/archive.
func (h *Handler) HandleToggleArchive(w http.ResponseWriter, r *http.Request) {
	id, ok := workgroupID(w, r)
	if !ok {
		return
	}
	ctx, cancel := requestCtx(r, timeouts.Short)
	defer cancel()

	wg, err := h.Svc.ToggleArchive(ctx, actorFrom(r), id)
	if err != nil {
		h.fail(w, r, "toggle archive", err)
		return
	}
	writeJSON(w, http.StatusOK, newWorkgroupView(wg))
}
