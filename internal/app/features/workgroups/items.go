// internal/app/features/workgroups/items.go
package workgroups

import (
	"net/http"

	"github.com/dalemusser/mdregistry/internal/app/system/paging"
	"github.com/dalemusser/mdregistry/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/pantry/query"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ServeItems handles GET /workgroups/{id}/items?sort=&page=&pp=.
// Display parameters never fail the request: bad values fall back to their
// defaults.
func (h *Handler) ServeItems(w http.ResponseWriter, r *http.Request) {
	id, ok := workgroupID(w, r)
	if !ok {
		return
	}
	ctx, cancel := requestCtx(r, timeouts.Medium)
	defer cancel()

	page, err := h.Svc.ListItems(ctx, actorFrom(r), id,
		query.Get(r, "sort"),
		paging.ParsePage(r),
		paging.ParsePageSize(r, h.PageSize))
	if err != nil {
		h.fail(w, r, "list items", err)
		return
	}
	writeJSON(w, http.StatusOK, newItemsView(page))
}

// HandleAssignItem handles POST /workgroups/{id}/items/assign (form: item).
func (h *Handler) HandleAssignItem(w http.ResponseWriter, r *http.Request) {
	id, ok := workgroupID(w, r)
	if !ok {
		return
	}
	if !parseForm(w, r) {
		return
	}
	itemID, err := primitive.ObjectIDFromHex(r.PostForm.Get("item"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad item id")
		return
	}
	ctx, cancel := requestCtx(r, timeouts.Short)
	defer cancel()

	if err := h.Svc.AssignItem(ctx, actorFrom(r), id, itemID); err != nil {
		h.fail(w, r, "assign item", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
