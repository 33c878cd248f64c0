// internal/app/features/workgroups/list.go
package workgroups

import (
	"context"
	"net/http"
	"time"

	"github.com/dalemusser/mdregistry/internal/app/system/auditlog"
	"github.com/dalemusser/mdregistry/internal/app/system/normalize"
	"github.com/dalemusser/mdregistry/internal/app/system/paging"
	"github.com/dalemusser/mdregistry/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/pantry/query"
	"go.uber.org/zap"
)

// requestCtx bounds a handler's work and carries the client details the
// audit trail records.
func requestCtx(r *http.Request, budget func() time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(auditlog.WithRequest(r.Context(), r), budget())
}

// ServeList handles GET /workgroups?filter=&page=&pp=.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := requestCtx(r, timeouts.Medium)
	defer cancel()

	filter := normalize.QueryParam(query.Get(r, "filter"))
	page, err := h.Svc.List(ctx, actorFrom(r), filter,
		paging.ParsePage(r),
		paging.ParsePageSize(r, h.PageSize))
	if err != nil {
		h.fail(w, r, "list workgroups", err)
		return
	}
	writeJSON(w, http.StatusOK, newListView(page))
}

// HandleCreate handles POST /workgroups (form: name, definition).
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	if !parseForm(w, r) {
		return
	}
	ctx, cancel := requestCtx(r, timeouts.Short)
	defer cancel()

	wg, err := h.Svc.Create(ctx, actorFrom(r), r.PostForm.Get("name"), r.PostForm.Get("definition"))
	if err != nil {
		h.fail(w, r, "create workgroup", err)
		return
	}

	h.Log.Debug("workgroup created via http", zap.String("workgroup_id", wg.ID.Hex()))
	view := newWorkgroupView(wg)
	w.Header().Set("Location", view.URL)
	writeJSON(w, http.StatusCreated, view)
}
