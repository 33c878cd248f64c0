// internal/app/features/workgroups/overview.go
package workgroups

import (
	"net/http"

	"github.com/dalemusser/mdregistry/internal/app/system/slug"
	"github.com/dalemusser/mdregistry/internal/app/system/timeouts"
	"github.com/go-chi/chi/v5"
)

// ServeOverview handles GET /workgroups/{id} and /workgroups/{id}/{slug}.
// A missing slug, or one that is not a prefix of the name's slug, redirects
// to the canonical URL. Access is checked first so the redirect never leaks
// a name.
func (h *Handler) ServeOverview(w http.ResponseWriter, r *http.Request) {
	id, ok := workgroupID(w, r)
	if !ok {
		return
	}
	ctx, cancel := requestCtx(r, timeouts.Medium)
	defer cancel()

	ov, err := h.Svc.Overview(ctx, actorFrom(r), id)
	if err != nil {
		h.fail(w, r, "workgroup overview", err)
		return
	}

	if !slug.Matches(chi.URLParam(r, "slug"), ov.Workgroup.Name) {
		if target := canonicalURL(ov.Workgroup); target != r.URL.Path {
			http.Redirect(w, r, target, http.StatusFound)
			return
		}
	}

	writeJSON(w, http.StatusOK, newOverviewView(ov))
}
