// internal/app/features/workgroups/history.go
package workgroups

import (
	"net/http"
	"strings"
	"time"

	"github.com/dalemusser/mdregistry/internal/app/registry"
	"github.com/dalemusser/mdregistry/internal/app/system/paging"
	"github.com/dalemusser/mdregistry/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/pantry/query"
)

const dateLayout = "2006-01-02"

// parseDay reads a YYYY-MM-DD query value. Unparseable dates are ignored.
func parseDay(r *http.Request, key string) *time.Time {
	v := strings.TrimSpace(query.Get(r, key))
	if v == "" {
		return nil
	}
	t, err := time.Parse(dateLayout, v)
	if err != nil {
		return nil
	}
	return &t
}

// ServeHistory handles
// GET /workgroups/{id}/history?category=&event_type=&start_date=&end_date=&page=&pp=.
func (h *Handler) ServeHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := workgroupID(w, r)
	if !ok {
		return
	}
	ctx, cancel := requestCtx(r, timeouts.Long)
	defer cancel()

	q := registry.HistoryQuery{
		Category:  strings.TrimSpace(query.Get(r, "category")),
		EventType: strings.TrimSpace(query.Get(r, "event_type")),
		Since:     parseDay(r, "start_date"),
		Page:      paging.ParsePage(r),
		PageSize:  paging.ParsePageSize(r, h.PageSize),
	}
	if end := parseDay(r, "end_date"); end != nil {
		// Inclusive: through the end of that day.
		eod := end.Add(24*time.Hour - time.Nanosecond)
		q.Until = &eod
	}

	page, err := h.Svc.History(ctx, actorFrom(r), id, q)
	if err != nil {
		h.fail(w, r, "history", err)
		return
	}
	writeJSON(w, http.StatusOK, newHistoryView(page))
}
