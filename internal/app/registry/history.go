package registry

import (
	"context"
	"time"

	"github.com/dalemusser/mdregistry/internal/app/policy/workgrouppolicy"
	"github.com/dalemusser/mdregistry/internal/app/store/audit"
	"github.com/dalemusser/mdregistry/internal/app/system/paging"
	"github.com/dalemusser/mdregistry/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// HistoryQuery narrows a workgroup's audit trail. Empty fields match all.
type HistoryQuery struct {
	Category  string
	EventType string
	Since     *time.Time
	Until     *time.Time
	Page      int
	PageSize  int
}

// HistoryEntry is one audit event with the people involved resolved to
// display names. Names are blank for accounts that no longer exist.
type HistoryEntry struct {
	audit.Event
	ActorName string
	UserName  string
}

// HistoryPage is one page of a workgroup's audit trail, newest first.
type HistoryPage struct {
	Workgroup models.Workgroup
	Entries   []HistoryEntry
	Page      paging.Page
}

// History returns the audit trail of a workgroup. Managers of the workgroup
// and registry administrators may read it, archived or not.
func (s *Service) History(ctx context.Context, actor workgrouppolicy.Actor, workgroupID primitive.ObjectID, q HistoryQuery) (HistoryPage, error) {
	wg, err := s.workgroups.GetByID(ctx, workgroupID)
	if err != nil {
		return HistoryPage{}, err
	}
	if _, err := s.authorize(ctx, actor, wg, workgrouppolicy.ActionViewHistory); err != nil {
		s.denied(ctx, actor, &wg.ID, workgrouppolicy.ActionViewHistory, err)
		return HistoryPage{}, err
	}

	page, size := q.Page, q.PageSize
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = s.defaultSize
	}
	out := HistoryPage{
		Workgroup: wg,
		Entries:   []HistoryEntry{},
		Page:      paging.NewPage(page, size, 0),
	}
	if s.events == nil {
		return out, nil
	}

	filter := audit.QueryFilter{
		WorkgroupID: &wg.ID,
		Category:    q.Category,
		EventType:   q.EventType,
		StartTime:   q.Since,
		EndTime:     q.Until,
		Limit:       int64(size),
		Offset:      paging.Offset(page, size),
	}
	total, err := s.events.CountByFilter(ctx, filter)
	if err != nil {
		return HistoryPage{}, err
	}
	events, err := s.events.Query(ctx, filter)
	if err != nil {
		return HistoryPage{}, err
	}
	out.Page = paging.NewPage(page, size, total)

	names := s.displayNames(ctx, events)
	for _, e := range events {
		entry := HistoryEntry{Event: e}
		if e.ActorID != nil {
			entry.ActorName = names[*e.ActorID]
		}
		if e.UserID != nil {
			entry.UserName = names[*e.UserID]
		}
		out.Entries = append(out.Entries, entry)
	}
	return out, nil
}

// displayNames batch-loads the names of every actor and affected user.
// A lookup failure only costs the names.
func (s *Service) displayNames(ctx context.Context, events []audit.Event) map[primitive.ObjectID]string {
	seen := make(map[primitive.ObjectID]bool)
	var ids []primitive.ObjectID
	add := func(id *primitive.ObjectID) {
		if id != nil && !seen[*id] {
			seen[*id] = true
			ids = append(ids, *id)
		}
	}
	for _, e := range events {
		add(e.ActorID)
		add(e.UserID)
	}

	names := make(map[primitive.ObjectID]string, len(ids))
	if len(ids) == 0 {
		return names
	}
	users, err := s.users.GetByIDs(ctx, ids)
	if err != nil {
		s.log.Warn("failed to fetch user names for audit trail", zap.Error(err))
		return names
	}
	for _, u := range users {
		names[u.ID] = u.FullName
	}
	return names
}
