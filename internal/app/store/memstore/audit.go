package memstore

import (
	"context"
	"slices"
	"time"

	"github.com/dalemusser/mdregistry/internal/app/store/audit"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Audit keeps audit events in memory. It implements auditlog.EventStore.
type Audit struct {
	db *DB
}

func (a *Audit) Log(ctx context.Context, e audit.Event) error {
	if e.ID.IsZero() {
		e.ID = primitive.NewObjectID()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	return a.db.write(ctx, func(s *state) error {
		s.events = append(s.events, e)
		return nil
	})
}

func matches(e audit.Event, f audit.QueryFilter) bool {
	same := func(want, have *primitive.ObjectID) bool {
		return want == nil || (have != nil && *have == *want)
	}
	switch {
	case !same(f.WorkgroupID, e.WorkgroupID), !same(f.UserID, e.UserID), !same(f.ActorID, e.ActorID):
		return false
	case f.Category != "" && e.Category != f.Category:
		return false
	case f.EventType != "" && e.EventType != f.EventType:
		return false
	case f.StartTime != nil && e.Timestamp.Before(*f.StartTime):
		return false
	case f.EndTime != nil && e.Timestamp.After(*f.EndTime):
		return false
	}
	return true
}

// Query returns matching events newest first, like audit.Store.Query.
func (a *Audit) Query(ctx context.Context, f audit.QueryFilter) ([]audit.Event, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}
	var out []audit.Event
	err := a.db.read(ctx, func(s *state) error {
		for i := len(s.events) - 1; i >= 0; i-- {
			if matches(s.events[i], f) {
				out = append(out, s.events[i])
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	// Equal timestamps keep insertion order reversed, which matches the
	// (timestamp, _id) descending sort for ObjectIDs minted in order.
	slices.SortStableFunc(out, func(x, y audit.Event) int {
		return y.Timestamp.Compare(x.Timestamp)
	})
	return window(out, f.Offset, limit), nil
}

// CountByFilter counts matching events.
func (a *Audit) CountByFilter(ctx context.Context, f audit.QueryFilter) (int64, error) {
	var n int64
	err := a.db.read(ctx, func(s *state) error {
		for _, e := range s.events {
			if matches(e, f) {
				n++
			}
		}
		return nil
	})
	return n, err
}

// Events returns every stored event, oldest first.
func (a *Audit) Events() []audit.Event {
	var out []audit.Event
	_ = a.db.read(context.Background(), func(s *state) error {
		out = slices.Clone(s.events)
		return nil
	})
	return out
}
