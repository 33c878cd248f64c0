// Package memstore is an in-memory implementation of every registry store.
// It backs the "memory" store_backend and the service tests.
//
// Transactions are copy-on-write: Run takes the write lock, hands fn a
// private copy of the data, and swaps the copy in only when fn returns nil.
// Reads and writes made outside Run act on the committed data directly and
// are serialized with Run by the same lock. Calling a store method with a
// context that did not come from Run while inside Run deadlocks.
package memstore

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/dalemusser/mdregistry/internal/app/store/audit"
	"github.com/dalemusser/mdregistry/internal/domain/models"
	"github.com/dalemusser/mdregistry/internal/domain/roles"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type memberKey struct {
	workgroup primitive.ObjectID
	user      primitive.ObjectID
	role      roles.Role
}

type state struct {
	workgroups  map[primitive.ObjectID]models.Workgroup
	memberships map[memberKey]models.Membership
	items       map[primitive.ObjectID]models.MetadataItem
	users       map[primitive.ObjectID]models.User
	events      []audit.Event
}

func newState() *state {
	return &state{
		workgroups:  map[primitive.ObjectID]models.Workgroup{},
		memberships: map[memberKey]models.Membership{},
		items:       map[primitive.ObjectID]models.MetadataItem{},
		users:       map[primitive.ObjectID]models.User{},
	}
}

// clone copies the maps. Values are treated as immutable by every writer
// (slices inside them are replaced, never appended to in place).
func (s *state) clone() *state {
	return &state{
		workgroups:  maps.Clone(s.workgroups),
		memberships: maps.Clone(s.memberships),
		items:       maps.Clone(s.items),
		users:       maps.Clone(s.users),
		events:      slices.Clone(s.events),
	}
}

// DB holds the committed data and hands out the per-entity stores.
type DB struct {
	mu   sync.RWMutex
	data *state
}

// New returns an empty database.
func New() *DB {
	return &DB{data: newState()}
}

type txKey struct{}

// Run implements txn.Runner.
func (d *DB) Run(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*state); ok {
		return fn(ctx)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	work := d.data.clone()
	if err := fn(context.WithValue(ctx, txKey{}, work)); err != nil {
		return err
	}
	d.data = work
	return nil
}

// read runs fn against the transaction's copy, or the committed data under
// a read lock.
func (d *DB) read(ctx context.Context, fn func(s *state) error) error {
	if s, ok := ctx.Value(txKey{}).(*state); ok {
		return fn(s)
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	return fn(d.data)
}

// write runs fn against the transaction's copy, or the committed data under
// the write lock. Outside a transaction a failed fn may leave partial
// changes, so every writer validates before it mutates.
func (d *DB) write(ctx context.Context, fn func(s *state) error) error {
	if s, ok := ctx.Value(txKey{}).(*state); ok {
		return fn(s)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return fn(d.data)
}

// Ping always succeeds.
func (d *DB) Ping(context.Context) error { return nil }

// Workgroups returns the workgroup store.
func (d *DB) Workgroups() *Workgroups { return &Workgroups{db: d} }

// Memberships returns the membership store.
func (d *DB) Memberships() *Memberships { return &Memberships{db: d} }

// Items returns the metadata item store.
func (d *DB) Items() *Items { return &Items{db: d} }

// Users returns the user store.
func (d *DB) Users() *Users { return &Users{db: d} }

// Audit returns the audit event store.
func (d *DB) Audit() *Audit { return &Audit{db: d} }

// window returns the rows of all that an offset/limit query would return.
// A negative offset counts as zero and a non-positive limit means no limit.
func window[T any](all []T, offset, limit int64) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= int64(len(all)) {
		return nil
	}
	rest := all[offset:]
	if limit > 0 && limit < int64(len(rest)) {
		rest = rest[:limit]
	}
	return rest
}
