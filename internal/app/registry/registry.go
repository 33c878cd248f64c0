// Package registry is the service layer of the workgroup registry. It owns
// every rule that spans more than one store: authorization, the archived
// check, transactions and auditing. Handlers call it; it calls stores
// through the small interfaces below.
package registry

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/mdregistry/internal/app/policy/workgrouppolicy"
	"github.com/dalemusser/mdregistry/internal/app/store/audit"
	"github.com/dalemusser/mdregistry/internal/app/system/auditlog"
	"github.com/dalemusser/mdregistry/internal/app/system/cache"
	"github.com/dalemusser/mdregistry/internal/app/system/paging"
	"github.com/dalemusser/mdregistry/internal/app/system/sortopts"
	"github.com/dalemusser/mdregistry/internal/app/system/txn"
	"github.com/dalemusser/mdregistry/internal/domain/models"
	"github.com/dalemusser/mdregistry/internal/domain/roles"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// WorkgroupRepo stores workgroups.
type WorkgroupRepo interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (models.Workgroup, error)
	Create(ctx context.Context, wg models.Workgroup) (models.Workgroup, error)
	// Lock re-reads the workgroup inside the current transaction and makes
	// concurrent writers of the same workgroup conflict with it.
	Lock(ctx context.Context, id primitive.ObjectID) (models.Workgroup, error)
	SetArchived(ctx context.Context, id primitive.ObjectID, archived bool) (models.Workgroup, error)
	UpdateInfo(ctx context.Context, id primitive.ObjectID, name, definition string) (models.Workgroup, error)
	List(ctx context.Context, filter string, offset, limit int64) ([]models.Workgroup, error)
	Count(ctx context.Context, filter string) (int64, error)
}

// MembershipRepo stores (workgroup, user, role) triples.
type MembershipRepo interface {
	Add(ctx context.Context, workgroupID, userID primitive.ObjectID, role roles.Role) error
	Remove(ctx context.Context, workgroupID, userID primitive.ObjectID, role roles.Role) error
	RemoveUser(ctx context.Context, workgroupID, userID primitive.ObjectID) (int64, error)
	RolesOf(ctx context.Context, workgroupID, userID primitive.ObjectID) (roles.Set, error)
	ListByWorkgroup(ctx context.Context, workgroupID primitive.ObjectID) ([]models.Membership, error)
}

// ItemRepo stores metadata items.
type ItemRepo interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (models.MetadataItem, error)
	ListByWorkgroup(ctx context.Context, workgroupID primitive.ObjectID, order sortopts.Option, offset, limit int64) ([]models.MetadataItem, error)
	CountByWorkgroup(ctx context.Context, workgroupID primitive.ObjectID) (int64, error)
	StatusCounts(ctx context.Context, workgroupID primitive.ObjectID) ([]models.StatusCount, error)
	SetWorkgroup(ctx context.Context, itemID, workgroupID primitive.ObjectID) error
}

// UserRepo reads user accounts.
type UserRepo interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (models.User, error)
	GetByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.User, error)
}

// EventReader reads back the audit trail.
type EventReader interface {
	Query(ctx context.Context, filter audit.QueryFilter) ([]audit.Event, error)
	CountByFilter(ctx context.Context, filter audit.QueryFilter) (int64, error)
}

// Deps wires a Service.
type Deps struct {
	Tx          txn.Runner
	Workgroups  WorkgroupRepo
	Memberships MembershipRepo
	Items       ItemRepo
	Users       UserRepo
	Audit       *auditlog.Logger
	Events      EventReader
	Logger      *zap.Logger

	// CountsTTL is how long overview status counts are cached. Zero disables
	// the cache.
	CountsTTL time.Duration
	// DefaultPageSize applies when a listing request carries no usable size.
	DefaultPageSize int
}

// Service implements the registry operations.
type Service struct {
	tx          txn.Runner
	workgroups  WorkgroupRepo
	members     MembershipRepo
	items       ItemRepo
	users       UserRepo
	audit       *auditlog.Logger
	events      EventReader
	log         *zap.Logger
	counts      *cache.Cache[[]models.StatusCount]
	defaultSize int
}

// New builds a Service. Audit and Events may be nil; without Events the
// history operation reports an empty trail.
func New(d Deps) *Service {
	log := d.Logger
	if log == nil {
		log = zap.NewNop()
	}
	size := d.DefaultPageSize
	if size <= 0 {
		size = paging.DefaultPageSize
	}
	return &Service{
		tx:          d.Tx,
		workgroups:  d.Workgroups,
		members:     d.Memberships,
		items:       d.Items,
		users:       d.Users,
		audit:       d.Audit,
		events:      d.Events,
		log:         log,
		counts:      cache.New[[]models.StatusCount]("status_counts", d.CountsTTL, log),
		defaultSize: size,
	}
}

// authorize loads the actor's roles (inside ctx's transaction, if any) and
// asks the policy.
func (s *Service) authorize(ctx context.Context, actor workgrouppolicy.Actor, wg models.Workgroup, action workgrouppolicy.Action) (roles.Set, error) {
	held := roles.NewSet()
	if actor.Authenticated {
		var err error
		held, err = s.members.RolesOf(ctx, wg.ID, actor.UserID)
		if err != nil {
			return nil, err
		}
	}
	return held, workgrouppolicy.Require(actor, wg, held, action)
}

// denied records a permission failure once the operation has returned.
func (s *Service) denied(ctx context.Context, actor workgrouppolicy.Actor, wgID *primitive.ObjectID, action workgrouppolicy.Action, err error) {
	if !errors.Is(err, models.ErrPermissionDenied) {
		return
	}
	var actorID *primitive.ObjectID
	if actor.Authenticated {
		id := actor.UserID
		actorID = &id
	}
	s.log.Info("permission denied",
		zap.String("action", string(action)),
		zap.Stringp("workgroup_id", hexp(wgID)),
		zap.Error(err))
	s.audit.PermissionDenied(ctx, actorID, wgID, string(action), err.Error())
}

func hexp(id *primitive.ObjectID) *string {
	if id == nil {
		return nil
	}
	h := id.Hex()
	return &h
}

// CanPerform reports whether actor may perform action on the workgroup as it
// is stored now.
func (s *Service) CanPerform(ctx context.Context, actor workgrouppolicy.Actor, workgroupID primitive.ObjectID, action workgrouppolicy.Action) (bool, error) {
	wg, err := s.workgroups.GetByID(ctx, workgroupID)
	if err != nil {
		return false, err
	}
	_, err = s.authorize(ctx, actor, wg, action)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, models.ErrPermissionDenied), errors.Is(err, models.ErrWorkgroupArchived):
		return false, nil
	}
	return false, err
}
