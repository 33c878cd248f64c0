// internal/app/bootstrap/dbdeps.go
package bootstrap

import (
	"context"

	"github.com/dalemusser/mdregistry/internal/app/registry"
	"github.com/dalemusser/mdregistry/internal/app/store/audit"
	itemstore "github.com/dalemusser/mdregistry/internal/app/store/items"
	membershipstore "github.com/dalemusser/mdregistry/internal/app/store/memberships"
	"github.com/dalemusser/mdregistry/internal/app/store/memstore"
	userstore "github.com/dalemusser/mdregistry/internal/app/store/users"
	workgroupstore "github.com/dalemusser/mdregistry/internal/app/store/workgroups"
	"github.com/dalemusser/mdregistry/internal/app/system/auditlog"
	"github.com/dalemusser/mdregistry/internal/app/system/txn"
	"github.com/dalemusser/mdregistry/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// DBDeps holds database/back-end dependencies for the app.
// Exactly one of (MongoClient, MongoDatabase) or Mem is set, per Backend.
type DBDeps struct {
	Backend       string
	MongoClient   *mongo.Client
	MongoDatabase *mongo.Database
	Mem           *memstore.DB
}

// userAccounts is what bootstrap and the auth features need from the user
// store, on top of what the registry service reads.
type userAccounts interface {
	registry.UserRepo
	GetByEmail(ctx context.Context, email string) (models.User, error)
	Create(ctx context.Context, u models.User) (models.User, error)
	GrantCapabilities(ctx context.Context, id primitive.ObjectID, caps ...string) error
}

// eventStore is the audit store: written by the audit logger and read back
// for workgroup history.
type eventStore interface {
	auditlog.EventStore
	registry.EventReader
}

type pinger interface {
	Ping(ctx context.Context) error
}

// storage bundles one backend's implementation of every store.
type storage struct {
	tx          txn.Runner
	workgroups  registry.WorkgroupRepo
	memberships registry.MembershipRepo
	items       registry.ItemRepo
	users       userAccounts
	events      eventStore
	ping        pinger
}

type mongoPinger struct{ client *mongo.Client }

func (p mongoPinger) Ping(ctx context.Context) error {
	return p.client.Ping(ctx, readpref.Primary())
}

// buildStorage selects the stores for deps.Backend.
func buildStorage(deps DBDeps, logger *zap.Logger) storage {
	if deps.Backend == BackendMemory {
		db := deps.Mem
		return storage{
			tx:          db,
			workgroups:  db.Workgroups(),
			memberships: db.Memberships(),
			items:       db.Items(),
			users:       db.Users(),
			events:      db.Audit(),
			ping:        db,
		}
	}
	db := deps.MongoDatabase
	return storage{
		tx:          txn.NewMongo(deps.MongoClient, logger),
		workgroups:  workgroupstore.New(db),
		memberships: membershipstore.New(db),
		items:       itemstore.New(db),
		users:       userstore.New(db),
		events:      audit.New(db),
		ping:        mongoPinger{client: deps.MongoClient},
	}
}

// auditLogger builds the audit logger for the configured modes.
func (s storage) auditLogger(appCfg AppConfig, logger *zap.Logger) *auditlog.Logger {
	return auditlog.New(s.events, logger, auditlog.Config{
		Admin:    appCfg.AuditLogAdmin,
		Security: appCfg.AuditLogSecurity,
	})
}
