// internal/app/system/txn/txn.go
//
// Package txn runs a function inside a MongoDB multi-document transaction.
// Every mutation in the registry goes through a Runner so that role changes,
// archive toggles and workgroup creation commit as a unit.
package txn

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// ErrUnsupported is returned when the deployment cannot run transactions
// (standalone mongod). The registry refuses to mutate without one.
var ErrUnsupported = errors.New("transactions not supported by this deployment")

// Runner executes fn atomically. Implementations must release their
// session/lock on every exit path and must let a nested Run join the
// outer transaction.
type Runner interface {
	Run(ctx context.Context, fn func(ctx context.Context) error) error
}

// Mongo runs transactions on a mongo.Client.
type Mongo struct {
	client *mongo.Client
	log    *zap.Logger
}

// NewMongo creates a transaction runner for the given client.
func NewMongo(client *mongo.Client, log *zap.Logger) *Mongo {
	if log == nil {
		log = zap.NewNop()
	}
	return &Mongo{client: client, log: log}
}

// Run starts a session, runs fn in a transaction and ends the session.
// The driver retries fn on transient transaction errors (write conflicts),
// so fn must be safe to re-run. If ctx already carries a session, fn joins it.
func (m *Mongo) Run(ctx context.Context, fn func(ctx context.Context) error) error {
	if mongo.SessionFromContext(ctx) != nil {
		return fn(ctx)
	}

	sess, err := m.client.StartSession()
	if err != nil {
		if IsNotSupported(err) {
			return fmt.Errorf("%w: %v", ErrUnsupported, err)
		}
		return err
	}
	defer sess.EndSession(context.Background())

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	if err != nil && IsNotSupported(err) {
		m.log.Error("transaction rejected by server", zap.Error(err))
		return fmt.Errorf("%w: %v", ErrUnsupported, err)
	}
	return err
}

// IsNotSupported reports whether err means the server cannot run
// transactions or sessions.
func IsNotSupported(err error) bool {
	if err == nil {
		return false
	}

	var ce mongo.CommandError
	if errors.As(err, &ce) {
		switch ce.Code {
		case 20, // IllegalOperation
			51,  // transaction numbers only allowed on replica set members
			263: // OperationNotSupportedInTransaction
			return true
		}
	}

	// Drivers report missing session support only as text.
	msg := strings.ToLower(err.Error())
	has := func(s string) bool { return strings.Contains(msg, s) }
	switch {
	case has("transaction numbers are only allowed on a replica set member"):
		return true
	case has("does not support sessions"), has("sessions are not supported"):
		return true
	}
	return false
}
