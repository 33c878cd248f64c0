package testutil

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/dalemusser/mdregistry/internal/app/system/indexes"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// DefaultMongoURI is used when MDREGISTRY_TEST_MONGO_URI is unset.
const DefaultMongoURI = "mongodb://localhost:27017"

// TestContext returns a context with a timeout suitable for a single test.
func TestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 30*time.Second)
}

func mongoURI() string {
	if uri := os.Getenv("MDREGISTRY_TEST_MONGO_URI"); uri != "" {
		return uri
	}
	return DefaultMongoURI
}

// SetupTestClient connects to the test MongoDB deployment, or skips the test
// when none is reachable. The client is disconnected on cleanup.
func SetupTestClient(t *testing.T) *mongo.Client {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().
		ApplyURI(mongoURI()).
		SetServerSelectionTimeout(2*time.Second))
	if err != nil {
		t.Skipf("mongo unavailable: %v", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		t.Skipf("mongo unavailable: %v", err)
	}

	t.Cleanup(func() {
		_ = client.Disconnect(context.Background())
	})
	return client
}

// SetupTestDB returns a fresh, uniquely named database that is dropped when
// the test finishes.
func SetupTestDB(t *testing.T) *mongo.Database {
	t.Helper()

	client := SetupTestClient(t)
	db := client.Database(fmt.Sprintf("mdregistry_test_%s", primitive.NewObjectID().Hex()))

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = db.Drop(ctx)
	})
	return db
}

// SetupTransactionalDB is SetupTestDB for tests that need multi-document
// transactions. It skips when the deployment is a standalone server.
func SetupTransactionalDB(t *testing.T) (*mongo.Client, *mongo.Database) {
	t.Helper()

	db := SetupTestDB(t)
	client := db.Client()

	ctx, cancel := TestContext()
	defer cancel()

	var hello struct {
		SetName string `bson:"setName"`
		Msg     string `bson:"msg"`
	}
	if err := client.Database("admin").RunCommand(ctx, map[string]int{"hello": 1}).Decode(&hello); err != nil {
		t.Skipf("cannot determine topology: %v", err)
	}
	if hello.SetName == "" && hello.Msg != "isdbgrid" {
		t.Skip("transactions need a replica set or sharded cluster")
	}

	// Collections cannot be created implicitly inside a transaction on older servers.
	for _, name := range []string{"workgroups", "workgroup_memberships", "metadata_items", "users", "audit_events"} {
		_ = db.CreateCollection(ctx, name)
	}
	return client, db
}

// EnsureIndexes creates the production index set in db.
func EnsureIndexes(t *testing.T, db *mongo.Database) {
	t.Helper()

	ctx, cancel := TestContext()
	defer cancel()
	if err := indexes.EnsureAll(ctx, db, zap.NewNop()); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}
}
