// internal/app/bootstrap/db.go
package bootstrap

import (
	"context"
	"fmt"

	"github.com/dalemusser/mdregistry/internal/app/store/memstore"
	"github.com/dalemusser/mdregistry/internal/app/system/indexes"
	"github.com/dalemusser/mdregistry/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/config"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// ConnectDB opens the configured backend. For Mongo it connects, pings the
// primary and warns when the deployment is not a replica set, because every
// registry mutation needs a transaction.
func ConnectDB(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) (DBDeps, error) {
	if appCfg.StoreBackend == BackendMemory {
		logger.Info("using in-memory store")
		return DBDeps{Backend: BackendMemory, Mem: memstore.New()}, nil
	}

	connCtx, cancel := context.WithTimeout(ctx, timeouts.Long())
	defer cancel()

	client, err := mongo.Connect(connCtx, options.Client().ApplyURI(appCfg.MongoURI))
	if err != nil {
		logger.Error("MongoDB connect failed", zap.Error(err))
		return DBDeps{}, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(connCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		logger.Error("MongoDB ping failed", zap.Error(err))
		return DBDeps{}, fmt.Errorf("ping mongo: %w", err)
	}

	var hello struct {
		SetName string `bson:"setName"`
	}
	if err := client.Database("admin").RunCommand(connCtx, bson.D{{Key: "hello", Value: 1}}).Decode(&hello); err == nil && hello.SetName == "" {
		logger.Warn("MongoDB is not a replica set; registry mutations will fail (use store_backend=memory for local work)")
	}

	logger.Info("connected to MongoDB",
		zap.String("database", appCfg.MongoDatabase),
		zap.String("replica_set", hello.SetName))

	return DBDeps{
		Backend:       BackendMongo,
		MongoClient:   client,
		MongoDatabase: client.Database(appCfg.MongoDatabase),
	}, nil
}

// EnsureSchema sets up indexes. The memory backend has none.
func EnsureSchema(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if deps.Backend != BackendMongo {
		return nil
	}
	ictx, cancel := context.WithTimeout(ctx, timeouts.Long())
	defer cancel()
	if err := indexes.EnsureAll(ictx, deps.MongoDatabase, logger); err != nil {
		logger.Error("index setup failed", zap.Error(err))
		return err
	}
	return nil
}
