// internal/app/system/indexes/indexes.go
package indexes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

/*
EnsureAll is called at startup. Each ensure* function is idempotent.
We aggregate errors so any problem is visible and startup can fail fast.
*/
func EnsureAll(ctx context.Context, db *mongo.Database, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	var problems []string

	sets := []struct {
		name   string
		ensure func(context.Context, *mongo.Database, *zap.Logger) error
	}{
		{"users", ensureUsers},
		{"workgroups", ensureWorkgroups},
		{"workgroup_memberships", ensureWorkgroupMemberships},
		{"metadata_items", ensureMetadataItems},
		{"audit_events", ensureAuditEvents},
	}
	for _, s := range sets {
		if err := s.ensure(ctx, db, logger); err != nil {
			problems = append(problems, s.name+": "+err.Error())
		}
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

/* -------------------------------------------------------------------------- */
/* Core helper: reconcile a set of desired indexes for one collection         */
/* -------------------------------------------------------------------------- */

type existingIndex struct {
	Name   string `bson:"name"`
	Key    bson.D `bson:"key"`
	Unique *bool  `bson:"unique,omitempty"`
}

func keySig(keys bson.D) string {
	parts := make([]string, 0, len(keys))
	for _, kv := range keys {
		parts = append(parts, fmt.Sprintf("%s:%v", kv.Key, kv.Value))
	}
	return strings.Join(parts, ", ")
}

func sameBoolPtr(a, b *bool) bool {
	av := false
	bv := false
	if a != nil {
		av = *a
	}
	if b != nil {
		bv = *b
	}
	return av == bv
}

// Best-effort duplicate-detector (works cross-vendors)
func isDuplicateKeyErr(err error) bool {
	if err == nil {
		return false
	}
	var we mongo.WriteException
	if errors.As(err, &we) {
		for _, e := range we.WriteErrors {
			if e.Code == 11000 { // E11000 duplicate key error index
				return true
			}
		}
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && ce.Code == 11000 {
		return true
	}
	s := err.Error()
	return strings.Contains(s, "E11000") || strings.Contains(strings.ToLower(s), "duplicate key")
}

// Mongo/DocDB sometimes returns IndexOptionsConflict when an index with the
// same keys already exists under a different name (or options differ).
func isOptionsConflictErr(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "IndexOptionsConflict")
}

func listExisting(ctx context.Context, coll *mongo.Collection, logger *zap.Logger) map[string]existingIndex {
	existing := map[string]existingIndex{} // sig -> index
	cur, err := coll.Indexes().List(ctx)
	if err != nil {
		return existing
	}
	defer cur.Close(ctx)
	for cur.Next(ctx) {
		var idx existingIndex
		if err := cur.Decode(&idx); err != nil {
			logger.Warn("failed to decode existing index",
				zap.String("collection", coll.Name()),
				zap.Error(err))
			continue
		}
		existing[keySig(idx.Key)] = idx
	}
	return existing
}

func createErr(coll *mongo.Collection, name string, unique bool, err error) string {
	if isDuplicateKeyErr(err) && unique {
		return fmt.Sprintf("%s(%s): cannot create unique index (duplicates present)", coll.Name(), name)
	}
	return fmt.Sprintf("%s(%s): %v", coll.Name(), name, err)
}

func ensureIndexSet(ctx context.Context, coll *mongo.Collection, logger *zap.Logger, models []mongo.IndexModel) error {
	var errs []string

	for _, m := range models {
		var desiredName string
		var desiredUnique *bool
		if m.Options != nil {
			if m.Options.Name != nil {
				desiredName = *m.Options.Name
			}
			if m.Options.Unique != nil {
				desiredUnique = m.Options.Unique
			}
		}
		unique := desiredUnique != nil && *desiredUnique
		desiredSig := keySig(m.Keys.(bson.D))

		start := time.Now()
		log := logger.With(
			zap.String("collection", coll.Name()),
			zap.String("name", desiredName),
			zap.String("keys", desiredSig),
			zap.Bool("unique", unique))
		log.Debug("ensuring index")

		ex, ok := listExisting(ctx, coll, logger)[desiredSig]
		if ok && sameBoolPtr(desiredUnique, ex.Unique) && (desiredName == "" || ex.Name == desiredName) {
			log.Debug("reusing existing index", zap.Duration("took", time.Since(start)))
			continue
		}

		// Same keys under another name or with different options: drop & recreate.
		if ok {
			if _, err := coll.Indexes().DropOne(ctx, ex.Name); err != nil {
				log.Warn("drop existing index failed", zap.String("existing", ex.Name), zap.Error(err))
				errs = append(errs, fmt.Sprintf("%s(%s): drop failed: %v", coll.Name(), desiredName, err))
				continue
			}
		}

		created, err := coll.Indexes().CreateOne(ctx, m)
		if err != nil && isOptionsConflictErr(err) {
			// Lost a race with another instance; take whatever now exists.
			if again, found := listExisting(ctx, coll, logger)[desiredSig]; found && sameBoolPtr(desiredUnique, again.Unique) {
				log.Info("reusing existing index (post-conflict)", zap.String("existing", again.Name))
				continue
			}
		}
		if err != nil {
			log.Warn("index ensure failed", zap.Duration("took", time.Since(start)), zap.Error(err))
			errs = append(errs, createErr(coll, desiredName, unique, err))
			continue
		}
		log.Info("index ensured",
			zap.String("created_name", created),
			zap.Bool("recreated", ok),
			zap.Duration("took", time.Since(start)))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

/* -------------------------------------------------------------------------- */
/* Collection-specific index sets                                              */
/* -------------------------------------------------------------------------- */

func ensureUsers(ctx context.Context, db *mongo.Database, logger *zap.Logger) error {
	return ensureIndexSet(ctx, db.Collection("users"), logger, []mongo.IndexModel{
		// Email is the bootstrap lookup key for the registry administrator
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_users_email"),
		},
		{
			Keys:    bson.D{{Key: "full_name_ci", Value: 1}, {Key: "_id", Value: 1}},
			Options: options.Index().SetName("idx_users_fullnameci_id"),
		},
	})
}

func ensureWorkgroups(ctx context.Context, db *mongo.Database, logger *zap.Logger) error {
	return ensureIndexSet(ctx, db.Collection("workgroups"), logger, []mongo.IndexModel{
		// Registry listing is ordered by folded name
		{
			Keys:    bson.D{{Key: "name_ci", Value: 1}, {Key: "_id", Value: 1}},
			Options: options.Index().SetName("idx_workgroups_nameci_id"),
		},
		{
			Keys:    bson.D{{Key: "archived", Value: 1}, {Key: "name_ci", Value: 1}},
			Options: options.Index().SetName("idx_workgroups_archived_nameci"),
		},
	})
}

func ensureWorkgroupMemberships(ctx context.Context, db *mongo.Database, logger *zap.Logger) error {
	return ensureIndexSet(ctx, db.Collection("workgroup_memberships"), logger, []mongo.IndexModel{
		// One document per (workgroup, user, role). Also serves rolesOf lookups.
		{
			Keys: bson.D{
				{Key: "workgroup_id", Value: 1},
				{Key: "user_id", Value: 1},
				{Key: "role", Value: 1},
			},
			Options: options.Index().SetUnique(true).SetName("uniq_wgm_workgroup_user_role"),
		},
		// "which workgroups is this user in"
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "workgroup_id", Value: 1}},
			Options: options.Index().SetName("idx_wgm_user_workgroup"),
		},
	})
}

func ensureMetadataItems(ctx context.Context, db *mongo.Database, logger *zap.Logger) error {
	return ensureIndexSet(ctx, db.Collection("metadata_items"), logger, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "uuid", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_items_uuid"),
		},
		// One index per listing sort; _id breaks ties
		{
			Keys: bson.D{
				{Key: "workgroup_id", Value: 1},
				{Key: "modified", Value: -1},
				{Key: "_id", Value: -1},
			},
			Options: options.Index().SetName("idx_items_wg_modified_id"),
		},
		{
			Keys: bson.D{
				{Key: "workgroup_id", Value: 1},
				{Key: "name_ci", Value: 1},
				{Key: "_id", Value: 1},
			},
			Options: options.Index().SetName("idx_items_wg_nameci_id"),
		},
		{
			Keys: bson.D{
				{Key: "workgroup_id", Value: 1},
				{Key: "status", Value: 1},
				{Key: "_id", Value: 1},
			},
			Options: options.Index().SetName("idx_items_wg_status_id"),
		},
	})
}

func ensureAuditEvents(ctx context.Context, db *mongo.Database, logger *zap.Logger) error {
	return ensureIndexSet(ctx, db.Collection("audit_events"), logger, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "timestamp", Value: -1}},
			Options: options.Index().SetName("idx_audit_timestamp"),
		},
		{
			Keys:    bson.D{{Key: "workgroup_id", Value: 1}, {Key: "timestamp", Value: -1}},
			Options: options.Index().SetName("idx_audit_workgroup_timestamp"),
		},
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "timestamp", Value: -1}},
			Options: options.Index().SetName("idx_audit_user_timestamp"),
		},
		{
			Keys: bson.D{
				{Key: "category", Value: 1},
				{Key: "event_type", Value: 1},
				{Key: "timestamp", Value: -1},
			},
			Options: options.Index().SetName("idx_audit_category_type_timestamp"),
		},
	})
}
