// internal/app/system/indexes/indexes.go
package indexes

// session_id on statements is the derived "<userId>_<expiry>" id;
// project_sessions holds brainstorming and writer workspaces and is
// unrelated to it.

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// EnsureAll reconciles every collection's indexes at startup. Each set is
// idempotent; failures from all collections are joined so startup can fail
// with the full picture.
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	var errs []error
	for _, set := range indexSets {
		if err := ensureIndexSet(ctx, db.Collection(set.collection), set.indexes); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", set.collection, err))
		}
	}
	return errors.Join(errs...)
}

type existingIndex struct {
	Name   string `bson:"name"`
	Key    bson.D `bson:"key"`
	Unique bool   `bson:"unique,omitempty"`
}

func keySig(keys bson.D) string {
	parts := make([]string, 0, len(keys))
	for _, kv := range keys {
		parts = append(parts, fmt.Sprintf("%s:%v", kv.Key, kv.Value))
	}
	return strings.Join(parts, ", ")
}

// listIndexes returns the collection's indexes keyed by key signature.
// A collection that does not exist yet has none.
func listIndexes(ctx context.Context, coll *mongo.Collection) (map[string]existingIndex, error) {
	cur, err := coll.Indexes().List(ctx)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := map[string]existingIndex{}
	for cur.Next(ctx) {
		var idx existingIndex
		if err := cur.Decode(&idx); err != nil {
			zap.L().Warn("failed to decode existing index",
				zap.String("collection", coll.Name()), zap.Error(err))
			continue
		}
		out[keySig(idx.Key)] = idx
	}
	return out, cur.Err()
}

// ensureIndexSet creates each desired index unless one with the same keys
// and uniqueness already exists. An existing index whose uniqueness differs
// is dropped and rebuilt; building a unique index over duplicate data fails
// and is reported.
func ensureIndexSet(ctx context.Context, coll *mongo.Collection, models []mongo.IndexModel) error {
	existing, err := listIndexes(ctx, coll)
	if err != nil {
		zap.L().Warn("listing indexes failed; creating all",
			zap.String("collection", coll.Name()), zap.Error(err))
		existing = map[string]existingIndex{}
	}

	var errs []error
	for _, m := range models {
		name, unique := "", false
		if m.Options != nil {
			if m.Options.Name != nil {
				name = *m.Options.Name
			}
			unique = m.Options.Unique != nil && *m.Options.Unique
		}
		sig := keySig(m.Keys.(bson.D))
		start := time.Now()
		fields := []zap.Field{
			zap.String("collection", coll.Name()),
			zap.String("name", name),
			zap.String("keys", sig),
			zap.Bool("unique", unique),
		}

		if ex, ok := existing[sig]; ok {
			if ex.Unique == unique {
				zap.L().Debug("index already present", fields...)
				continue
			}
			if _, err := coll.Indexes().DropOne(ctx, ex.Name); err != nil {
				errs = append(errs, fmt.Errorf("%s: drop %s: %w", name, ex.Name, err))
				continue
			}
			zap.L().Info("dropped index with different options", append(fields, zap.String("old_name", ex.Name))...)
		}

		if _, err := coll.Indexes().CreateOne(ctx, m); err != nil {
			if unique && wafflemongo.IsDup(err) {
				errs = append(errs, fmt.Errorf("%s: cannot create unique index, duplicates present: %w", name, err))
			} else {
				errs = append(errs, fmt.Errorf("%s: %w", name, err))
			}
			zap.L().Warn("index ensure failed", append(fields, zap.Error(err))...)
			continue
		}
		zap.L().Info("index ensured", append(fields, zap.Duration("took", time.Since(start)))...)
	}

	return errors.Join(errs...)
}

type collectionIndexes struct {
	collection string
	indexes    []mongo.IndexModel
}

type field struct {
	name  string
	order int
}

func asc(name string) field  { return field{name, 1} }
func desc(name string) field { return field{name, -1} }

func index(name string, fields ...field) mongo.IndexModel {
	keys := make(bson.D, 0, len(fields))
	for _, f := range fields {
		keys = append(keys, bson.E{Key: f.name, Value: f.order})
	}
	return mongo.IndexModel{Keys: keys, Options: options.Index().SetName(name)}
}

func unique(m mongo.IndexModel) mongo.IndexModel {
	m.Options.SetUnique(true)
	return m
}

func sparse(m mongo.IndexModel) mongo.IndexModel {
	m.Options.SetSparse(true)
	return m
}

var indexSets = []collectionIndexes{
	{"users", []mongo.IndexModel{
		// admin seeding
		index("idx_users_email", asc("email")),
		index("idx_users_role_status_fullnameci_id", asc("role"), asc("status"), asc("full_name_ci"), asc("_id")),
	}},
	{"statements", []mongo.IndexModel{
		// One sequence number per (user, session). Append retries on conflict.
		unique(index("uniq_statements_user_session_sequence", asc("user_id"), asc("session_id"), asc("sequence"))),
		// earliest statement of a session, for durations
		index("idx_statements_user_session_ts", asc("user_id"), asc("session_id"), asc("timestamp")),
		index("idx_statements_user_ts", asc("user_id"), desc("timestamp")),
		index("idx_statements_ts", desc("timestamp")),
		sparse(index("idx_statements_project", asc("context.extensions.projectId"))),
	}},
	{"project_sessions", []mongo.IndexModel{
		index("idx_projects_owner_created", asc("owner_id"), desc("created_at")),
		// stale cleanup scan
		index("idx_projects_activity_created", asc("last_activity_at"), asc("created_at")),
	}},
	{"audit_logs", []mongo.IndexModel{
		index("idx_audit_created", desc("created_at")),
		index("idx_audit_category_created", asc("category"), desc("created_at")),
		index("idx_audit_user_created", asc("user_id"), desc("created_at")),
	}},
}
