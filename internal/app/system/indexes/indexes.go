// internal/app/system/indexes/indexes.go
package indexes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dalemusser/positivevibes/internal/app/system/validators"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// Index names referenced outside this package.
const (
	UsersEmailIndex = "uniq_users_email_ci"
	VibesWeekIndex  = "uniq_vibes_user_week"
)

/*
EnsureAll is called at startup and by `vibesctl indexes ensure`. Each ensure*
function is idempotent. Problems are aggregated so every one is visible and
startup can fail fast.
*/
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	var problems []string

	sets := []struct {
		name string
		fn   func(context.Context, *mongo.Database) error
	}{
		{validators.UsersCollection, ensureUsers},
		{validators.VibesCollection, ensureVibes},
		{validators.ThemesCollection, ensureThemes},
		{validators.SessionsCollection, ensureSessions},
		{validators.PasswordResetsCollection, ensurePasswordResets},
		{validators.AuditCollection, ensureAudit},
	}
	for _, s := range sets {
		if err := s.fn(ctx, db); err != nil {
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
	Name               string `bson:"name"`
	Key                bson.D `bson:"key"`
	Unique             *bool  `bson:"unique,omitempty"`
	ExpireAfterSeconds *int64 `bson:"expireAfterSeconds,omitempty"`
}

// desiredIndex is the comparable view of a mongo.IndexModel.
type desiredIndex struct {
	model  mongo.IndexModel
	name   string
	sig    string
	unique bool
	ttl    *int32
}

func describe(m mongo.IndexModel) desiredIndex {
	d := desiredIndex{model: m, sig: keySig(m.Keys.(bson.D))}
	if m.Options != nil {
		if m.Options.Name != nil {
			d.name = *m.Options.Name
		}
		if m.Options.Unique != nil {
			d.unique = *m.Options.Unique
		}
		d.ttl = m.Options.ExpireAfterSeconds
	}
	return d
}

// sameOptions compares the options that require a rebuild when they differ.
func (d desiredIndex) sameOptions(ex existingIndex) bool {
	exUnique := ex.Unique != nil && *ex.Unique
	if d.unique != exUnique {
		return false
	}
	switch {
	case d.ttl == nil && ex.ExpireAfterSeconds == nil:
		return true
	case d.ttl == nil || ex.ExpireAfterSeconds == nil:
		return false
	default:
		return int64(*d.ttl) == *ex.ExpireAfterSeconds
	}
}

func keySig(keys bson.D) string {
	parts := make([]string, 0, len(keys))
	for _, kv := range keys {
		parts = append(parts, fmt.Sprintf("%s:%v", kv.Key, kv.Value))
	}
	return strings.Join(parts, ", ")
}

// Mongo/DocDB sometimes returns IndexOptionsConflict when an index with the
// same keys already exists under a different name (or options differ).
func isOptionsConflictErr(err error) bool {
	return err != nil && strings.Contains(err.Error(), "IndexOptionsConflict")
}

func listExisting(ctx context.Context, coll *mongo.Collection) map[string]existingIndex {
	out := map[string]existingIndex{}
	cur, err := coll.Indexes().List(ctx)
	if err != nil {
		// Collection may not exist yet; CreateOne will create it.
		return out
	}
	defer cur.Close(ctx)
	for cur.Next(ctx) {
		var idx existingIndex
		if err := cur.Decode(&idx); err != nil {
			zap.L().Warn("failed to decode existing index",
				zap.String("collection", coll.Name()),
				zap.Error(err))
			continue
		}
		out[keySig(idx.Key)] = idx
	}
	return out
}

// recreate drops the index named old and creates d in its place.
func recreate(ctx context.Context, coll *mongo.Collection, old string, d desiredIndex) error {
	if _, err := coll.Indexes().DropOne(ctx, old); err != nil {
		return fmt.Errorf("drop %s failed: %w", old, err)
	}
	return create(ctx, coll, d)
}

func create(ctx context.Context, coll *mongo.Collection, d desiredIndex) error {
	if _, err := coll.Indexes().CreateOne(ctx, d.model); err != nil {
		if d.unique && wafflemongo.IsDup(err) {
			return fmt.Errorf("cannot create unique index (duplicates present on %s)", d.sig)
		}
		return err
	}
	return nil
}

func ensureIndexSet(ctx context.Context, coll *mongo.Collection, models []mongo.IndexModel) error {
	var errs []string

	for _, m := range models {
		d := describe(m)
		start := time.Now()
		log := zap.L().With(
			zap.String("collection", coll.Name()),
			zap.String("name", d.name),
			zap.String("keys", d.sig),
			zap.Bool("unique", d.unique))

		log.Info("ensuring index")

		var err error
		action := "index ensured"

		if ex, ok := listExisting(ctx, coll)[d.sig]; ok {
			switch {
			case !d.sameOptions(ex):
				// e.g. upgrading to unique or changing a TTL.
				action = "index dropped and recreated"
				err = recreate(ctx, coll, ex.Name, d)
			case d.name != "" && ex.Name != d.name:
				action = "index renamed"
				log = log.With(zap.String("from", ex.Name))
				err = recreate(ctx, coll, ex.Name, d)
			default:
				action = "reusing existing index"
			}
		} else {
			err = create(ctx, coll, d)
			if isOptionsConflictErr(err) {
				// Raced with another ensure, or a same-key index appeared under
				// another name between List and CreateOne.
				if ex, ok := listExisting(ctx, coll)[d.sig]; ok {
					if d.sameOptions(ex) {
						action, err = "reusing existing index (post-conflict)", nil
					} else {
						action = "index dropped and recreated (post-conflict)"
						err = recreate(ctx, coll, ex.Name, d)
					}
				}
			}
		}

		if err != nil {
			log.Warn("index ensure failed",
				zap.String("took", time.Since(start).String()),
				zap.Error(err))
			errs = append(errs, fmt.Sprintf("%s(%s): %v", coll.Name(), d.name, err))
			continue
		}
		log.Info(action, zap.String("took", time.Since(start).String()))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

/* -------------------------------------------------------------------------- */
/* Collection-specific index sets                                              */
/* -------------------------------------------------------------------------- */

func ensureUsers(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection(validators.UsersCollection), []mongo.IndexModel{
		// One account per folded email.
		{
			Keys:    bson.D{{Key: "email_ci", Value: 1}},
			Options: options.Index().SetUnique(true).SetName(UsersEmailIndex),
		},
		// Weekly sweep: users with a live streak whose last week is old.
		{
			Keys: bson.D{
				{Key: "current_streak", Value: 1},
				{Key: "last_vibe_week_start", Value: 1},
			},
			Options: options.Index().SetName("idx_users_streak_lastweek"),
		},
	})
}

func ensureVibes(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection(validators.VibesCollection), []mongo.IndexModel{
		// At most one vibe per user per week; concurrent submits lose on this.
		{
			Keys: bson.D{
				{Key: "user_id", Value: 1},
				{Key: "week_start", Value: 1},
			},
			Options: options.Index().SetUnique(true).SetName(VibesWeekIndex),
		},
		// Latest vibe for a user (status) and "this week" lookups.
		{
			Keys: bson.D{
				{Key: "user_id", Value: 1},
				{Key: "created_at", Value: -1},
			},
			Options: options.Index().SetName("idx_vibes_user_createdat"),
		},
		// Weekly counts.
		{
			Keys:    bson.D{{Key: "created_at", Value: 1}},
			Options: options.Index().SetName("idx_vibes_createdat"),
		},
		// Map data grouping over the last seven days.
		{
			Keys: bson.D{
				{Key: "created_at", Value: 1},
				{Key: "location", Value: 1},
			},
			Options: options.Index().SetName("idx_vibes_createdat_location"),
		},
	})
}

func ensureThemes(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection(validators.ThemesCollection), []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "start_date", Value: -1}},
			Options: options.Index().SetUnique(true).SetName("uniq_themes_startdate"),
		},
	})
}

func ensureSessions(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection(validators.SessionsCollection), []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0).SetName("ttl_sessions_expires"),
		},
	})
}

func ensurePasswordResets(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection(validators.PasswordResetsCollection), []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0).SetName("ttl_password_resets_expires"),
		},
		{
			Keys:    bson.D{{Key: "token_hash", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_password_resets_token"),
		},
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}},
			Options: options.Index().SetName("idx_password_resets_user"),
		},
	})
}

func ensureAudit(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection(validators.AuditCollection), []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "timestamp", Value: -1}},
			Options: options.Index().SetName("idx_audit_timestamp"),
		},
		{
			Keys: bson.D{
				{Key: "user_id", Value: 1},
				{Key: "timestamp", Value: -1},
			},
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
