// internal/app/system/validators/validators.go
package validators

import (
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Collection names used across stores.
const (
	UsersCollection          = "users"
	VibesCollection          = "vibes"
	ThemesCollection         = "weekly_themes"
	SessionsCollection       = "sessions"
	PasswordResetsCollection = "password_resets"
	AuditCollection          = "audit_events"
)

// EnsureAll creates the app's collections if missing and attaches JSON-Schema
// validators where the server supports them. Deployments without collMod
// support (some DocumentDB versions) are logged and skipped.
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	var problems []string

	ensure := func(coll string, schema bson.M) {
		if _, err := ensureCollection(ctx, db, coll); err != nil {
			problems = append(problems, coll+": "+err.Error())
			return
		}
		if schema == nil {
			return
		}
		if err := setValidator(ctx, db, coll, schema); err != nil {
			if isUnsupported(err) {
				zap.L().Info("validator skipped (unsupported)", zap.String("collection", coll))
				return
			}
			problems = append(problems, coll+": "+err.Error())
		}
	}

	ensure(UsersCollection, usersSchema())
	ensure(VibesCollection, vibesSchema())
	ensure(ThemesCollection, themesSchema())

	// No validators; the collections still need to exist before TTL indexes.
	ensure(SessionsCollection, nil)
	ensure(PasswordResetsCollection, nil)
	ensure(AuditCollection, nil)

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

/* ---------------------- collection helpers & logging ---------------------- */

func collectionExists(ctx context.Context, db *mongo.Database, name string) (bool, error) {
	names, err := db.ListCollectionNames(ctx, bson.M{"name": name})
	if err != nil {
		return false, err
	}
	return len(names) > 0, nil
}

// ensureCollection returns created==true only if it actually created <name>.
func ensureCollection(ctx context.Context, db *mongo.Database, name string) (created bool, err error) {
	exists, listErr := collectionExists(ctx, db, name)
	if listErr == nil && exists {
		zap.L().Debug("collection exists", zap.String("collection", name))
		return false, nil
	}
	if err := db.CreateCollection(ctx, name); err != nil {
		if isNamespaceExistsErr(err) {
			return false, nil
		}
		zap.L().Warn("createCollection failed", zap.String("collection", name), zap.Error(err))
		return false, err
	}
	zap.L().Info("created collection", zap.String("collection", name))
	return true, nil
}

func setValidator(ctx context.Context, db *mongo.Database, name string, validator bson.M) error {
	cmd := bson.D{
		{Key: "collMod", Value: name},
		{Key: "validator", Value: validator},
		{Key: "validationLevel", Value: "moderate"},
		{Key: "validationAction", Value: "error"},
	}
	var out bson.M
	if err := db.RunCommand(ctx, cmd).Decode(&out); err != nil {
		return err
	}
	zap.L().Info("validator ensured", zap.String("collection", name))
	return nil
}

/* ------------------------- error helpers ------------------------- */

func commandErrorMatches(err error, code int32, phrases ...string) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && ce.Code == code {
		return true
	}
	s := strings.ToLower(err.Error())
	for _, p := range phrases {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}

func isNamespaceExistsErr(err error) bool {
	return commandErrorMatches(err, 48, "already exists", "namespace exists")
}

func isUnsupported(err error) bool {
	return commandErrorMatches(err, 59, "no such command") ||
		commandErrorMatches(err, 115, "not implemented", "not supported")
}

/* ------------------------- JSON-Schema docs ---------------------- */

func usersSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"email", "email_ci", "password_hash", "current_streak", "longest_streak", "badges"},
			"properties": bson.M{
				"email":                bson.M{"bsonType": "string", "minLength": 3, "pattern": "@"},
				"email_ci":             bson.M{"bsonType": "string", "minLength": 3},
				"password_hash":        bson.M{"bsonType": "string", "minLength": 1},
				"location":             bson.M{"bsonType": "string"},
				"current_streak":       bson.M{"bsonType": bson.A{"int", "long"}, "minimum": 0},
				"longest_streak":       bson.M{"bsonType": bson.A{"int", "long"}, "minimum": 0},
				"last_vibe_week_start": bson.M{"bsonType": bson.A{"date", "null"}},
				"badges":               bson.M{"bsonType": "array", "uniqueItems": true, "items": bson.M{"bsonType": "string"}},
			},
		},
	}
}

func vibesSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"user_id", "created_at", "week_start"},
			"properties": bson.M{
				"user_id":    bson.M{"bsonType": "objectId"},
				"created_at": bson.M{"bsonType": "date"},
				"week_start": bson.M{"bsonType": "date"},
				"location":   bson.M{"bsonType": "string"},
			},
		},
	}
}

func themesSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"start_date", "theme"},
			"properties": bson.M{
				"start_date":  bson.M{"bsonType": "date"},
				"theme":       bson.M{"bsonType": "string", "minLength": 1, "pattern": ".*\\S.*"},
				"suggestions": bson.M{"bsonType": "array", "items": bson.M{"bsonType": "string"}},
			},
		},
	}
}
