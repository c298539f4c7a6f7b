package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/dalemusser/positivevibes/internal/app/system/authutil"
	"github.com/dalemusser/positivevibes/internal/app/system/normalize"
	"github.com/dalemusser/positivevibes/internal/app/system/validators"
	"github.com/dalemusser/positivevibes/internal/domain/models"
	"github.com/dalemusser/positivevibes/internal/domain/weeks"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// Fixtures provides helper methods for creating test data.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

// CreateUser inserts an account whose password is password.
func (f *Fixtures) CreateUser(ctx context.Context, email, password, location string) models.User {
	f.t.Helper()

	hash, err := authutil.HashPassword(password)
	if err != nil {
		f.t.Fatalf("hash password: %v", err)
	}
	now := time.Now().UTC()
	u := models.User{
		ID:           primitive.NewObjectID(),
		Email:        normalize.Email(email),
		EmailCI:      normalize.EmailCI(email),
		PasswordHash: hash,
		Location:     normalize.Location(location),
		Badges:       []string{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if _, err := f.db.Collection(validators.UsersCollection).InsertOne(ctx, u); err != nil {
		f.t.Fatalf("insert user: %v", err)
	}
	return u
}

// CreateVibe inserts a vibe for userID at createdAt.
func (f *Fixtures) CreateVibe(ctx context.Context, userID primitive.ObjectID, createdAt time.Time, location string) models.Vibe {
	f.t.Helper()

	v := models.Vibe{
		ID:        primitive.NewObjectID(),
		UserID:    userID,
		CreatedAt: createdAt.UTC(),
		WeekStart: weeks.StartOfWeek(createdAt),
		Location:  location,
	}
	if _, err := f.db.Collection(validators.VibesCollection).InsertOne(ctx, v); err != nil {
		f.t.Fatalf("insert vibe: %v", err)
	}
	return v
}
