package passwordreset_test

import (
	"errors"
	"testing"
	"time"

	"github.com/dalemusser/positivevibes/internal/app/store/passwordreset"
	"github.com/dalemusser/positivevibes/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestStore_CreateAndConsume(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := passwordreset.New(db, 0)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if store.Expiry() != passwordreset.DefaultExpiry {
		t.Errorf("expected default expiry, got %v", store.Expiry())
	}

	userID := primitive.NewObjectID()
	token, err := store.Create(ctx, userID)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if len(token) != 2*passwordreset.TokenLength {
		t.Errorf("expected %d hex chars, got %d", 2*passwordreset.TokenLength, len(token))
	}

	// The plain token is not stored.
	n, _ := db.Collection("password_resets").CountDocuments(ctx, bson.M{"token_hash": token})
	if n != 0 {
		t.Error("plain token must not be persisted")
	}

	r, err := store.Lookup(ctx, token)
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if r.UserID != userID {
		t.Errorf("expected user %s, got %s", userID.Hex(), r.UserID.Hex())
	}

	if _, err := store.Consume(ctx, token); err != nil {
		t.Fatalf("Consume failed: %v", err)
	}
	if _, err := store.Consume(ctx, token); !errors.Is(err, passwordreset.ErrNotFound) {
		t.Errorf("expected second Consume to fail with ErrNotFound, got %v", err)
	}
}

func TestStore_CreateReplacesPrevious(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := passwordreset.New(db, time.Hour)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	userID := primitive.NewObjectID()
	first, err := store.Create(ctx, userID)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	second, err := store.Create(ctx, userID)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if _, err := store.Lookup(ctx, first); !errors.Is(err, passwordreset.ErrNotFound) {
		t.Errorf("expected first token invalidated, got %v", err)
	}
	if _, err := store.Lookup(ctx, second); err != nil {
		t.Errorf("expected second token valid, got %v", err)
	}
}

func TestStore_ExpiredTokenRejected(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := passwordreset.New(db, time.Hour)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	token, err := store.Create(ctx, primitive.NewObjectID())
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	_, err = db.Collection("password_resets").UpdateMany(ctx, bson.M{},
		bson.M{"$set": bson.M{"expires_at": time.Now().Add(-time.Minute)}})
	if err != nil {
		t.Fatalf("UpdateMany failed: %v", err)
	}

	if _, err := store.Consume(ctx, token); !errors.Is(err, passwordreset.ErrNotFound) {
		t.Errorf("expected ErrNotFound for expired token, got %v", err)
	}

	n, err := store.DeleteExpired(ctx)
	if err != nil {
		t.Fatalf("DeleteExpired failed: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 expired record deleted, got %d", n)
	}
}
