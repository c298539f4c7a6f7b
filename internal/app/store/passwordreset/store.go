// internal/app/store/passwordreset/store.go
package passwordreset

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/dalemusser/positivevibes/internal/app/system/validators"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

const (
	// TokenLength is the length of the reset token in bytes (32 bytes = 64 hex chars).
	TokenLength = 32
	// DefaultExpiry is how long a reset link is valid.
	DefaultExpiry = time.Hour
)

// ErrNotFound is returned when a reset token is unknown, expired, or already used.
var ErrNotFound = errors.New("password reset token is invalid or has expired")

// Reset is a pending password reset. Only the SHA-256 of the token is stored.
type Reset struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	UserID    primitive.ObjectID `bson:"user_id"`
	TokenHash string             `bson:"token_hash"`
	ExpiresAt time.Time          `bson:"expires_at"` // TTL index field
	CreatedAt time.Time          `bson:"created_at"`
}

// Store manages password reset records.
type Store struct {
	c      *mongo.Collection
	expiry time.Duration
}

// New creates a Store. If expiry is 0 or negative, DefaultExpiry is used.
func New(db *mongo.Database, expiry time.Duration) *Store {
	if expiry <= 0 {
		expiry = DefaultExpiry
	}
	return &Store{
		c:      db.Collection(validators.PasswordResetsCollection),
		expiry: expiry,
	}
}

// Expiry returns how long issued tokens stay valid.
func (s *Store) Expiry() time.Duration {
	return s.expiry
}

// Create issues a new token for userID, replacing any outstanding one.
// The plain token is returned for the email link and never persisted.
func (s *Store) Create(ctx context.Context, userID primitive.ObjectID) (string, error) {
	token, err := generateToken()
	if err != nil {
		return "", err
	}
	now := time.Now().UTC()

	if _, err := s.c.DeleteMany(ctx, bson.M{"user_id": userID}); err != nil {
		return "", fmt.Errorf("clear previous resets: %w", err)
	}

	r := Reset{
		ID:        primitive.NewObjectID(),
		UserID:    userID,
		TokenHash: hashToken(token),
		ExpiresAt: now.Add(s.expiry),
		CreatedAt: now,
	}
	if _, err := s.c.InsertOne(ctx, r); err != nil {
		return "", fmt.Errorf("insert reset: %w", err)
	}
	return token, nil
}

// Lookup returns the live reset for token without consuming it.
func (s *Store) Lookup(ctx context.Context, token string) (*Reset, error) {
	var r Reset
	err := s.c.FindOne(ctx, bson.M{
		"token_hash": hashToken(token),
		"expires_at": bson.M{"$gt": time.Now().UTC()},
	}).Decode(&r)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &r, nil
}

// Consume atomically removes the live reset for token and returns it.
// A token can be consumed once.
func (s *Store) Consume(ctx context.Context, token string) (*Reset, error) {
	var r Reset
	err := s.c.FindOneAndDelete(ctx, bson.M{
		"token_hash": hashToken(token),
		"expires_at": bson.M{"$gt": time.Now().UTC()},
	}).Decode(&r)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &r, nil
}

// DeleteExpired removes expired records and returns how many were deleted.
func (s *Store) DeleteExpired(ctx context.Context) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"expires_at": bson.M{"$lte": time.Now().UTC()}})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

func generateToken() (string, error) {
	b := make([]byte, TokenLength)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
