// internal/domain/models/user.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User is a registered account together with its streak state.
//
// NOTE:
//   - Email is stored lowercased and trimmed; EmailCI is the folded form used
//     by the unique index.
//   - Streak fields are only written through the streak evaluator.
type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Email        string             `bson:"email" json:"email"`
	EmailCI      string             `bson:"email_ci" json:"-"`
	PasswordHash string             `bson:"password_hash" json:"-"`
	Location     string             `bson:"location,omitempty" json:"location,omitempty"`

	CurrentStreak     int        `bson:"current_streak" json:"current_streak"`
	LongestStreak     int        `bson:"longest_streak" json:"longest_streak"`
	LastVibeWeekStart *time.Time `bson:"last_vibe_week_start" json:"last_vibe_week_start"`
	Badges            []string   `bson:"badges" json:"badges"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}
