// internal/domain/models/vibe.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Vibe is one accepted weekly submission. It is immutable once inserted.
// WeekStart is the canonical week of CreatedAt and, together with UserID,
// is unique.
type Vibe struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID    primitive.ObjectID `bson:"user_id" json:"user_id"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
	WeekStart time.Time          `bson:"week_start" json:"week_start"`
	Location  string             `bson:"location,omitempty" json:"location,omitempty"`
}
