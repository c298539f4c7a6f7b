// internal/domain/models/theme.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// WeeklyTheme is the prompt shown for every week starting at StartDate until
// a later theme takes over.
type WeeklyTheme struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	StartDate   time.Time          `bson:"start_date" json:"start_date"`
	Theme       string             `bson:"theme" json:"theme"`
	Suggestions []string           `bson:"suggestions" json:"suggestions"`
	UpdatedAt   time.Time          `bson:"updated_at" json:"updated_at"`
}
