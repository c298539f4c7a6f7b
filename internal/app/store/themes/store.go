// internal/app/store/themes/store.go
package themestore

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dalemusser/positivevibes/internal/app/system/validators"
	"github.com/dalemusser/positivevibes/internal/domain/models"
	"github.com/dalemusser/positivevibes/internal/domain/weeks"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrNotFound is returned when no theme has started yet.
var ErrNotFound = errors.New("no weekly theme found")

// Store manages weekly themes.
type Store struct {
	c *mongo.Collection
}

// New creates a new themes Store.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection(validators.ThemesCollection)}
}

// Current returns the latest theme whose start date is on or before the
// start of the week containing now.
func (s *Store) Current(ctx context.Context, now time.Time) (*models.WeeklyTheme, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "start_date", Value: -1}})
	var t models.WeeklyTheme
	err := s.c.FindOne(ctx, bson.M{
		"start_date": bson.M{"$lte": weeks.StartOfWeek(now)},
	}, opts).Decode(&t)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Upsert stores the theme for the week containing start, replacing any theme
// already set for that week.
func (s *Store) Upsert(ctx context.Context, start time.Time, theme string, suggestions []string) (models.WeeklyTheme, error) {
	theme = strings.TrimSpace(theme)
	if theme == "" {
		return models.WeeklyTheme{}, errors.New("theme must not be empty")
	}
	clean := make([]string, 0, len(suggestions))
	for _, sg := range suggestions {
		if sg = strings.TrimSpace(sg); sg != "" {
			clean = append(clean, sg)
		}
	}

	weekStart := weeks.StartOfWeek(start)
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var out models.WeeklyTheme
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"start_date": weekStart},
		bson.M{"$set": bson.M{
			"theme":       theme,
			"suggestions": clean,
			"updated_at":  time.Now().UTC(),
		}},
		opts,
	).Decode(&out)
	return out, err
}
