// internal/app/store/vibes/store.go
package vibestore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/positivevibes/internal/app/system/validators"
	"github.com/dalemusser/positivevibes/internal/domain/models"
	"github.com/dalemusser/positivevibes/internal/domain/weeks"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MapDataLimit caps the number of locations returned by MapData.
const MapDataLimit = 200

var (
	// ErrWeekTaken is returned by Insert when the user already has a vibe in
	// the same week. It is raised by the uniq_vibes_user_week index.
	ErrWeekTaken = errors.New("vibe already recorded for this week")
	// ErrNotFound is returned when no vibe matches the lookup.
	ErrNotFound = errors.New("vibe not found")
)

// Stats are the community-wide submission counts.
type Stats struct {
	Weekly int64 `json:"weeklyVibeCount"`
	Total  int64 `json:"totalVibeCount"`
}

// LocationCount is one row of map data.
type LocationCount struct {
	Location string `bson:"location" json:"location"`
	Count    int64  `bson:"count" json:"count"`
}

// Store manages the vibes collection.
type Store struct {
	c *mongo.Collection
}

// New creates a new vibes Store.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection(validators.VibesCollection)}
}

// Insert records a vibe. WeekStart is derived from CreatedAt, so the unique
// (user_id, week_start) index rejects a second vibe in the same week with
// ErrWeekTaken.
func (s *Store) Insert(ctx context.Context, v models.Vibe) (models.Vibe, error) {
	if v.ID.IsZero() {
		v.ID = primitive.NewObjectID()
	}
	v.CreatedAt = v.CreatedAt.UTC()
	v.WeekStart = weeks.StartOfWeek(v.CreatedAt)

	if _, err := s.c.InsertOne(ctx, v); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Vibe{}, ErrWeekTaken
		}
		return models.Vibe{}, err
	}
	return v, nil
}

// FindSince returns the most recent vibe by userID created at or after since.
func (s *Store) FindSince(ctx context.Context, userID primitive.ObjectID, since time.Time) (*models.Vibe, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "created_at", Value: -1}})
	var v models.Vibe
	err := s.c.FindOne(ctx, bson.M{
		"user_id":    userID,
		"created_at": bson.M{"$gte": since.UTC()},
	}, opts).Decode(&v)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// LatestAt returns the creation time of the user's most recent vibe, or nil
// if the user has never submitted one.
func (s *Store) LatestAt(ctx context.Context, userID primitive.ObjectID) (*time.Time, error) {
	opts := options.FindOne().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetProjection(bson.M{"created_at": 1})
	var v models.Vibe
	err := s.c.FindOne(ctx, bson.M{"user_id": userID}, opts).Decode(&v)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	at := v.CreatedAt.UTC()
	return &at, nil
}

// Stats counts vibes in the week starting at weekStart and in total, in one
// round trip.
func (s *Store) Stats(ctx context.Context, weekStart time.Time) (Stats, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$facet", Value: bson.M{
			"weekly": bson.A{
				bson.M{"$match": bson.M{"created_at": bson.M{"$gte": weekStart.UTC()}}},
				bson.M{"$count": "count"},
			},
			"total": bson.A{
				bson.M{"$count": "count"},
			},
		}}},
	}

	cur, err := s.c.Aggregate(ctx, pipeline)
	if err != nil {
		return Stats{}, err
	}
	defer cur.Close(ctx)

	var rows []struct {
		Weekly []struct {
			Count int64 `bson:"count"`
		} `bson:"weekly"`
		Total []struct {
			Count int64 `bson:"count"`
		} `bson:"total"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return Stats{}, err
	}

	var out Stats
	if len(rows) > 0 {
		if len(rows[0].Weekly) > 0 {
			out.Weekly = rows[0].Weekly[0].Count
		}
		if len(rows[0].Total) > 0 {
			out.Total = rows[0].Total[0].Count
		}
	}
	return out, nil
}

// MapData groups vibes created at or after since by non-empty location,
// ordered by count descending then location ascending, capped at
// MapDataLimit rows.
func (s *Store) MapData(ctx context.Context, since time.Time) ([]LocationCount, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"created_at": bson.M{"$gte": since.UTC()},
			"location":   bson.M{"$exists": true, "$nin": bson.A{"", nil}},
		}}},
		{{Key: "$group", Value: bson.M{"_id": "$location", "count": bson.M{"$sum": 1}}}},
		{{Key: "$sort", Value: bson.D{{Key: "count", Value: -1}, {Key: "_id", Value: 1}}}},
		{{Key: "$limit", Value: MapDataLimit}},
		{{Key: "$project", Value: bson.M{"_id": 0, "location": "$_id", "count": 1}}},
	}

	cur, err := s.c.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []LocationCount{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
