package userstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/positivevibes/internal/app/system/normalize"
	"github.com/dalemusser/positivevibes/internal/app/system/validators"
	"github.com/dalemusser/positivevibes/internal/domain/models"
	"github.com/dalemusser/positivevibes/internal/domain/streak"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	// ErrDuplicateEmail is returned when attempting to create a user with an email that already exists.
	ErrDuplicateEmail = errors.New("a user with this email already exists")
	// ErrNotFound is returned when no user matches the lookup.
	ErrNotFound = errors.New("user not found")
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection(validators.UsersCollection)}
}

// StateOf extracts the streak state of u.
func StateOf(u *models.User) streak.State {
	return streak.State{
		CurrentStreak:     u.CurrentStreak,
		LongestStreak:     u.LongestStreak,
		LastVibeWeekStart: u.LastVibeWeekStart,
		Badges:            u.Badges,
	}
}

// Create inserts a new account with zeroed streak state.
func (s *Store) Create(ctx context.Context, email, passwordHash, location string) (models.User, error) {
	now := time.Now().UTC()
	u := models.User{
		ID:           primitive.NewObjectID(),
		Email:        normalize.Email(email),
		EmailCI:      normalize.EmailCI(email),
		PasswordHash: passwordHash,
		Location:     normalize.Location(location),
		Badges:       []string{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if _, err := s.c.InsertOne(ctx, u); err != nil {
		if wafflemongo.IsDup(err) {
			return models.User{}, ErrDuplicateEmail
		}
		return models.User{}, err
	}
	return u, nil
}

// GetByID loads a user by ObjectID.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return s.findOne(ctx, bson.M{"_id": id})
}

// GetByEmail looks up a user by case-insensitive email.
func (s *Store) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.findOne(ctx, bson.M{"email_ci": normalize.EmailCI(email)})
}

func (s *Store) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	var u models.User
	if err := s.c.FindOne(ctx, filter).Decode(&u); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// UpdatePassword replaces the stored bcrypt hash.
func (s *Store) UpdatePassword(ctx context.Context, id primitive.ObjectID, passwordHash string) error {
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"password_hash": passwordHash,
		"updated_at":    time.Now().UTC(),
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// ApplyAdvance persists the state produced by streak.Advance in a single
// document update. The filter skips users whose last vibe week already equals
// the new week, so a concurrent duplicate cannot count the same week twice.
// It reports whether the user document was updated.
func (s *Store) ApplyAdvance(ctx context.Context, id primitive.ObjectID, st streak.State) (bool, error) {
	if st.LastVibeWeekStart == nil {
		return false, errors.New("advance state has no week start")
	}
	week := st.LastVibeWeekStart.UTC()

	update := bson.M{
		"$set": bson.M{
			"current_streak":       st.CurrentStreak,
			"last_vibe_week_start": week,
			"updated_at":           time.Now().UTC(),
		},
		"$max": bson.M{"longest_streak": st.LongestStreak},
	}
	if len(st.Badges) > 0 {
		update["$addToSet"] = bson.M{"badges": bson.M{"$each": st.Badges}}
	}

	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id, "last_vibe_week_start": bson.M{"$ne": week}},
		update,
	)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount > 0, nil
}

// ApplyReconcile persists the delta reported by streak.Reconcile. It is a
// no-op for an empty change.
func (s *Store) ApplyReconcile(ctx context.Context, id primitive.ObjectID, st streak.State, ch streak.Change) error {
	if ch.Empty() {
		return nil
	}

	update := bson.M{
		"$max": bson.M{"longest_streak": st.LongestStreak},
	}
	if ch.StreakReset {
		update["$set"] = bson.M{"current_streak": 0, "updated_at": time.Now().UTC()}
	}
	if len(ch.NewBadges) > 0 {
		update["$addToSet"] = bson.M{"badges": bson.M{"$each": ch.NewBadges}}
	}

	filter := bson.M{"_id": id}
	if ch.StreakReset {
		// Do not clobber a vibe that landed after the read.
		filter["last_vibe_week_start"] = lastWeekFilter(st.LastVibeWeekStart)
	}

	_, err := s.c.UpdateOne(ctx, filter, update)
	return err
}

func lastWeekFilter(week *time.Time) any {
	if week == nil {
		return nil
	}
	return week.UTC()
}

// ResetStaleStreaks zeroes current_streak for every user whose last vibe week
// is older than previousWeekStart, or who has a streak but no recorded week.
// This is the bulk form of the reconciliation reset rule.
func (s *Store) ResetStaleStreaks(ctx context.Context, previousWeekStart time.Time) (int64, error) {
	res, err := s.c.UpdateMany(ctx,
		bson.M{
			"current_streak": bson.M{"$gt": 0},
			"$or": bson.A{
				bson.M{"last_vibe_week_start": bson.M{"$lt": previousWeekStart.UTC()}},
				bson.M{"last_vibe_week_start": nil},
			},
		},
		bson.M{"$set": bson.M{"current_streak": 0, "updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

// CountByBadge returns how many users hold each badge name.
func (s *Store) CountByBadge(ctx context.Context) (map[string]int64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$unwind", Value: "$badges"}},
		{{Key: "$group", Value: bson.M{"_id": "$badges", "count": bson.M{"$sum": 1}}}},
	}
	cur, err := s.c.Aggregate(ctx, pipeline, options.Aggregate())
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := map[string]int64{}
	for cur.Next(ctx) {
		var row struct {
			Name  string `bson:"_id"`
			Count int64  `bson:"count"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, err
		}
		out[row.Name] = row.Count
	}
	return out, cur.Err()
}
