// internal/app/features/vibes/service.go
package vibes

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	userstore "github.com/dalemusser/positivevibes/internal/app/store/users"
	vibestore "github.com/dalemusser/positivevibes/internal/app/store/vibes"
	"github.com/dalemusser/positivevibes/internal/app/system/auditlog"
	"github.com/dalemusser/positivevibes/internal/app/system/cache"
	"github.com/dalemusser/positivevibes/internal/app/system/metrics"
	"github.com/dalemusser/positivevibes/internal/domain/models"
	"github.com/dalemusser/positivevibes/internal/domain/streak"
	"github.com/dalemusser/positivevibes/internal/domain/weeks"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// MsgVibePushed is returned with every accepted vibe.
const MsgVibePushed = "Vibe Pushed! Thank you!"

// MapDataWindow is how far back map data looks.
const MapDataWindow = 7 * 24 * time.Hour

// mapDataBucket is how long one map data result is shared between requests.
const mapDataBucket = time.Minute

var (
	// ErrUnauthenticated means the request carries no signed-in user.
	ErrUnauthenticated = errors.New("authentication required")
	// ErrNotFound means the session refers to a user that no longer exists.
	ErrNotFound = errors.New("user not found")
	// ErrStorage wraps any persistence failure.
	ErrStorage = errors.New("storage error")
)

// AlreadySubmittedError rejects a second vibe in the same week.
type AlreadySubmittedError struct {
	NextAvailable time.Time
}

func (e *AlreadySubmittedError) Error() string {
	return "vibe already submitted this week; next available " + e.NextAvailable.Format(time.RFC3339)
}

func storageErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStorage, err)
}

// UserStore is the subset of the users store the service needs.
type UserStore interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	ApplyAdvance(ctx context.Context, id primitive.ObjectID, st streak.State) (bool, error)
	ApplyReconcile(ctx context.Context, id primitive.ObjectID, st streak.State, ch streak.Change) error
	ResetStaleStreaks(ctx context.Context, previousWeekStart time.Time) (int64, error)
}

// VibeStore is the subset of the vibes store the service needs.
type VibeStore interface {
	Insert(ctx context.Context, v models.Vibe) (models.Vibe, error)
	FindSince(ctx context.Context, userID primitive.ObjectID, since time.Time) (*models.Vibe, error)
	LatestAt(ctx context.Context, userID primitive.ObjectID) (*time.Time, error)
	Stats(ctx context.Context, weekStart time.Time) (vibestore.Stats, error)
	MapData(ctx context.Context, since time.Time) ([]vibestore.LocationCount, error)
}

// Service applies the weekly vibe rules on top of the stores.
// Cache, Metrics and Audit are optional.
type Service struct {
	Users   UserStore
	Vibes   VibeStore
	Cache   *cache.Cache
	Metrics *metrics.Metrics
	Audit   *auditlog.Logger
	Log     *zap.Logger
}

// NewService constructs a Service.
func NewService(users UserStore, vibes VibeStore, c *cache.Cache, m *metrics.Metrics, audit *auditlog.Logger, logger *zap.Logger) *Service {
	return &Service{
		Users:   users,
		Vibes:   vibes,
		Cache:   c,
		Metrics: m,
		Audit:   audit,
		Log:     logger,
	}
}

// Result is the outcome of an accepted vibe.
type Result struct {
	Message       string
	NextAvailable time.Time
	State         streak.State
}

// Status is the signed-in user's dashboard view.
type Status struct {
	LoggedIn          bool       `json:"loggedIn"`
	Email             string     `json:"email"`
	LastVibeTimestamp *time.Time `json:"lastVibeTimestamp"`
	CurrentStreak     int        `json:"currentStreak"`
	LongestStreak     int        `json:"longestStreak"`
	Badges            []string   `json:"badges"`
	NextBadgeName     string     `json:"nextBadgeName"`
	NextBadgeProgress int        `json:"nextBadgeProgress"`
}

func (s *Service) loadUser(ctx context.Context, userID primitive.ObjectID) (*models.User, error) {
	u, err := s.Users.GetByID(ctx, userID)
	if errors.Is(err, userstore.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, storageErr("load user", err)
	}
	return u, nil
}

// Submit records a vibe for userID at now and advances the streak.
//
// A vibe already stored for this week either rejects the call with
// *AlreadySubmittedError or, when the user record never caught up with it,
// completes the interrupted update and succeeds. Exactly one caller per week
// succeeds; a zero userID is rejected with ErrUnauthenticated.
func (s *Service) Submit(ctx context.Context, userID primitive.ObjectID, now time.Time) (Result, error) {
	if userID.IsZero() {
		s.Metrics.VibeRejected("unauthenticated")
		return Result{}, ErrUnauthenticated
	}
	now = now.UTC()
	u, err := s.loadUser(ctx, userID)
	if err != nil {
		return Result{}, err
	}
	st := userstore.StateOf(u)
	weekStart := weeks.StartOfWeek(now)

	existing, err := s.Vibes.FindSince(ctx, userID, weekStart)
	switch {
	case err == nil:
		if streak.Covers(st, existing.CreatedAt) {
			s.Metrics.VibeRejected("already_submitted")
			return Result{}, &AlreadySubmittedError{NextAvailable: weeks.NextWeekStart(existing.CreatedAt)}
		}
		s.Log.Info("completing interrupted vibe",
			zap.String("user_id", userID.Hex()),
			zap.Time("created_at", existing.CreatedAt))
		return s.advance(ctx, u, st, existing.CreatedAt, now)
	case !errors.Is(err, vibestore.ErrNotFound):
		return Result{}, storageErr("find vibe", err)
	}

	_, err = s.Vibes.Insert(ctx, models.Vibe{
		UserID:    userID,
		CreatedAt: now,
		Location:  u.Location,
	})
	if errors.Is(err, vibestore.ErrWeekTaken) {
		// Lost a race with a concurrent submission; report the winner's week.
		next := weeks.NextWeekStart(now)
		if winner, ferr := s.Vibes.FindSince(ctx, userID, weekStart); ferr == nil {
			next = weeks.NextWeekStart(winner.CreatedAt)
		}
		s.Metrics.VibeRejected("already_submitted")
		return Result{}, &AlreadySubmittedError{NextAvailable: next}
	}
	if err != nil {
		return Result{}, storageErr("insert vibe", err)
	}

	return s.advance(ctx, u, st, now, now)
}

// advance applies streak.Advance for a vibe created at at and persists it.
// Losing the conditional update means another request already counted the
// week, so the caller is rejected like any other duplicate.
func (s *Service) advance(ctx context.Context, u *models.User, st streak.State, at, now time.Time) (Result, error) {
	next := streak.Advance(st, at)

	updated, err := s.Users.ApplyAdvance(ctx, u.ID, next)
	if err != nil {
		return Result{}, storageErr("update streak", err)
	}
	if !updated {
		s.Metrics.VibeRejected("already_submitted")
		return Result{}, &AlreadySubmittedError{NextAvailable: weeks.NextWeekStart(at)}
	}
	s.Metrics.VibeSubmitted()
	s.Metrics.BadgesAwarded(newBadges(st.Badges, next.Badges))

	s.invalidate(ctx, now)

	return Result{
		Message:       MsgVibePushed,
		NextAvailable: weeks.NextWeekStart(at),
		State:         next,
	}, nil
}

func newBadges(before, after []string) []string {
	var out []string
	for _, b := range after {
		if !slices.Contains(before, b) {
			out = append(out, b)
		}
	}
	return out
}

func (s *Service) invalidate(ctx context.Context, at time.Time) {
	if err := s.Cache.Delete(ctx, statsKey(weeks.StartOfWeek(at)), mapDataKey(at)); err != nil {
		s.Log.Warn("cache invalidation failed", zap.Error(err))
	}
}

// Status reconciles the user's streak at now, persists any correction and
// reports the result. A failed correction write is logged; the corrected
// values are still returned.
func (s *Service) Status(ctx context.Context, userID primitive.ObjectID, now time.Time) (Status, error) {
	u, err := s.loadUser(ctx, userID)
	if err != nil {
		return Status{}, err
	}

	st, ch := streak.Reconcile(userstore.StateOf(u), now)
	if !ch.Empty() {
		if err := s.Users.ApplyReconcile(ctx, userID, st, ch); err != nil {
			s.Log.Error("failed to persist streak reconciliation",
				zap.String("user_id", userID.Hex()),
				zap.Bool("streak_reset", ch.StreakReset),
				zap.Strings("new_badges", ch.NewBadges),
				zap.Error(err))
		} else {
			if ch.StreakReset {
				s.Metrics.StreakResets("status", 1)
			}
			s.Metrics.BadgesAwarded(ch.NewBadges)
		}
	}

	last, err := s.Vibes.LatestAt(ctx, userID)
	if err != nil {
		return Status{}, storageErr("latest vibe", err)
	}

	progress := streak.Progress(st)
	return Status{
		LoggedIn:          true,
		Email:             u.Email,
		LastVibeTimestamp: last,
		CurrentStreak:     st.CurrentStreak,
		LongestStreak:     st.LongestStreak,
		Badges:            st.Badges,
		NextBadgeName:     progress.NextName,
		NextBadgeProgress: progress.Percent,
	}, nil
}

// SweepStaleStreaks resets every streak that Reconcile would reset at now.
// trigger identifies the caller ("cron", "cli") in the audit log.
func (s *Service) SweepStaleStreaks(ctx context.Context, now time.Time, trigger string) (int64, error) {
	n, err := s.Users.ResetStaleStreaks(ctx, weeks.PreviousWeekStart(now))
	s.Audit.StreakSweep(ctx, trigger, n, err)
	if err != nil {
		return 0, storageErr("sweep streaks", err)
	}
	s.Metrics.StreakResets("sweep", n)
	return n, nil
}

// Stats returns community counts for the week containing now.
func (s *Service) Stats(ctx context.Context, now time.Time) (vibestore.Stats, error) {
	weekStart := weeks.StartOfWeek(now)
	stats, err := cache.Fetch(ctx, s.Cache, "stats", statsKey(weekStart), func(ctx context.Context) (vibestore.Stats, error) {
		return s.Vibes.Stats(ctx, weekStart)
	})
	if err != nil {
		return vibestore.Stats{}, storageErr("stats", err)
	}
	return stats, nil
}

// MapData returns location counts for the MapDataWindow ending at now. A
// cached result is reused only within the same mapDataBucket, so the window
// edge lags by less than one bucket.
func (s *Service) MapData(ctx context.Context, now time.Time) ([]vibestore.LocationCount, error) {
	rows, err := cache.Fetch(ctx, s.Cache, "mapdata", mapDataKey(now), func(ctx context.Context) ([]vibestore.LocationCount, error) {
		return s.Vibes.MapData(ctx, now.Add(-MapDataWindow))
	})
	if err != nil {
		return nil, storageErr("map data", err)
	}
	return rows, nil
}

func statsKey(weekStart time.Time) string {
	return "stats:" + weekStart.UTC().Format("2006-01-02")
}

func mapDataKey(now time.Time) string {
	return "mapdata:" + now.UTC().Truncate(mapDataBucket).Format("2006-01-02T15:04")
}
