package vibes_test

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	userstore "github.com/dalemusser/positivevibes/internal/app/store/users"
	vibestore "github.com/dalemusser/positivevibes/internal/app/store/vibes"
	"github.com/dalemusser/positivevibes/internal/domain/models"
	"github.com/dalemusser/positivevibes/internal/domain/streak"
	"github.com/dalemusser/positivevibes/internal/domain/weeks"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// fakeUsers mirrors the update filters of the Mongo users store.
type fakeUsers struct {
	mu    sync.Mutex
	users map[primitive.ObjectID]*models.User

	getErr       error
	reconcileErr error
	sweepErr     error

	// beforeAdvance runs once, before the conditional update, to simulate
	// another request updating the user first.
	beforeAdvance func()
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{users: map[primitive.ObjectID]*models.User{}}
}

func (f *fakeUsers) add(u models.User) *models.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	if u.Badges == nil {
		u.Badges = []string{}
	}
	f.users[u.ID] = &u
	return &u
}

func (f *fakeUsers) get(id primitive.ObjectID) models.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.users[id]
}

func (f *fakeUsers) GetByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, userstore.ErrNotFound
	}
	cp := *u
	cp.Badges = slices.Clone(u.Badges)
	return &cp, nil
}

func (f *fakeUsers) ApplyAdvance(_ context.Context, id primitive.ObjectID, st streak.State) (bool, error) {
	if hook := f.beforeAdvance; hook != nil {
		f.beforeAdvance = nil
		hook()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return false, nil
	}
	if u.LastVibeWeekStart != nil && u.LastVibeWeekStart.Equal(*st.LastVibeWeekStart) {
		return false, nil
	}
	week := *st.LastVibeWeekStart
	u.CurrentStreak = st.CurrentStreak
	u.LastVibeWeekStart = &week
	u.LongestStreak = max(u.LongestStreak, st.LongestStreak)
	for _, b := range st.Badges {
		if !slices.Contains(u.Badges, b) {
			u.Badges = append(u.Badges, b)
		}
	}
	return true, nil
}

func (f *fakeUsers) ApplyReconcile(_ context.Context, id primitive.ObjectID, st streak.State, ch streak.Change) error {
	if f.reconcileErr != nil {
		return f.reconcileErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	u := f.users[id]
	if ch.StreakReset {
		u.CurrentStreak = 0
	}
	u.LongestStreak = max(u.LongestStreak, st.LongestStreak)
	u.Badges = append(u.Badges, ch.NewBadges...)
	return nil
}

func (f *fakeUsers) ResetStaleStreaks(_ context.Context, prev time.Time) (int64, error) {
	if f.sweepErr != nil {
		return 0, f.sweepErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, u := range f.users {
		if u.CurrentStreak > 0 && (u.LastVibeWeekStart == nil || u.LastVibeWeekStart.Before(prev)) {
			u.CurrentStreak = 0
			n++
		}
	}
	return n, nil
}

// fakeVibes enforces one vibe per user per week like the unique index.
type fakeVibes struct {
	mu    sync.Mutex
	vibes []models.Vibe

	findErr  error
	statsErr error

	// beforeInsert runs before the uniqueness check, to simulate a
	// concurrent submission landing first.
	beforeInsert func()

	statsCalls int
	mapCalls   int
}

func (f *fakeVibes) add(v models.Vibe) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v.CreatedAt = v.CreatedAt.UTC()
	v.WeekStart = weeks.StartOfWeek(v.CreatedAt)
	f.vibes = append(f.vibes, v)
}

func (f *fakeVibes) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.vibes)
}

func (f *fakeVibes) Insert(_ context.Context, v models.Vibe) (models.Vibe, error) {
	if f.beforeInsert != nil {
		f.beforeInsert()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	v.ID = primitive.NewObjectID()
	v.CreatedAt = v.CreatedAt.UTC()
	v.WeekStart = weeks.StartOfWeek(v.CreatedAt)
	for _, e := range f.vibes {
		if e.UserID == v.UserID && e.WeekStart.Equal(v.WeekStart) {
			return models.Vibe{}, vibestore.ErrWeekTaken
		}
	}
	f.vibes = append(f.vibes, v)
	return v, nil
}

func (f *fakeVibes) FindSince(_ context.Context, userID primitive.ObjectID, since time.Time) (*models.Vibe, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var best *models.Vibe
	for i := range f.vibes {
		v := f.vibes[i]
		if v.UserID == userID && !v.CreatedAt.Before(since) {
			if best == nil || v.CreatedAt.After(best.CreatedAt) {
				best = &v
			}
		}
	}
	if best == nil {
		return nil, vibestore.ErrNotFound
	}
	return best, nil
}

func (f *fakeVibes) LatestAt(ctx context.Context, userID primitive.ObjectID) (*time.Time, error) {
	v, err := f.FindSince(ctx, userID, time.Time{})
	if err == vibestore.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &v.CreatedAt, nil
}

func (f *fakeVibes) Stats(_ context.Context, weekStart time.Time) (vibestore.Stats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statsCalls++
	if f.statsErr != nil {
		return vibestore.Stats{}, f.statsErr
	}
	out := vibestore.Stats{Total: int64(len(f.vibes))}
	for _, v := range f.vibes {
		if !v.CreatedAt.Before(weekStart) {
			out.Weekly++
		}
	}
	return out, nil
}

func (f *fakeVibes) MapData(_ context.Context, since time.Time) ([]vibestore.LocationCount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.mapCalls++
	counts := map[string]int64{}
	for _, v := range f.vibes {
		if v.Location != "" && !v.CreatedAt.Before(since) {
			counts[v.Location]++
		}
	}
	out := []vibestore.LocationCount{}
	for loc, n := range counts {
		out = append(out, vibestore.LocationCount{Location: loc, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Location < out[j].Location
	})
	return out, nil
}
