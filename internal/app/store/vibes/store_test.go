package vibestore_test

import (
	"errors"
	"fmt"
	"testing"
	"time"

	vibestore "github.com/dalemusser/positivevibes/internal/app/store/vibes"
	"github.com/dalemusser/positivevibes/internal/app/system/indexes"
	"github.com/dalemusser/positivevibes/internal/domain/models"
	"github.com/dalemusser/positivevibes/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func mustTime(t *testing.T, s string) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, s)
	if err != nil {
		t.Fatalf("parse %q: %v", s, err)
	}
	return ts
}

func TestInsert_OnePerUserPerWeek(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}
	store := vibestore.New(db)
	user := primitive.NewObjectID()

	first, err := store.Insert(ctx, models.Vibe{UserID: user, CreatedAt: mustTime(t, "2024-05-13T00:00:00Z")})
	if err != nil {
		t.Fatalf("first Insert failed: %v", err)
	}
	if !first.WeekStart.Equal(mustTime(t, "2024-05-13T00:00:00Z")) {
		t.Errorf("unexpected week start %v", first.WeekStart)
	}

	_, err = store.Insert(ctx, models.Vibe{UserID: user, CreatedAt: mustTime(t, "2024-05-19T23:59:59Z")})
	if !errors.Is(err, vibestore.ErrWeekTaken) {
		t.Fatalf("expected ErrWeekTaken, got %v", err)
	}

	// Next week and other users are unaffected.
	if _, err := store.Insert(ctx, models.Vibe{UserID: user, CreatedAt: mustTime(t, "2024-05-20T00:00:00Z")}); err != nil {
		t.Fatalf("next-week Insert failed: %v", err)
	}
	if _, err := store.Insert(ctx, models.Vibe{UserID: primitive.NewObjectID(), CreatedAt: mustTime(t, "2024-05-15T00:00:00Z")}); err != nil {
		t.Fatalf("other-user Insert failed: %v", err)
	}
}

func TestFindSinceAndLatestAt(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := vibestore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	user := primitive.NewObjectID()

	latest, err := store.LatestAt(ctx, user)
	if err != nil || latest != nil {
		t.Fatalf("expected no latest vibe, got %v, %v", latest, err)
	}

	if _, err := store.Insert(ctx, models.Vibe{UserID: user, CreatedAt: mustTime(t, "2024-05-08T09:00:00Z")}); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	_, err = store.FindSince(ctx, user, mustTime(t, "2024-05-13T00:00:00Z"))
	if !errors.Is(err, vibestore.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if _, err := store.Insert(ctx, models.Vibe{UserID: user, CreatedAt: mustTime(t, "2024-05-14T09:00:00Z")}); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	v, err := store.FindSince(ctx, user, mustTime(t, "2024-05-13T00:00:00Z"))
	if err != nil {
		t.Fatalf("FindSince failed: %v", err)
	}
	if !v.CreatedAt.Equal(mustTime(t, "2024-05-14T09:00:00Z")) {
		t.Errorf("unexpected vibe %v", v.CreatedAt)
	}

	latest, err = store.LatestAt(ctx, user)
	if err != nil || latest == nil || !latest.Equal(mustTime(t, "2024-05-14T09:00:00Z")) {
		t.Fatalf("unexpected latest %v, %v", latest, err)
	}
}

func TestStats(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := vibestore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	empty, err := store.Stats(ctx, mustTime(t, "2024-05-13T00:00:00Z"))
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if empty.Weekly != 0 || empty.Total != 0 {
		t.Errorf("expected zero stats, got %+v", empty)
	}

	for _, at := range []string{"2024-05-01T00:00:00Z", "2024-05-13T08:00:00Z", "2024-05-14T08:00:00Z"} {
		if _, err := store.Insert(ctx, models.Vibe{UserID: primitive.NewObjectID(), CreatedAt: mustTime(t, at)}); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	got, err := store.Stats(ctx, mustTime(t, "2024-05-13T00:00:00Z"))
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if got.Weekly != 2 || got.Total != 3 {
		t.Errorf("expected 2/3, got %+v", got)
	}
}

func TestMapData_WindowOrderAndLimit(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := vibestore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	now := mustTime(t, "2024-05-15T12:00:00Z")
	since := now.AddDate(0, 0, -7)

	insert := func(loc string, at time.Time) {
		t.Helper()
		if _, err := store.Insert(ctx, models.Vibe{UserID: primitive.NewObjectID(), CreatedAt: at, Location: loc}); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	insert("Oslo", now.Add(-time.Hour))
	insert("Oslo", now.Add(-2*time.Hour))
	insert("Austin", now.Add(-3*time.Hour))
	insert("Berlin", now.Add(-4*time.Hour))
	insert("", now.Add(-time.Hour))
	insert("Old Town", since.Add(-time.Minute))
	for i := 0; i < vibestore.MapDataLimit+10; i++ {
		insert(fmt.Sprintf("place-%03d", i), now.Add(-time.Duration(i+5)*time.Minute))
	}

	rows, err := store.MapData(ctx, since)
	if err != nil {
		t.Fatalf("MapData failed: %v", err)
	}
	if len(rows) != vibestore.MapDataLimit {
		t.Fatalf("expected %d rows, got %d", vibestore.MapDataLimit, len(rows))
	}
	if rows[0].Location != "Oslo" || rows[0].Count != 2 {
		t.Errorf("expected Oslo first with 2, got %+v", rows[0])
	}
	if rows[1].Location != "Austin" || rows[2].Location != "Berlin" {
		t.Errorf("expected ties ordered by location, got %q, %q", rows[1].Location, rows[2].Location)
	}
	for i, r := range rows {
		if r.Location == "" || r.Location == "Old Town" {
			t.Errorf("row %d should have been excluded: %+v", i, r)
		}
		if i > 0 && rows[i-1].Count < r.Count {
			t.Errorf("rows not sorted by count at %d", i)
		}
	}
}
