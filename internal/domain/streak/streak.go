// Package streak evaluates weekly streaks and badge awards.
//
// The same two functions serve every path that touches streak state:
// Reconcile on reads (and the scheduled sweep), Advance on a successful
// submission. Neither touches storage.
package streak

import (
	"slices"
	"time"

	"github.com/dalemusser/positivevibes/internal/domain/badges"
	"github.com/dalemusser/positivevibes/internal/domain/weeks"
)

// State is the streak-relevant subset of a user record.
type State struct {
	CurrentStreak     int
	LongestStreak     int
	LastVibeWeekStart *time.Time
	Badges            []string
}

// Change describes what Reconcile altered, so callers persist only deltas.
type Change struct {
	StreakReset bool
	NewBadges   []string
}

// Empty reports whether Reconcile left the state untouched.
func (c Change) Empty() bool {
	return !c.StreakReset && len(c.NewBadges) == 0
}

// Reconcile corrects state observed at now:
//   - a streak whose last vibe week is older than the previous week is reset to 0;
//   - a nonzero streak with no recorded vibe week is reset to 0;
//   - LongestStreak is raised to CurrentStreak if it ever lagged;
//   - every badge earned by LongestStreak is added.
//
// Reconcile is idempotent and never mutates its input.
func Reconcile(s State, now time.Time) (State, Change) {
	out := clone(s)
	var ch Change

	prev := weeks.PreviousWeekStart(now)
	switch {
	case out.LastVibeWeekStart != nil && out.LastVibeWeekStart.Before(prev):
		if out.CurrentStreak != 0 {
			out.CurrentStreak = 0
			ch.StreakReset = true
		}
	case out.LastVibeWeekStart == nil && out.CurrentStreak != 0:
		out.CurrentStreak = 0
		ch.StreakReset = true
	}

	if out.CurrentStreak < 0 {
		out.CurrentStreak = 0
		ch.StreakReset = true
	}
	out.LongestStreak = max(out.LongestStreak, out.CurrentStreak)
	out.Badges, ch.NewBadges = badges.Union(out.Badges, out.LongestStreak)

	return out, ch
}

// Advance applies a vibe accepted at now. The streak continues only when the
// previous vibe fell exactly in the week before now's week; any other history,
// including a recorded week in the future, restarts it at 1.
func Advance(s State, now time.Time) State {
	out := clone(s)

	prev := weeks.PreviousWeekStart(now)
	if out.LastVibeWeekStart != nil && out.LastVibeWeekStart.Equal(prev) {
		out.CurrentStreak++
	} else {
		out.CurrentStreak = 1
	}

	cur := weeks.StartOfWeek(now)
	out.LastVibeWeekStart = &cur
	out.LongestStreak = max(out.LongestStreak, out.CurrentStreak)
	out.Badges, _ = badges.Union(out.Badges, out.LongestStreak)

	return out
}

// Covers reports whether s already records a vibe in the week containing t.
func Covers(s State, t time.Time) bool {
	return s.LastVibeWeekStart != nil && s.LastVibeWeekStart.Equal(weeks.StartOfWeek(t))
}

// Progress reports the next badge for s.
func Progress(s State) badges.Progress {
	return badges.Next(s.Badges, s.LongestStreak)
}

func clone(s State) State {
	out := s
	out.Badges = slices.Clone(s.Badges)
	if s.LastVibeWeekStart != nil {
		t := s.LastVibeWeekStart.UTC()
		out.LastVibeWeekStart = &t
	}
	if out.Badges == nil {
		out.Badges = []string{}
	}
	return out
}
