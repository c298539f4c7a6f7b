// Package weeks maps instants onto the Monday-to-Sunday UTC week grid that
// drives streak accounting.
//
// Every boundary returned here is Monday 00:00:00.000 UTC. Callers compare
// boundaries with time.Time.Equal, never with ==, because values read back
// from MongoDB carry a different location pointer.
package weeks

import "time"

// Week is the length of one streak period.
const Week = 7 * 24 * time.Hour

// StartOfWeek returns Monday 00:00:00 UTC of the week that contains t.
// The input is converted to UTC first, so the weekday is the UTC weekday.
func StartOfWeek(t time.Time) time.Time {
	u := t.UTC()
	// Sunday is 0 in time.Weekday; shift so Monday is offset 0.
	offset := (int(u.Weekday()) + 6) % 7
	return time.Date(u.Year(), u.Month(), u.Day()-offset, 0, 0, 0, 0, time.UTC)
}

// NextWeekStart returns the first instant of the week after the one containing t.
func NextWeekStart(t time.Time) time.Time {
	return StartOfWeek(t).AddDate(0, 0, 7)
}

// PreviousWeekStart returns the first instant of the week before the one containing t.
func PreviousWeekStart(t time.Time) time.Time {
	return StartOfWeek(t).AddDate(0, 0, -7)
}

// IsStart reports whether t is exactly a canonical week boundary.
func IsStart(t time.Time) bool {
	return t.Equal(StartOfWeek(t))
}
