// Package badges holds the fixed tier table of streak badges.
package badges

import "slices"

// Tier is one badge, awarded once the longest streak reaches Weeks.
type Tier struct {
	Weeks int
	Name  string
}

// AllEarnedName is reported as the next badge once every tier is earned.
const AllEarnedName = "All badges earned!"

// tiers is ordered by ascending Weeks.
var tiers = []Tier{
	{Weeks: 1, Name: "First Push!"},
	{Weeks: 4, Name: "Streak Starter"},
	{Weeks: 13, Name: "Good Deed Grower"},
	{Weeks: 26, Name: "Half-Year High-Five Hero"},
	{Weeks: 39, Name: "Positivity Powerhouse"},
	{Weeks: 52, Name: "The Ultimate Vibe Uplifter"},
}

// Tiers returns a copy of the tier table in ascending order.
func Tiers() []Tier {
	return slices.Clone(tiers)
}

// Qualifying returns the names of every tier whose threshold is at most
// longestStreak, in tier order.
func Qualifying(longestStreak int) []string {
	var names []string
	for _, t := range tiers {
		if longestStreak >= t.Weeks {
			names = append(names, t.Name)
		}
	}
	return names
}

// Union returns earned plus any qualifying names it is missing, and the names
// that were added. Existing entries keep their order; names outside the tier
// table are preserved untouched.
func Union(earned []string, longestStreak int) (all []string, added []string) {
	all = slices.Clone(earned)
	for _, name := range Qualifying(longestStreak) {
		if !slices.Contains(all, name) {
			all = append(all, name)
			added = append(added, name)
		}
	}
	return all, added
}

// Progress describes how close a user is to their next badge.
type Progress struct {
	NextName string
	Percent  int
}

// Next reports the first tier not yet in earned and the percentage of the way
// from the highest earned tier to it, floored and clamped to [0, 100]. When
// every tier is earned it reports AllEarnedName at 100.
func Next(earned []string, longestStreak int) Progress {
	base := 0
	for i := len(tiers) - 1; i >= 0; i-- {
		if slices.Contains(earned, tiers[i].Name) {
			base = tiers[i].Weeks
			break
		}
	}

	for _, t := range tiers {
		if slices.Contains(earned, t.Name) {
			continue
		}
		span := t.Weeks - base
		if span <= 0 {
			// An unearned tier below the highest earned one; treat as complete.
			return Progress{NextName: t.Name, Percent: 100}
		}
		pct := (longestStreak - base) * 100 / span
		if longestStreak < base {
			pct = 0
		}
		return Progress{NextName: t.Name, Percent: min(max(pct, 0), 100)}
	}

	return Progress{NextName: AllEarnedName, Percent: 100}
}
