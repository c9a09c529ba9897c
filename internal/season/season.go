package season

import (
	"time"
)

// DefaultMinMatches is how many matches a user must have played in a season
// before appearing on the individual ranked ladder.
const DefaultMinMatches = 7

// Schedule maps season numbers to date ranges. Seasons are fixed-length
// periods separated by an off-season gap, counted from the epoch of season 0.
type Schedule struct {
	Epoch  time.Time     `yaml:"epoch"`
	Length time.Duration `yaml:"length"`
	Gap    time.Duration `yaml:"gap"`
	// MinMatches is the per-season ranked-ladder entry requirement.
	MinMatches int `yaml:"min_matches"`
}

// DefaultSchedule mirrors the production cadence: quarterly seasons with a
// two-week off-season in between.
func DefaultSchedule() Schedule {
	return Schedule{
		Epoch:      time.Date(2023, time.May, 1, 0, 0, 0, 0, time.UTC),
		Length:     12 * 7 * 24 * time.Hour,
		Gap:        2 * 7 * 24 * time.Hour,
		MinMatches: DefaultMinMatches,
	}
}

// Boundary returns the [startsAt, endsAt) range of a season. Pure; negative
// seasons extrapolate backwards so callers never need to special-case them.
func (s Schedule) Boundary(season int) (startsAt, endsAt time.Time) {
	period := s.Length + s.Gap
	startsAt = s.Epoch.Add(time.Duration(season) * period)
	endsAt = startsAt.Add(s.Length)
	return startsAt, endsAt
}

// Current returns the season containing now, or ok=false during an
// off-season gap (or before the epoch).
func (s Schedule) Current(now time.Time) (int, bool) {
	if now.Before(s.Epoch) {
		return 0, false
	}
	period := s.Length + s.Gap
	n := int(now.Sub(s.Epoch) / period)
	starts, ends := s.Boundary(n)
	if now.Before(starts) || !now.Before(ends) {
		return n, false
	}
	return n, true
}

// Latest returns the most recent season that has started by now, counting an
// off-season toward the season that just ended. Useful for leaderboard reads
// that stay meaningful between seasons.
func (s Schedule) Latest(now time.Time) int {
	if now.Before(s.Epoch) {
		return 0
	}
	period := s.Length + s.Gap
	return int(now.Sub(s.Epoch) / period)
}

// MinMatchesFor returns the ranked-ladder entry requirement for a season.
func (s Schedule) MinMatchesFor(season int) int {
	if s.MinMatches > 0 {
		return s.MinMatches
	}
	return DefaultMinMatches
}
