package leaderboard

import "math"

// The user-facing "power" number is a fixed monotonic transform of the
// ordinal, shifted so fresh ratings land near the base value.
const (
	powerMultiplier = 15.0
	powerBase       = 1000.0
)

// PowerFromOrdinal converts an ordinal to display power, rounded to one
// decimal place.
func PowerFromOrdinal(ordinal float64) float64 {
	return math.Round((ordinal*powerMultiplier+powerBase)*10) / 10
}
