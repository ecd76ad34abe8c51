package scanner

import (
	"fmt"
	"math"
)

type durationUnit struct {
	name    string
	seconds float64
	// below is the first duration, in seconds, that belongs to the next unit.
	below float64
}

var durationUnits = []durationUnit{
	{name: "seconds", seconds: 1, below: 60},
	{name: "minutes", seconds: 60, below: 3600},
	{name: "hours", seconds: 3600, below: 86400},
	{name: "days", seconds: 86400, below: 2592000},
	{name: "months", seconds: 2592000, below: 31536000},
	{name: "years", seconds: 31536000, below: math.Inf(1)},
}

// FormatDuration renders seconds in the largest sensible unit with one
// decimal place. The unit is picked from the unrounded duration, so
// 59.96 seconds prints as "60.0 seconds" and 364.5 days stays in months.
func FormatDuration(seconds float64) string {
	if math.IsNaN(seconds) || seconds < 0 {
		seconds = 0
	}
	if math.IsInf(seconds, 1) {
		return "∞ years"
	}

	for _, u := range durationUnits {
		if seconds < u.below {
			v := math.Round(seconds/u.seconds*10) / 10
			return fmt.Sprintf("%.1f %s", v, u.name)
		}
	}

	// Unreachable, the last unit has no upper bound.
	return "∞ years"
}
