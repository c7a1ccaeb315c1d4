package timeutil

import (
	"math"
	"time"
)

const DayLayout = "2006-01-02"

func StartOfDay(value time.Time) time.Time {
	return time.Date(value.Year(), value.Month(), value.Day(), 0, 0, 0, 0, value.Location())
}

func SameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}

// Window returns the lookback range ending at now.
func Window(now time.Time, lookbackHours int) (time.Time, time.Time) {
	if lookbackHours < 0 {
		lookbackHours = 0
	}
	return now.Add(-time.Duration(lookbackHours) * time.Hour), now
}

// HoursFor converts seconds to hours rounded up to the next quarter hour.
// Non-positive durations yield exactly zero.
func HoursFor(seconds int) float64 {
	if seconds <= 0 {
		return 0
	}
	// Integer arithmetic keeps exact multiples (3600s) from drifting above a boundary.
	quarters := (int64(seconds) + 899) / 900
	return float64(quarters) / 4
}

// RoundHours rounds to two decimals for display.
func RoundHours(value float64) float64 {
	return math.Round(value*100) / 100
}
