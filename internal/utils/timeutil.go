package utils

import (
	"math"
	"time"
)

// DateLayout is the calendar-day format used in logs, keys and snapshots.
const DateLayout = "2006-01-02"

// Day truncates t to midnight UTC of its calendar day. The wall clock date of t
// is kept, whatever its location.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Today returns the current calendar day in UTC.
func Today() time.Time {
	return Day(time.Now().UTC())
}

// AddDays shifts a calendar day by n days.
func AddDays(day time.Time, n int) time.Time {
	return Day(day).AddDate(0, 0, n)
}

// DaysBetween returns the signed number of calendar days from a to b.
//
//	DaysBetween(2026-01-01, 2026-01-08) // → 7
//	DaysBetween(2026-01-08, 2026-01-01) // → -7
func DaysBetween(a, b time.Time) int {
	return int(math.Round(Day(b).Sub(Day(a)).Hours() / 24))
}

// DateInRange checks if a date lies between two boundaries (inclusive).
func DateInRange(date, start, end time.Time) bool {
	return (date.Equal(start) || date.After(start)) && (date.Equal(end) || date.Before(end))
}

// FormatDay formats a calendar day as YYYY-MM-DD.
func FormatDay(t time.Time) string {
	return t.Format(DateLayout)
}
