package core

import (
	"strings"
	"time"
)

// DayLayout is the calendar-day format used by expense dates and custom intervals.
const DayLayout = "2006-01-02"

// NormalizeName is the equality key for names, receivers and types. It is
// never used for display.
func NormalizeName(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// SameName reports whether a and b are equal after normalization.
func SameName(a, b string) bool {
	return NormalizeName(a) == NormalizeName(b)
}

// ParseDay parses a YYYY-MM-DD string in UTC. Callers that need local
// midnight should use ParseDayIn.
func ParseDay(s string) (time.Time, error) {
	return ParseDayIn(s, time.UTC)
}

// ParseDayIn parses a YYYY-MM-DD string as midnight in loc.
func ParseDayIn(s string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(DayLayout, strings.TrimSpace(s), loc)
	if err != nil {
		return time.Time{}, ErrInvalidDay
	}
	return t, nil
}

// DaysIn returns the number of days of month in year.
func DaysIn(year int, month time.Month) int {
	// day 0 of the next month is the last day of this one
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
