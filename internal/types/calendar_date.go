package types

import (
	"fmt"
	"time"
)

// CalendarDate is a calendar day in YYYY-MM-DD form with no time-of-day.
// All arithmetic happens at UTC midnight so local timezones can never
// shift a date across a day boundary. The zero value "" means absent.
// Lexicographic comparison of the string form is date-correct.
type CalendarDate string

const calendarDateLayout = "2006-01-02"

// ParseCalendarDate parses a strict YYYY-MM-DD string.
func ParseCalendarDate(s string) (CalendarDate, error) {
	if s == "" {
		return "", nil
	}
	t, err := time.ParseInLocation(calendarDateLayout, s, time.UTC)
	if err != nil {
		return "", fmt.Errorf("invalid calendar date %q: %w", s, err)
	}
	return CalendarDate(t.Format(calendarDateLayout)), nil
}

// CalendarDateOf truncates an instant to its UTC calendar day.
func CalendarDateOf(t time.Time) CalendarDate {
	return CalendarDate(t.UTC().Format(calendarDateLayout))
}

// CoerceCalendarDate normalizes loosely-formatted date input to YYYY-MM-DD.
// Accepts YYYY-MM-DD and RFC 3339 timestamps; anything else, including an
// empty string, coerces to fallback. Absence is absorbed, never reported.
func CoerceCalendarDate(s string, fallback CalendarDate) CalendarDate {
	if d, err := ParseCalendarDate(s); err == nil && !d.IsZero() {
		return d
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return CalendarDateOf(t)
	}
	return fallback
}

func (d CalendarDate) IsZero() bool { return d == "" }

func (d CalendarDate) String() string { return string(d) }

// Time returns the UTC midnight instant of the date. Zero dates map to the
// zero time.
func (d CalendarDate) Time() time.Time {
	if d.IsZero() {
		return time.Time{}
	}
	t, err := time.ParseInLocation(calendarDateLayout, string(d), time.UTC)
	if err != nil {
		return time.Time{}
	}
	return t
}

// AddDays returns the date n calendar days later (earlier when n < 0).
func (d CalendarDate) AddDays(n int) CalendarDate {
	return CalendarDateOf(d.Time().AddDate(0, 0, n))
}

// Before reports whether d is strictly earlier than other.
func (d CalendarDate) Before(other CalendarDate) bool {
	return string(d) < string(other)
}

// DaysUntil returns the number of calendar days from d to other. Negative
// when other is earlier.
func (d CalendarDate) DaysUntil(other CalendarDate) int {
	return int(other.Time().Sub(d.Time()) / (24 * time.Hour))
}
