package dateutil

import (
	"errors"
	"fmt"
	"time"
)

// DayKeyLayout is the canonical layout used to index day-level data
const DayKeyLayout = "2006-01-02"

// ErrInvalidRange is returned when an interval ends before it starts
var ErrInvalidRange = errors.New("invalid date range: end before start")

// StartOfDay returns the start of the day (00:00:00) for the given date
func StartOfDay(date time.Time) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
}

// StartOfWeek returns the Monday of the week for the given date
func StartOfWeek(date time.Time) time.Time {
	weekday := int(date.Weekday())
	if weekday == 0 {
		weekday = 7 // Sunday = 7
	}
	daysFromMonday := weekday - 1
	return StartOfDay(date.AddDate(0, 0, -daysFromMonday))
}

// EndOfWeek returns the Sunday (start of day) of the week for the given date
func EndOfWeek(date time.Time) time.Time {
	return StartOfWeek(date).AddDate(0, 0, 6)
}

// GetWeekNumber returns the ISO week number for the given date
func GetWeekNumber(date time.Time) (year int, week int) {
	year, week = date.ISOWeek()
	return
}

// IsWeekend returns true if the date is Saturday or Sunday
func IsWeekend(date time.Time) bool {
	weekday := date.Weekday()
	return weekday == time.Saturday || weekday == time.Sunday
}

// IsSameDay returns true if two dates are on the same day
func IsSameDay(date1, date2 time.Time) bool {
	return date1.Year() == date2.Year() &&
		date1.Month() == date2.Month() &&
		date1.Day() == date2.Day()
}

// DayKey formats a date as YYYY-MM-DD
func DayKey(date time.Time) string {
	return date.Format(DayKeyLayout)
}

// ParseDayKey parses a YYYY-MM-DD key into a UTC date
func ParseDayKey(key string) (time.Time, error) {
	t, err := time.Parse(DayKeyLayout, key)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid day key %q: %w", key, err)
	}
	return t, nil
}

// ExpandDays returns one entry per calendar day in [start, end], ascending.
// Every entry is midnight in start's location.
func ExpandDays(start, end time.Time) ([]time.Time, error) {
	first := StartOfDay(start)
	last := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, start.Location())

	if last.Before(first) {
		return nil, fmt.Errorf("%w: %s > %s", ErrInvalidRange, DayKey(first), DayKey(last))
	}

	days := make([]time.Time, 0, int(last.Sub(first).Hours()/24)+1)
	for day := first; !day.After(last); day = day.AddDate(0, 0, 1) {
		days = append(days, day)
	}

	return days, nil
}

// ParseDate parses date string in various formats
func ParseDate(dateStr string) (time.Time, error) {
	formats := []string{
		DayKeyLayout,
		"02.01.2006",
		"20060102",
		"2006-01-02T15:04:05",
		"2006-01-02T15:04:05Z",
		"2006-01-02T15:04:05-0700",
		time.RFC3339,
	}

	for _, format := range formats {
		if t, err := time.Parse(format, dateStr); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("unsupported date format: %q", dateStr)
}

// Today returns today's date (start of day)
func Today() time.Time {
	return StartOfDay(time.Now())
}
