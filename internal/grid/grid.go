package grid

import (
	"time"

	"github.com/username/festival-planner/internal/catalog"
	"github.com/username/festival-planner/pkg/dateutil"
)

// WeekRow is one ISO week whose Monday falls inside a month
type WeekRow struct {
	Number int       // ISO week number, 1..53
	Year   int       // ISO week-numbering year
	Monday time.Time // midnight UTC
}

// Key returns the day key of the row's Monday
func (w WeekRow) Key() string {
	return dateutil.DayKey(w.Monday)
}

// Sunday returns the last day of the week
func (w WeekRow) Sunday() time.Time {
	return w.Monday.AddDate(0, 0, 6)
}

// MonthWeeks groups the week rows of a single month
type MonthWeeks struct {
	Month time.Month
	Weeks []WeekRow
}

// Day is one cell of a month grid
type Day struct {
	Date    time.Time
	Key     string
	InMonth bool
}

// BuildMonthWeeks returns every week whose Monday lies in the given month.
// Mondays are strictly increasing by 7 days.
func BuildMonthWeeks(year int, month time.Month) []WeekRow {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1)

	candidate := dateutil.StartOfWeek(first)
	if candidate.Before(first) {
		candidate = candidate.AddDate(0, 0, 7)
	}

	var rows []WeekRow
	for !candidate.After(last) {
		isoYear, week := dateutil.GetWeekNumber(candidate)
		rows = append(rows, WeekRow{
			Number: week,
			Year:   isoYear,
			Monday: candidate,
		})
		candidate = candidate.AddDate(0, 0, 7)
	}

	return rows
}

// BuildYear returns the week rows of all twelve months
func BuildYear(year int) []MonthWeeks {
	months := make([]MonthWeeks, 0, 12)
	for m := time.January; m <= time.December; m++ {
		months = append(months, MonthWeeks{
			Month: m,
			Weeks: BuildMonthWeeks(year, m),
		})
	}
	return months
}

// MonthDays returns a 7-column grid covering the month, padded with days of
// the neighbouring months to full Monday..Sunday weeks
func MonthDays(year int, month time.Month) [][]Day {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1)

	start := dateutil.StartOfWeek(first)
	end := dateutil.EndOfWeek(last)

	var weeks [][]Day
	for day := start; !day.After(end); day = day.AddDate(0, 0, 7) {
		week := make([]Day, 7)
		for i := range week {
			d := day.AddDate(0, 0, i)
			week[i] = Day{
				Date:    d,
				Key:     dateutil.DayKey(d),
				InMonth: d.Month() == month,
			}
		}
		weeks = append(weeks, week)
	}

	return weeks
}

// GroupByWeek buckets events by the ISO week of their start date.
// Catalog order is kept within each bucket.
func GroupByWeek(events []catalog.Event) map[int][]catalog.Event {
	byWeek := make(map[int][]catalog.Event)
	for _, ev := range events {
		_, week := dateutil.GetWeekNumber(ev.Start)
		byWeek[week] = append(byWeek[week], ev)
	}
	return byWeek
}

// EventsInWeek returns the events overlapping the week starting at monday
func EventsInWeek(events []catalog.Event, monday time.Time) []catalog.Event {
	sunday := monday.AddDate(0, 0, 6)
	var result []catalog.Event
	for _, ev := range events {
		start := dateutil.StartOfDay(ev.Start)
		last := dateutil.StartOfDay(ev.LastDay())
		if last.Before(start) {
			continue
		}
		if !start.After(sunday) && !last.Before(monday) {
			result = append(result, ev)
		}
	}
	return result
}
