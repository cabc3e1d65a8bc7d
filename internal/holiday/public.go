package holiday

import (
	"time"

	"github.com/username/festival-planner/pkg/dateutil"
)

type fixedHoliday struct {
	month time.Month
	day   int
	label string
}

type movableHoliday struct {
	offset int // days relative to Easter Sunday
	label  string
}

var nrwFixed = []fixedHoliday{
	{time.January, 1, "Neujahr"},
	{time.May, 1, "Tag der Arbeit"},
	{time.October, 3, "Tag der Deutschen Einheit"},
	{time.November, 1, "Allerheiligen"},
	{time.December, 25, "1. Weihnachtstag"},
	{time.December, 26, "2. Weihnachtstag"},
}

var nrwMovable = []movableHoliday{
	{-2, "Karfreitag"},
	{1, "Ostermontag"},
	{39, "Christi Himmelfahrt"},
	{50, "Pfingstmontag"},
	{60, "Fronleichnam"},
}

// PublicHolidays returns the statutory holidays of North Rhine-Westphalia
func PublicHolidays(year int) Index {
	idx := make(Index, len(nrwFixed)+len(nrwMovable))

	for _, h := range nrwFixed {
		idx[dateutil.DayKey(time.Date(year, h.month, h.day, 0, 0, 0, 0, time.UTC))] = h.label
	}

	easter := EasterSunday(year)
	for _, h := range nrwMovable {
		idx[dateutil.DayKey(easter.AddDate(0, 0, h.offset))] = h.label
	}

	return idx
}

// EasterSunday computes Easter Sunday (Gregorian) with the anonymous
// Meeus/Jones/Butcher algorithm
func EasterSunday(year int) time.Time {
	a := year % 19
	b := year / 100
	c := year % 100
	d := b / 4
	e := b % 4
	f := (b + 8) / 25
	g := (b - f + 1) / 3
	h := (19*a + b - d - g + 15) % 30
	i := c / 4
	k := c % 4
	l := (32 + 2*e + 2*i - h - k) % 7
	m := (a + 11*h + 22*l) / 451
	month := (h + l - 7*m + 114) / 31
	day := (h+l-7*m+114)%31 + 1

	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
}
