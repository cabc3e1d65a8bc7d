package overview

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/username/festival-planner/internal/catalog"
	"github.com/username/festival-planner/internal/grid"
	"github.com/username/festival-planner/internal/holiday"
	"github.com/username/festival-planner/internal/preferences"
)

// EventView is a catalog event with its liked flag
type EventView struct {
	catalog.Event
	Liked bool
}

// WeekView is a week row with the events starting in that ISO week.
// Running holds events that started in an earlier week and still last
// into this one.
type WeekView struct {
	Row     grid.WeekRow
	Events  []EventView
	Running []EventView
}

// MonthView is the week list of one month
type MonthView struct {
	Month time.Month
	Weeks []WeekView
}

// Board holds the inputs of the overview. Catalog and holidays are set
// independently by loaders finishing in any order; derived views are
// recomputed on every read.
type Board struct {
	year   int
	store  *preferences.Store
	logger *zap.Logger

	mu        sync.RWMutex
	events    []catalog.Event
	holidays  holiday.Index
	listeners []func()
}

// NewBoard creates a new Board for year and subscribes to store changes
func NewBoard(year int, store *preferences.Store, logger *zap.Logger) *Board {
	b := &Board{
		year:     year,
		store:    store,
		logger:   logger,
		events:   []catalog.Event{},
		holidays: make(holiday.Index),
	}
	store.Subscribe(func(preferences.Set) {
		b.changed()
	})
	return b
}

// Year returns the planning year
func (b *Board) Year() int {
	return b.year
}

// Store returns the preference store backing the board
func (b *Board) Store() *preferences.Store {
	return b.store
}

// OnChange registers fn to run after any input changes
func (b *Board) OnChange(fn func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners = append(b.listeners, fn)
}

// SetEvents replaces the catalog
func (b *Board) SetEvents(events []catalog.Event) {
	if events == nil {
		events = []catalog.Event{}
	}
	b.mu.Lock()
	b.events = events
	b.mu.Unlock()

	b.logger.Debug("Board catalog updated", zap.Int("events", len(events)))
	b.changed()
}

// SetHolidays replaces the holiday index
func (b *Board) SetHolidays(idx holiday.Index) {
	if idx == nil {
		idx = make(holiday.Index)
	}
	b.mu.Lock()
	b.holidays = idx
	b.mu.Unlock()

	b.logger.Debug("Board holidays updated", zap.Int("days", len(idx)))
	b.changed()
}

// Events returns the current catalog
func (b *Board) Events() []catalog.Event {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.events
}

// Holidays returns the current holiday index
func (b *Board) Holidays() holiday.Index {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.holidays
}

// Find returns the catalog event with the given key
func (b *Board) Find(id string) (catalog.Event, bool) {
	for _, ev := range b.Events() {
		if ev.Key() == id {
			return ev, true
		}
	}
	return catalog.Event{}, false
}

// LikedEvents returns the liked events in catalog order
func (b *Board) LikedEvents() []catalog.Event {
	liked := b.store.Current()
	var result []catalog.Event
	for _, ev := range b.Events() {
		if liked.Has(ev.Key()) {
			result = append(result, ev)
		}
	}
	return result
}

// Cells aggregates the current inputs
func (b *Board) Cells() Cells {
	b.mu.RLock()
	events, holidays := b.events, b.holidays
	b.mu.RUnlock()

	return Aggregate(events, b.store.Current(), holidays, b.logger)
}

// Month returns the 7-column day grid of month with aggregated cells
func (b *Board) Month(month time.Month) [][]DayCell {
	cells := b.Cells()
	days := grid.MonthDays(b.year, month)

	weeks := make([][]DayCell, len(days))
	for i, week := range days {
		row := make([]DayCell, len(week))
		for j, day := range week {
			cell := cells.Get(day.Key)
			cell.Date = day.Date
			cell.InMonth = day.InMonth
			row[j] = cell
		}
		weeks[i] = row
	}
	return weeks
}

// Weeks returns the week rows of month with the events of each week
func (b *Board) Weeks(month time.Month) []WeekView {
	return b.weekViews(grid.BuildMonthWeeks(b.year, month), b.Events(), b.store.Current())
}

// YearWeeks returns the week lists of all twelve months
func (b *Board) YearWeeks() []MonthView {
	events := b.Events()
	liked := b.store.Current()

	months := grid.BuildYear(b.year)
	views := make([]MonthView, 0, len(months))
	for _, m := range months {
		views = append(views, MonthView{
			Month: m.Month,
			Weeks: b.weekViews(m.Weeks, events, liked),
		})
	}
	return views
}

func (b *Board) weekViews(rows []grid.WeekRow, events []catalog.Event, liked preferences.Set) []WeekView {
	byWeek := grid.GroupByWeek(events)

	views := make([]WeekView, 0, len(rows))
	for _, row := range rows {
		view := WeekView{Row: row}
		for _, ev := range byWeek[row.Number] {
			view.Events = append(view.Events, EventView{Event: ev, Liked: liked.Has(ev.Key())})
		}
		for _, ev := range grid.EventsInWeek(events, row.Monday) {
			if ev.Start.Before(row.Monday) {
				view.Running = append(view.Running, EventView{Event: ev, Liked: liked.Has(ev.Key())})
			}
		}
		views = append(views, view)
	}
	return views
}

func (b *Board) changed() {
	b.mu.RLock()
	listeners := make([]func(), len(b.listeners))
	copy(listeners, b.listeners)
	b.mu.RUnlock()

	for _, fn := range listeners {
		fn()
	}
}
