package overview

import (
	"time"

	"go.uber.org/zap"

	"github.com/username/festival-planner/internal/catalog"
	"github.com/username/festival-planner/internal/holiday"
	"github.com/username/festival-planner/internal/preferences"
	"github.com/username/festival-planner/pkg/dateutil"
)

// Tier is the liked-event density of a day
type Tier int

const (
	TierNone Tier = iota
	TierSingle
	TierMultiple
)

func (t Tier) String() string {
	switch t {
	case TierSingle:
		return "single"
	case TierMultiple:
		return "multiple"
	default:
		return "none"
	}
}

// DayCell is the render-ready state of one calendar day
type DayCell struct {
	Key          string
	Date         time.Time
	InMonth      bool
	Liked        []catalog.Event
	Holiday      bool
	HolidayLabel string
}

// Tier returns the density tier. Holidays are reported separately.
func (c DayCell) Tier() Tier {
	switch {
	case len(c.Liked) == 0:
		return TierNone
	case len(c.Liked) == 1:
		return TierSingle
	default:
		return TierMultiple
	}
}

// Cells maps day keys to cells
type Cells map[string]DayCell

// Get returns the cell for key, or an empty cell for that day
func (c Cells) Get(key string) DayCell {
	if cell, ok := c[key]; ok {
		return cell
	}
	date, _ := dateutil.ParseDayKey(key)
	return DayCell{Key: key, Date: date}
}

// Aggregate joins liked events and holidays onto days. Liked events keep
// catalog order within a day. Events with inverted ranges contribute nothing.
func Aggregate(events []catalog.Event, liked preferences.Set, holidays holiday.Index, logger *zap.Logger) Cells {
	cells := make(Cells)

	cellFor := func(day time.Time) DayCell {
		key := dateutil.DayKey(day)
		if cell, ok := cells[key]; ok {
			return cell
		}
		label, isHoliday := holidays.Lookup(day)
		return DayCell{
			Key:          key,
			Date:         dateutil.StartOfDay(day),
			Holiday:      isHoliday,
			HolidayLabel: label,
		}
	}

	for _, ev := range events {
		if !liked.Has(ev.Key()) {
			continue
		}

		days, err := ev.Days()
		if err != nil {
			if logger != nil {
				logger.Warn("Skipping liked event with invalid range",
					zap.String("event", ev.Key()),
					zap.Error(err))
			}
			continue
		}

		for _, day := range days {
			cell := cellFor(day)
			cell.Liked = append(cell.Liked, ev)
			cells[cell.Key] = cell
		}
	}

	for _, key := range holidays.Keys() {
		if _, ok := cells[key]; ok {
			continue
		}
		label := holidays[key]
		date, err := dateutil.ParseDayKey(key)
		if err != nil {
			continue
		}
		cells[key] = DayCell{
			Key:          key,
			Date:         date,
			Holiday:      true,
			HolidayLabel: label,
		}
	}

	return cells
}
