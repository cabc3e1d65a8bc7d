package export

import (
	"encoding/json"
	"net/url"
	"time"

	ics "github.com/arran4/golang-ical"

	"github.com/username/festival-planner/internal/catalog"
	"github.com/username/festival-planner/internal/preferences"
)

const productID = "-//festival-planner//liked festivals//DE"

// LikedICS renders every liked event as an all-day VEVENT.
// DTEND is exclusive, one day after the last festival day.
func LikedICS(events []catalog.Event, liked preferences.Set, now time.Time) string {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId(productID)

	for _, ev := range events {
		if !liked.Has(ev.Key()) {
			continue
		}
		if ev.LastDay().Before(ev.Start) {
			continue
		}

		vevent := cal.AddEvent(url.PathEscape(ev.Key()) + "@festival-planner")
		vevent.SetDtStampTime(now.UTC())
		vevent.SetSummary(ev.Name)
		vevent.SetAllDayStartAt(ev.Start)
		vevent.SetAllDayEndAt(ev.LastDay().AddDate(0, 0, 1))

		if location := extraString(ev, "ort"); location != "" {
			vevent.SetLocation(location)
		}
	}

	return cal.Serialize()
}

func extraString(ev catalog.Event, key string) string {
	raw, ok := ev.Extra[key]
	if !ok {
		return ""
	}
	var value string
	if err := json.Unmarshal(raw, &value); err != nil {
		return ""
	}
	return value
}
