package catalog

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/username/festival-planner/pkg/dateutil"
)

// ErrMissingField is returned when a catalog record lacks a required field
var ErrMissingField = errors.New("missing required field")

// IDSeparator joins name and start date in derived identifiers
const IDSeparator = "::"

// Event represents a single festival from the catalog
type Event struct {
	ID    string
	Name  string
	Start time.Time
	End   *time.Time // nil for single-day events

	// Extra keeps catalog fields this package does not interpret
	// (location, country, slug, ...) so they survive re-encoding.
	Extra map[string]json.RawMessage
}

// rawEvent mirrors the catalog JSON record
type rawEvent struct {
	ID        string  `json:"id,omitempty"`
	Name      string  `json:"name"`
	StartDate string  `json:"startdatum"`
	EndDate   *string `json:"enddatum,omitempty"`
}

var knownFields = map[string]bool{
	"id":         true,
	"name":       true,
	"startdatum": true,
	"enddatum":   true,
}

// DeriveID builds the identifier used when the catalog omits one
func DeriveID(name, startDate string) string {
	return name + IDSeparator + startDate
}

// Key returns the stable identifier of the event. Decoded events always
// carry an ID derived from the raw startdatum text; the DayKey fallback only
// applies to events built in code without one.
func (e Event) Key() string {
	if e.ID != "" {
		return e.ID
	}
	return DeriveID(e.Name, dateutil.DayKey(e.Start))
}

// LastDay returns the last day of the event (Start for single-day events)
func (e Event) LastDay() time.Time {
	if e.End == nil {
		return e.Start
	}
	return *e.End
}

// Days expands the event into one entry per calendar day.
// Returns dateutil.ErrInvalidRange when End is before Start.
func (e Event) Days() ([]time.Time, error) {
	return dateutil.ExpandDays(e.Start, e.LastDay())
}

// String renders the event like "Name (01.07.2026 – 04.07.2026)"
func (e Event) String() string {
	if e.End == nil || dateutil.IsSameDay(e.Start, *e.End) {
		return fmt.Sprintf("%s (%s)", e.Name, e.Start.Format("02.01.2006"))
	}
	return fmt.Sprintf("%s (%s – %s)", e.Name, e.Start.Format("02.01.2006"), e.End.Format("02.01.2006"))
}

// UnmarshalJSON decodes a catalog record, deriving the ID when absent
func (e *Event) UnmarshalJSON(data []byte) error {
	var raw rawEvent
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("failed to decode event: %w", err)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return fmt.Errorf("failed to decode event fields: %w", err)
	}

	name := strings.TrimSpace(raw.Name)
	if name == "" {
		return fmt.Errorf("%w: name", ErrMissingField)
	}
	if strings.TrimSpace(raw.StartDate) == "" {
		return fmt.Errorf("%w: startdatum (event %q)", ErrMissingField, name)
	}

	start, err := parseCatalogDate(raw.StartDate)
	if err != nil {
		return fmt.Errorf("event %q: invalid startdatum: %w", name, err)
	}

	var end *time.Time
	if raw.EndDate != nil && strings.TrimSpace(*raw.EndDate) != "" {
		parsed, err := parseCatalogDate(*raw.EndDate)
		if err != nil {
			return fmt.Errorf("event %q: invalid enddatum: %w", name, err)
		}
		end = &parsed
	}

	id := raw.ID
	if id == "" {
		id = DeriveID(raw.Name, raw.StartDate)
	}

	extra := make(map[string]json.RawMessage)
	for key, value := range fields {
		if !knownFields[key] {
			extra[key] = value
		}
	}

	*e = Event{
		ID:    id,
		Name:  raw.Name,
		Start: start,
		End:   end,
		Extra: extra,
	}
	return nil
}

// MarshalJSON encodes the event back into the catalog record shape
func (e Event) MarshalJSON() ([]byte, error) {
	fields := make(map[string]any, len(e.Extra)+4)
	for key, value := range e.Extra {
		fields[key] = value
	}

	fields["id"] = e.Key()
	fields["name"] = e.Name
	fields["startdatum"] = dateutil.DayKey(e.Start)
	if e.End != nil {
		fields["enddatum"] = dateutil.DayKey(*e.End)
	} else {
		fields["enddatum"] = nil
	}

	return json.Marshal(fields)
}

// Decode parses a JSON array of catalog records. Malformed records are
// skipped; their errors are returned alongside the valid events.
func Decode(data []byte) ([]Event, []error) {
	var records []json.RawMessage
	if err := json.Unmarshal(bytes.TrimSpace(data), &records); err != nil {
		return nil, []error{fmt.Errorf("catalog is not a JSON array: %w", err)}
	}

	events := make([]Event, 0, len(records))
	var errs []error

	for i, record := range records {
		if bytes.Equal(bytes.TrimSpace(record), []byte("null")) {
			errs = append(errs, fmt.Errorf("record %d: %w: null record", i, ErrMissingField))
			continue
		}

		var ev Event
		if err := json.Unmarshal(record, &ev); err != nil {
			errs = append(errs, fmt.Errorf("record %d: %w", i, err))
			continue
		}
		events = append(events, ev)
	}

	return events, errs
}

// Encode serializes events as an indented JSON array
func Encode(events []Event) ([]byte, error) {
	if events == nil {
		events = []Event{}
	}
	data, err := json.MarshalIndent(events, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode catalog: %w", err)
	}
	return data, nil
}

func parseCatalogDate(value string) (time.Time, error) {
	t, err := dateutil.ParseDate(strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, err
	}
	return dateutil.StartOfDay(t), nil
}
