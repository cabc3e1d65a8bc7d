package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"
)

const importerUserAgent = "Mozilla/5.0 (compatible; festival-planner/1.0)"

var (
	rangePattern  = regexp.MustCompile(`^(\d{2})\.(\d{2})\.\s*-\s*(\d{2})\.(\d{2})\.`)
	singlePattern = regexp.MustCompile(`^(\d{2})\.(\d{2})\.`)
)

// Row is one table row of the festival listing page
type Row struct {
	Date    string
	Name    string
	Country string
	Zip     string
	City    string
	Link    string
}

// Importer scrapes a festival listing page into catalog events
type Importer struct {
	year     int
	timeout  time.Duration
	skipName []string
	existing []Event
	logger   *zap.Logger
}

// NewImporter creates a new Importer for the given catalog year
func NewImporter(year int, timeout time.Duration, logger *zap.Logger) *Importer {
	return &Importer{
		year:     year,
		timeout:  timeout,
		skipName: []string{"Irish "},
		logger:   logger,
	}
}

// KeepIDs makes the importer reuse the IDs of events already in a catalog.
// A listed festival with the same name and start date keeps its ID, and no
// new festival is assigned an ID that is already taken.
func (im *Importer) KeepIDs(existing []Event) {
	im.existing = existing
}

// Import visits pageURL and converts every listing row into an Event.
// Rows with unparseable dates are logged and skipped.
func (im *Importer) Import(ctx context.Context, pageURL string) ([]Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c := colly.NewCollector(colly.UserAgent(importerUserAgent))
	if im.timeout > 0 {
		c.SetRequestTimeout(im.timeout)
	}

	var rows []Row
	tables := 0

	c.OnHTML("tbody.vevent", func(tbody *colly.HTMLElement) {
		tables++
		tbody.ForEach("tr", func(_ int, tr *colly.HTMLElement) {
			var cells []string
			link := ""
			tr.ForEach("td", func(i int, td *colly.HTMLElement) {
				cells = append(cells, strings.TrimSpace(td.Text))
				if i == 1 {
					link = td.ChildAttr("a", "href")
				}
			})
			if len(cells) < 3 {
				return
			}
			rows = append(rows, Row{
				Date:    cells[0],
				Name:    cells[1],
				Country: cells[2],
				Zip:     cellAt(cells, 3),
				City:    cellAt(cells, 4),
				Link:    link,
			})
		})
	})

	var visitErr error
	c.OnError(func(r *colly.Response, err error) {
		visitErr = fmt.Errorf("status %d: %w", r.StatusCode, err)
	})

	im.logger.Info("Importing festival listing", zap.String("url", pageURL))

	if err := c.Visit(pageURL); err != nil {
		if visitErr != nil {
			return nil, fmt.Errorf("failed to load listing: %w", visitErr)
		}
		return nil, fmt.Errorf("failed to load listing: %w", err)
	}
	if visitErr != nil {
		return nil, fmt.Errorf("failed to load listing: %w", visitErr)
	}

	events := im.Convert(rows)

	im.logger.Info("Festival listing imported",
		zap.Int("tables", tables),
		zap.Int("rows", len(rows)),
		zap.Int("events", len(events)))

	return events, nil
}

// Convert turns scraped rows into events with freshly allocated short IDs
func (im *Importer) Convert(rows []Row) []Event {
	ids := NewIDAllocator(DefaultIDLength)
	known := make(map[string]string, len(im.existing))
	for _, ev := range im.existing {
		ids.Reserve(ev.Key())
		known[ev.Name+ev.Start.Format("2006-01-02")] = ev.Key()
	}
	events := make([]Event, 0, len(rows))

	for _, row := range rows {
		if im.skipped(row.Name) {
			continue
		}

		start, end, err := ParseListingDate(row.Date, im.year)
		if err != nil {
			im.logger.Warn("Skipping row with invalid date",
				zap.String("name", row.Name),
				zap.String("date", row.Date),
				zap.Error(err))
			continue
		}

		seed := row.Name + start.Format("2006-01-02")
		id, ok := known[seed]
		if ok {
			delete(known, seed)
		} else {
			id = ids.Next(seed)
		}

		ev := Event{
			ID:    id,
			Name:  row.Name,
			Start: start,
			Extra: map[string]json.RawMessage{
				"ort":      mustRaw(row.City),
				"land":     mustRaw(row.Country),
				"plz":      mustRaw(row.Zip),
				"slug":     mustRaw(slug(row.Link)),
				"rawdatum": mustRaw(row.Date),
			},
		}
		ev.End = &end
		events = append(events, ev)
	}

	return events
}

func (im *Importer) skipped(name string) bool {
	for _, prefix := range im.skipName {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}

// ParseListingDate parses "04.06." or "02.11.-06.11." into start and end
// dates within year. Single dates return start == end.
func ParseListingDate(value string, year int) (time.Time, time.Time, error) {
	value = strings.TrimSpace(value)

	if m := rangePattern.FindStringSubmatch(value); m != nil {
		start, err := civilDate(year, m[2], m[1])
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		end, err := civilDate(year, m[4], m[3])
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		return start, end, nil
	}

	if m := singlePattern.FindStringSubmatch(value); m != nil {
		start, err := civilDate(year, m[2], m[1])
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		return start, start, nil
	}

	return time.Time{}, time.Time{}, fmt.Errorf("unrecognized listing date %q", value)
}

func civilDate(year int, monthStr, dayStr string) (time.Time, error) {
	month, _ := strconv.Atoi(monthStr)
	day, _ := strconv.Atoi(dayStr)

	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Month() != time.Month(month) || t.Day() != day {
		return time.Time{}, fmt.Errorf("day %s.%s. does not exist in %d", dayStr, monthStr, year)
	}
	return t, nil
}

// slug strips host and path from a listing link, keeping the last segment
func slug(link string) string {
	parts := strings.Split(strings.TrimRight(link, "/"), "/")
	return parts[len(parts)-1]
}

func cellAt(cells []string, i int) string {
	if i < len(cells) {
		return cells[i]
	}
	return ""
}

func mustRaw(s string) json.RawMessage {
	data, _ := json.Marshal(s)
	return data
}
