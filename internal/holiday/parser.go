package holiday

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/teambition/rrule-go"
	"go.uber.org/zap"

	"github.com/username/festival-planner/pkg/dateutil"
)

const blockSeparator = "BEGIN:VEVENT"

var (
	dtstartPattern = regexp.MustCompile(`DTSTART(?:;VALUE=DATE)?:(\d{8})`)
	dtendPattern   = regexp.MustCompile(`DTEND(?:;VALUE=DATE)?:(\d{8})`)
	summaryPattern = regexp.MustCompile(`(?m)SUMMARY:(.*)$`)
	rrulePattern   = regexp.MustCompile(`(?m)RRULE:(.*)$`)

	errMissingField = errors.New("missing field")
)

// ParseResult is the outcome of parsing a holiday calendar text
type ParseResult struct {
	Index   Index
	Blocks  int
	Skipped int
}

// Parser turns interval block text into a holiday Index.
// The format is matched leniently line by line; a bad block never aborts the parse.
type Parser struct {
	logger      *zap.Logger
	windowStart time.Time
	windowEnd   time.Time
}

// NewParser creates a new Parser. Recurring blocks are expanded inside the
// year window [fromYear, toYear].
func NewParser(fromYear, toYear int, logger *zap.Logger) *Parser {
	if toYear < fromYear {
		toYear = fromYear
	}
	return &Parser{
		logger:      logger,
		windowStart: time.Date(fromYear, time.January, 1, 0, 0, 0, 0, time.UTC),
		windowEnd:   time.Date(toYear, time.December, 31, 0, 0, 0, 0, time.UTC),
	}
}

// Parse builds the index. Later blocks overwrite earlier ones on the same day.
func (p *Parser) Parse(text string) ParseResult {
	result := ParseResult{Index: make(Index)}

	segments := strings.Split(text, blockSeparator)
	for i, block := range segments[1:] {
		result.Blocks++

		intervals, label, err := p.parseBlock(block)
		if err != nil {
			result.Skipped++
			p.logger.Warn("Skipping holiday block",
				zap.Int("block", i+1),
				zap.Error(err))
			continue
		}

		for _, iv := range intervals {
			days, err := dateutil.ExpandDays(iv.start, iv.end)
			if err != nil {
				result.Skipped++
				p.logger.Warn("Skipping holiday block with invalid range",
					zap.Int("block", i+1),
					zap.String("summary", label),
					zap.Error(err))
				break
			}
			for _, day := range days {
				result.Index[dateutil.DayKey(day)] = label
			}
		}
	}

	p.logger.Debug("Holiday text parsed",
		zap.Int("blocks", result.Blocks),
		zap.Int("skipped", result.Skipped),
		zap.Int("days", len(result.Index)))

	return result
}

type interval struct {
	start time.Time
	end   time.Time // inclusive
}

func (p *Parser) parseBlock(block string) ([]interval, string, error) {
	// Content after END:VEVENT belongs to the calendar, not the block
	if idx := strings.Index(block, "END:VEVENT"); idx >= 0 {
		block = block[:idx]
	}

	startMatch := dtstartPattern.FindStringSubmatch(block)
	if startMatch == nil {
		return nil, "", fmt.Errorf("%w: DTSTART", errMissingField)
	}
	endMatch := dtendPattern.FindStringSubmatch(block)
	if endMatch == nil {
		return nil, "", fmt.Errorf("%w: DTEND", errMissingField)
	}
	summaryMatch := summaryPattern.FindStringSubmatch(block)
	if summaryMatch == nil {
		return nil, "", fmt.Errorf("%w: SUMMARY", errMissingField)
	}
	label := strings.TrimSpace(summaryMatch[1])

	start, err := time.Parse("20060102", startMatch[1])
	if err != nil {
		return nil, label, fmt.Errorf("invalid DTSTART %q: %w", startMatch[1], err)
	}
	exclusiveEnd, err := time.Parse("20060102", endMatch[1])
	if err != nil {
		return nil, label, fmt.Errorf("invalid DTEND %q: %w", endMatch[1], err)
	}
	end := exclusiveEnd.AddDate(0, 0, -1)

	rruleMatch := rrulePattern.FindStringSubmatch(block)
	if rruleMatch == nil {
		return []interval{{start: start, end: end}}, label, nil
	}

	occurrences, err := p.expandRule(strings.TrimSpace(rruleMatch[1]), start)
	if err != nil {
		return nil, label, err
	}

	length := end.Sub(start)
	intervals := make([]interval, 0, len(occurrences))
	for _, occ := range occurrences {
		occStart := dateutil.StartOfDay(occ)
		intervals = append(intervals, interval{start: occStart, end: occStart.Add(length)})
	}

	return intervals, label, nil
}

func (p *Parser) expandRule(rule string, start time.Time) ([]time.Time, error) {
	r, err := rrule.StrToRRule(rule)
	if err != nil {
		return nil, fmt.Errorf("invalid RRULE %q: %w", rule, err)
	}
	r.DTStart(start)

	return r.Between(p.windowStart, p.windowEnd, true), nil
}
