package render

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/username/festival-planner/internal/catalog"
	"github.com/username/festival-planner/internal/overview"
	"github.com/username/festival-planner/pkg/dateutil"
)

var germanMonths = [...]string{
	"Januar", "Februar", "März", "April", "Mai", "Juni",
	"Juli", "August", "September", "Oktober", "November", "Dezember",
}

// MonthName returns the German name of month
func MonthName(month time.Month) string {
	return germanMonths[month-1]
}

type styles struct {
	header   lipgloss.Style
	muted    lipgloss.Style
	single   lipgloss.Style
	multiple lipgloss.Style
	holiday  lipgloss.Style
	liked    lipgloss.Style
}

func defaultStyles() styles {
	return styles{
		header:   lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Bold(true),
		muted:    lipgloss.NewStyle().Foreground(lipgloss.Color("244")),
		single:   lipgloss.NewStyle().Background(lipgloss.Color("178")).Foreground(lipgloss.Color("0")),
		multiple: lipgloss.NewStyle().Background(lipgloss.Color("202")).Foreground(lipgloss.Color("0")).Bold(true),
		holiday:  lipgloss.NewStyle().Underline(true).Foreground(lipgloss.Color("39")),
		liked:    lipgloss.NewStyle().Foreground(lipgloss.Color("178")),
	}
}

// Renderer writes planner views to a terminal or a plain stream
type Renderer struct {
	out    io.Writer
	styled bool
	width  int // 0 disables truncation
	styles styles
}

// New creates a Renderer that colours output only when out is a terminal
func New(out io.Writer) *Renderer {
	styled := false
	if f, ok := out.(*os.File); ok {
		styled = term.IsTerminal(int(f.Fd()))
	}
	return &Renderer{out: out, styled: styled, width: Width(out), styles: defaultStyles()}
}

// NewPlain creates a Renderer that only uses text markers
func NewPlain(out io.Writer) *Renderer {
	return &Renderer{out: out, styles: defaultStyles()}
}

// Width returns the terminal width, or 80 when unknown
func Width(out io.Writer) int {
	if f, ok := out.(*os.File); ok {
		if w, _, err := term.GetSize(int(f.Fd())); err == nil && w > 0 {
			return w
		}
	}
	return 80
}

func (r *Renderer) style(s lipgloss.Style, text string) string {
	if !r.styled {
		return text
	}
	return s.Render(text)
}

// Weeks prints the weeks of a month with the festivals of each week
func (r *Renderer) Weeks(year int, month time.Month, weeks []overview.WeekView) {
	fmt.Fprintln(r.out, r.style(r.styles.header, fmt.Sprintf("%s %d", MonthName(month), year)))

	for _, week := range weeks {
		fmt.Fprintf(r.out, "  KW %-2d  Start: %s\n", week.Row.Number, week.Row.Monday.Format("02.01.2006"))

		if len(week.Events) == 0 && len(week.Running) == 0 {
			fmt.Fprintln(r.out, r.style(r.styles.muted, "      Keine Festivals"))
			continue
		}

		for _, ev := range week.Events {
			r.eventLine(ev, "")
		}
		for _, ev := range week.Running {
			r.eventLine(ev, " (läuft)")
		}
	}
	fmt.Fprintln(r.out)
}

// Year prints the week lists of every month
func (r *Renderer) Year(year int, months []overview.MonthView) {
	for _, m := range months {
		r.Weeks(year, m.Month, m.Weeks)
	}
}

func (r *Renderer) eventLine(ev overview.EventView, suffix string) {
	text := r.truncate(fmt.Sprintf("%s%s  [%s]", ev.Event.String(), suffix, ev.Key()), 8)

	marker := "☆"
	if ev.Liked {
		marker = r.style(r.styles.liked, "★")
	}
	fmt.Fprintf(r.out, "      %s %s\n", marker, text)
}

// truncate shortens text so that it fits the terminal after indent columns
func (r *Renderer) truncate(text string, indent int) string {
	if r.width <= 0 {
		return text
	}
	limit := r.width - indent
	runes := []rune(text)
	if limit < 1 || len(runes) <= limit {
		return text
	}
	return string(runes[:limit-1]) + "…"
}

// Month prints a 7-column day grid. Tier and holiday are shown as colours on
// a terminal and as markers otherwise.
func (r *Renderer) Month(year int, month time.Month, weeks [][]overview.DayCell) {
	fmt.Fprintln(r.out, r.style(r.styles.header, fmt.Sprintf("%s %d", MonthName(month), year)))
	fmt.Fprintln(r.out, r.style(r.styles.header, "  Mo   Di   Mi   Do   Fr   Sa   So"))

	for _, week := range weeks {
		cells := make([]string, 0, len(week))
		for _, cell := range week {
			cells = append(cells, r.cell(cell))
		}
		fmt.Fprintln(r.out, strings.Join(cells, ""))
	}
	fmt.Fprintln(r.out)
}

func (r *Renderer) cell(c overview.DayCell) string {
	if !c.InMonth {
		return "     "
	}

	day := fmt.Sprintf("%2d", c.Date.Day())

	if r.styled {
		text := day
		if c.Holiday {
			text = r.styles.holiday.Render(text)
		} else if dateutil.IsWeekend(c.Date) {
			text = r.styles.muted.Render(text)
		}
		switch c.Tier() {
		case overview.TierSingle:
			text = r.styles.single.Render(text)
		case overview.TierMultiple:
			text = r.styles.multiple.Render(text)
		}
		return "  " + text + " "
	}

	tier := " "
	switch c.Tier() {
	case overview.TierSingle:
		tier = "*"
	case overview.TierMultiple:
		tier = "#"
	}
	holiday := " "
	if c.Holiday {
		holiday = "h"
	}
	return " " + day + tier + holiday
}

// Legend explains the month markers
func (r *Renderer) Legend() {
	if r.styled {
		fmt.Fprintf(r.out, "%s ein Festival  %s mehrere  %s Ferien/Feiertag\n\n",
			r.styles.single.Render("  "),
			r.styles.multiple.Render("  "),
			r.styles.holiday.Render("dd"))
		return
	}
	fmt.Fprintln(r.out, "* ein Festival  # mehrere  h Ferien/Feiertag")
	fmt.Fprintln(r.out)
}

// Likes prints the liked events
func (r *Renderer) Likes(events []catalog.Event) {
	if len(events) == 0 {
		fmt.Fprintln(r.out, "Noch keine Festivals markiert.")
		return
	}
	for _, ev := range events {
		fmt.Fprintf(r.out, "%s %s  [%s]\n", r.style(r.styles.liked, "★"), ev.String(), ev.Key())
	}
}

// HolidayList prints the holiday labels of a month's in-month days
func (r *Renderer) HolidayList(weeks [][]overview.DayCell) {
	var lines []string
	last := ""
	for _, week := range weeks {
		for _, cell := range week {
			if !cell.InMonth || !cell.Holiday || cell.HolidayLabel == last {
				continue
			}
			last = cell.HolidayLabel
			lines = append(lines, fmt.Sprintf("  %s  %s", cell.Date.Format("02.01."), cell.HolidayLabel))
		}
	}
	if len(lines) == 0 {
		return
	}
	fmt.Fprintln(r.out, r.style(r.styles.holiday, "Ferien/Feiertage"))
	fmt.Fprintln(r.out, strings.Join(lines, "\n"))
	fmt.Fprintln(r.out)
}
