package dateutil

import (
	"errors"
	"testing"
	"time"
)

func TestStartOfDay(t *testing.T) {
	input := time.Date(2026, 1, 15, 14, 30, 45, 123456789, time.UTC)
	expected := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)

	result := StartOfDay(input)

	if !result.Equal(expected) {
		t.Errorf("StartOfDay(%v) = %v, want %v", input, result, expected)
	}
}

func TestStartOfWeek(t *testing.T) {
	tests := []struct {
		name     string
		input    time.Time
		expected time.Time
	}{
		{
			name:     "Wednesday returns Monday",
			input:    time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC), // Wednesday
			expected: time.Date(2026, 6, 29, 0, 0, 0, 0, time.UTC),
		},
		{
			name:     "Monday returns same Monday",
			input:    time.Date(2026, 6, 29, 12, 0, 0, 0, time.UTC),
			expected: time.Date(2026, 6, 29, 0, 0, 0, 0, time.UTC),
		},
		{
			name:     "Sunday returns previous Monday",
			input:    time.Date(2026, 7, 5, 12, 0, 0, 0, time.UTC), // Sunday
			expected: time.Date(2026, 6, 29, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := StartOfWeek(tt.input)

			if !result.Equal(tt.expected) {
				t.Errorf("StartOfWeek(%v) = %v, want %v",
					tt.input.Format("2006-01-02 Mon"),
					result.Format("2006-01-02 Mon"),
					tt.expected.Format("2006-01-02 Mon"))
			}
		})
	}
}

func TestEndOfWeek(t *testing.T) {
	result := EndOfWeek(time.Date(2026, 7, 1, 9, 0, 0, 0, time.UTC))
	expected := time.Date(2026, 7, 5, 0, 0, 0, 0, time.UTC)

	if !result.Equal(expected) {
		t.Errorf("EndOfWeek() = %v, want %v", result, expected)
	}
}

func TestGetWeekNumber(t *testing.T) {
	tests := []struct {
		name     string
		input    time.Time
		wantYear int
		wantWeek int
	}{
		{"Thursday Jan 1 2026 is week 1", time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), 2026, 1},
		{"Monday Jan 5 2026 is week 2", time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC), 2026, 2},
		{"Dec 28 2026 is week 53", time.Date(2026, 12, 28, 0, 0, 0, 0, time.UTC), 2026, 53},
		{"Jan 1 2027 belongs to 2026 week 53", time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC), 2026, 53},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			year, week := GetWeekNumber(tt.input)

			if year != tt.wantYear || week != tt.wantWeek {
				t.Errorf("GetWeekNumber(%v) = (%v, %v), want (%v, %v)",
					tt.input, year, week, tt.wantYear, tt.wantWeek)
			}
		})
	}
}

func TestIsWeekend(t *testing.T) {
	tests := []struct {
		name  string
		input time.Time
		want  bool
	}{
		{"Saturday is weekend", time.Date(2026, 7, 4, 0, 0, 0, 0, time.UTC), true},
		{"Sunday is weekend", time.Date(2026, 7, 5, 0, 0, 0, 0, time.UTC), true},
		{"Monday is not weekend", time.Date(2026, 7, 6, 0, 0, 0, 0, time.UTC), false},
		{"Friday is not weekend", time.Date(2026, 7, 3, 0, 0, 0, 0, time.UTC), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsWeekend(tt.input); got != tt.want {
				t.Errorf("IsWeekend(%v) = %v, want %v",
					tt.input.Format("2006-01-02 Mon"), got, tt.want)
			}
		})
	}
}

func TestIsSameDay(t *testing.T) {
	a := time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)
	b := time.Date(2026, 1, 15, 20, 0, 0, 0, time.UTC)
	c := time.Date(2026, 1, 16, 10, 0, 0, 0, time.UTC)

	if !IsSameDay(a, b) {
		t.Errorf("IsSameDay(%v, %v) = false, want true", a, b)
	}
	if IsSameDay(a, c) {
		t.Errorf("IsSameDay(%v, %v) = true, want false", a, c)
	}
}

func TestDayKeyRoundTrip(t *testing.T) {
	date := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)

	key := DayKey(date)
	if key != "2026-03-09" {
		t.Fatalf("DayKey() = %q, want 2026-03-09", key)
	}

	parsed, err := ParseDayKey(key)
	if err != nil {
		t.Fatalf("ParseDayKey() error = %v", err)
	}
	if !parsed.Equal(date) {
		t.Errorf("ParseDayKey() = %v, want %v", parsed, date)
	}

	if _, err := ParseDayKey("2026-13-01"); err == nil {
		t.Error("ParseDayKey() expected error for month 13, got nil")
	}
}

func TestExpandDays(t *testing.T) {
	d := time.Date(2026, 7, 1, 15, 30, 0, 0, time.UTC)

	t.Run("single day", func(t *testing.T) {
		days, err := ExpandDays(d, d)
		if err != nil {
			t.Fatalf("ExpandDays() error = %v", err)
		}
		if len(days) != 1 {
			t.Fatalf("len = %d, want 1", len(days))
		}
		if !days[0].Equal(StartOfDay(d)) {
			t.Errorf("days[0] = %v, want %v", days[0], StartOfDay(d))
		}
	})

	t.Run("one week", func(t *testing.T) {
		days, err := ExpandDays(d, d.AddDate(0, 0, 6))
		if err != nil {
			t.Fatalf("ExpandDays() error = %v", err)
		}
		if len(days) != 7 {
			t.Fatalf("len = %d, want 7", len(days))
		}
		for i := 1; i < len(days); i++ {
			if !days[i].Equal(days[i-1].AddDate(0, 0, 1)) {
				t.Errorf("days[%d] = %v, not one day after %v", i, days[i], days[i-1])
			}
		}
	})

	t.Run("across month and year boundary", func(t *testing.T) {
		days, err := ExpandDays(
			time.Date(2026, 12, 30, 0, 0, 0, 0, time.UTC),
			time.Date(2027, 1, 2, 0, 0, 0, 0, time.UTC))
		if err != nil {
			t.Fatalf("ExpandDays() error = %v", err)
		}
		want := []string{"2026-12-30", "2026-12-31", "2027-01-01", "2027-01-02"}
		if len(days) != len(want) {
			t.Fatalf("len = %d, want %d", len(days), len(want))
		}
		for i, day := range days {
			if DayKey(day) != want[i] {
				t.Errorf("days[%d] = %s, want %s", i, DayKey(day), want[i])
			}
		}
	})

	t.Run("end before start", func(t *testing.T) {
		days, err := ExpandDays(d, d.AddDate(0, 0, -1))
		if !errors.Is(err, ErrInvalidRange) {
			t.Errorf("error = %v, want ErrInvalidRange", err)
		}
		if days != nil {
			t.Errorf("days = %v, want nil", days)
		}
	})
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    time.Time
		wantErr bool
	}{
		{"ISO format YYYY-MM-DD", "2026-01-15", time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC), false},
		{"German format DD.MM.YYYY", "15.01.2026", time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC), false},
		{"Compact YYYYMMDD", "20260115", time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC), false},
		{"ISO with time", "2026-01-15T10:30:00", time.Date(2026, 1, 15, 10, 30, 0, 0, time.UTC), false},
		{"Garbage", "next tuesday", time.Time{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := ParseDate(tt.input)

			if (err != nil) != tt.wantErr {
				t.Errorf("ParseDate(%v) error = %v, wantErr %v", tt.input, err, tt.wantErr)
				return
			}

			if !tt.wantErr && !result.Equal(tt.want) {
				t.Errorf("ParseDate(%v) = %v, want %v", tt.input, result, tt.want)
			}
		})
	}
}
