package utils

import (
	"testing"
	"time"

	"github.com/julianstephens/routinely/internal/constants"
)

func TestLoadLocation(t *testing.T) {
	tests := []struct {
		name     string
		timezone string
		wantErr  bool
	}{
		{"empty means local", "", false},
		{"Local", "Local", false},
		{"UTC", "UTC", false},
		{"America/New_York timezone", "America/New_York", false},
		{"invalid timezone", "Invalid/Timezone", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loc, err := LoadLocation(tt.timezone)
			if (err != nil) != tt.wantErr {
				t.Fatalf("LoadLocation() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if (tt.timezone == "" || tt.timezone == "Local") && loc != time.Local {
				t.Errorf("LoadLocation(%q) = %v, want Local", tt.timezone, loc)
			}
		})
	}
}

func TestDateOfCrossesMidnight(t *testing.T) {
	tokyo, err := time.LoadLocation("Asia/Tokyo")
	if err != nil {
		t.Skipf("timezone data unavailable: %v", err)
	}
	instant := time.Date(2024, 1, 15, 20, 30, 0, 0, time.UTC)
	if got := DateOf(instant, time.UTC); got != "2024-01-15" {
		t.Errorf("DateOf(UTC) = %s", got)
	}
	if got := DateOf(instant, tokyo); got != "2024-01-16" {
		t.Errorf("DateOf(Tokyo) = %s", got)
	}
	if got := MinuteOf(instant, tokyo); got != "05:30" {
		t.Errorf("MinuteOf(Tokyo) = %s", got)
	}
}

func TestWeekBounds(t *testing.T) {
	tests := []struct {
		date      string
		startDow  time.Weekday
		wantStart string
		wantEnd   string
	}{
		{"2024-01-15", time.Monday, "2024-01-15", "2024-01-21"}, // Monday itself
		{"2024-01-21", time.Monday, "2024-01-15", "2024-01-21"}, // Sunday closes the week
		{"2024-01-17", time.Monday, "2024-01-15", "2024-01-21"},
		{"2024-01-17", time.Sunday, "2024-01-14", "2024-01-20"},
		{"2024-01-01", time.Monday, "2024-01-01", "2024-01-07"},
		{"2023-12-31", time.Monday, "2023-12-25", "2023-12-31"},
	}

	for _, tt := range tests {
		d, _ := time.Parse(constants.DateFormat, tt.date)
		start, end := WeekBounds(d, tt.startDow)
		if start.Format(constants.DateFormat) != tt.wantStart || end.Format(constants.DateFormat) != tt.wantEnd {
			t.Errorf("WeekBounds(%s, %s) = [%s, %s], want [%s, %s]", tt.date, tt.startDow,
				start.Format(constants.DateFormat), end.Format(constants.DateFormat), tt.wantStart, tt.wantEnd)
		}
	}
}

func TestMonthBounds(t *testing.T) {
	d, _ := time.Parse(constants.DateFormat, "2024-02-17")
	start, end := MonthBounds(d)
	if start.Format(constants.DateFormat) != "2024-02-01" || end.Format(constants.DateFormat) != "2024-02-29" {
		t.Errorf("MonthBounds = [%s, %s]", start.Format(constants.DateFormat), end.Format(constants.DateFormat))
	}

	d, _ = time.Parse(constants.DateFormat, "2024-12-31")
	start, end = MonthBounds(d)
	if start.Format(constants.DateFormat) != "2024-12-01" || end.Format(constants.DateFormat) != "2024-12-31" {
		t.Errorf("MonthBounds = [%s, %s]", start.Format(constants.DateFormat), end.Format(constants.DateFormat))
	}
}

func TestParseDateInLocation(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("timezone data unavailable: %v", err)
	}
	d, err := ParseDateInLocation("2024-03-10", ny)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Location() != ny || d.Hour() != 0 || d.Day() != 10 {
		t.Errorf("unexpected parsed date %v", d)
	}
	if _, err := ParseDateInLocation("03/10/2024", ny); err == nil {
		t.Error("expected error for malformed date")
	}
}
