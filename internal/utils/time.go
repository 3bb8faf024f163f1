package utils

import (
	"fmt"
	"time"

	"github.com/julianstephens/routinely/internal/constants"
)

// LoadLocation loads a timezone location from an IANA timezone name.
// If the timezone is "Local" or empty, it returns the system's local timezone.
func LoadLocation(timezone string) (*time.Location, error) {
	if timezone == "" || timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", timezone, err)
	}
	return loc, nil
}

// StartOfDay returns midnight of t's calendar day in t's location.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// DateOf returns the calendar date (YYYY-MM-DD) of t as seen in loc.
func DateOf(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(constants.DateFormat)
}

// MinuteOf returns t truncated to the minute, formatted HH:MM in loc.
func MinuteOf(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(constants.TimeFormat)
}

// ParseDateInLocation parses a date string (YYYY-MM-DD) in the specified timezone.
func ParseDateInLocation(dateStr string, loc *time.Location) (time.Time, error) {
	t, err := time.Parse(constants.DateFormat, dateStr)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc), nil
}

// WeekBounds returns the first and last day of the week containing date,
// where weeks start on startDow.
func WeekBounds(date time.Time, startDow time.Weekday) (time.Time, time.Time) {
	day := StartOfDay(date)
	offset := (int(day.Weekday()) - int(startDow) + 7) % 7
	start := day.AddDate(0, 0, -offset)
	return start, start.AddDate(0, 0, 6)
}

// MonthBounds returns the first and last day of date's calendar month.
func MonthBounds(date time.Time) (time.Time, time.Time) {
	start := time.Date(date.Year(), date.Month(), 1, 0, 0, 0, 0, date.Location())
	return start, start.AddDate(0, 1, -1)
}

// ValidateTimezone reports whether timezone names a loadable zone. Empty and
// "Local" select the host zone.
func ValidateTimezone(timezone string) bool {
	_, err := LoadLocation(timezone)
	return err == nil
}
