package utils

import (
	"time"

	"github.com/julianstephens/routinely/internal/constants"
	"github.com/julianstephens/routinely/internal/models"
)

// IsDueOn determines if a routine falls due on the given calendar date.
// Only the year, month and day of date are read; the routine's anchor is
// viewed in date's location so weekday and month day agree with the owner's
// calendar. Inactive routines are never due.
//
// Monthly routines anchored on a day the target month lacks (e.g. the 31st in
// a 30-day month) fall due on that month's last day.
func IsDueOn(routine models.Routine, date time.Time) bool {
	if !routine.IsActive {
		return false
	}

	anchor := routine.AnchorDate.In(date.Location())

	switch routine.Frequency {
	case constants.FrequencyDaily:
		return true
	case constants.FrequencyWeekly:
		return date.Weekday() == anchor.Weekday()
	case constants.FrequencyMonthly:
		return date.Day() == MonthlyDueDay(anchor.Day(), date.Year(), date.Month())
	default:
		return false
	}
}

// MonthlyDueDay clamps an anchor day of month to the length of the given month.
func MonthlyDueDay(anchorDay int, year int, month time.Month) int {
	if last := DaysIn(year, month); anchorDay > last {
		return last
	}
	return anchorDay
}

// DaysIn returns the number of days in the given month.
func DaysIn(year int, month time.Month) int {
	// Day 0 of the next month normalizes to the last day of this one
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// DueDatesBetween lists the dates in [start, end] on which the routine is due.
// Both bounds are calendar dates in the same location.
func DueDatesBetween(routine models.Routine, start, end time.Time) []string {
	var dates []string
	for d := StartOfDay(start); !d.After(end); d = d.AddDate(0, 0, 1) {
		if IsDueOn(routine, d) {
			dates = append(dates, d.Format(constants.DateFormat))
		}
	}
	return dates
}
