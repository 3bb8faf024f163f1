// Package report aggregates the completion ledger over a date window.
package report

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/julianstephens/routinely/internal/constants"
	apperrors "github.com/julianstephens/routinely/internal/errors"
	"github.com/julianstephens/routinely/internal/models"
	"github.com/julianstephens/routinely/internal/utils"
)

// Source is the read side of the store a report needs.
type Source interface {
	GetRoutinesForOwner(ctx context.Context, ownerID string) ([]models.Routine, error)
	GetEntriesForOwner(ctx context.Context, ownerID, startDate, endDate string) ([]models.CompletionEntry, error)
	GetAllEntriesForOwner(ctx context.Context, ownerID string) ([]models.CompletionEntry, error)
}

// Timezones resolves an owner's timezone.
type Timezones interface {
	GetTimezone(ctx context.Context, ownerID string) (*time.Location, error)
}

// Aggregator computes reports from the ledger in each owner's timezone.
type Aggregator struct {
	source Source
	tz     Timezones
}

// New creates an aggregator reading from source.
func New(source Source, tz Timezones) *Aggregator {
	return &Aggregator{source: source, tz: tz}
}

// SuccessRate returns completed/total as a percentage rounded to two
// decimals. It is 0 when total is 0.
func SuccessRate(completed, total int) float64 {
	if total <= 0 {
		return 0
	}
	return round2(float64(completed) / float64(total) * 100)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Aggregate builds the owner's report for window, with now fixing which
// day, week or month is current.
func (a *Aggregator) Aggregate(ctx context.Context, ownerID string, window models.Window, now time.Time) (models.Report, error) {
	loc, err := a.tz.GetTimezone(ctx, ownerID)
	if err != nil {
		return models.Report{}, apperrors.StoreRead("aggregate", err)
	}
	routines, err := a.source.GetRoutinesForOwner(ctx, ownerID)
	if err != nil {
		return models.Report{}, apperrors.StoreRead("aggregate", err)
	}

	local := now.In(loc)
	rep := models.Report{OwnerID: ownerID, Window: window}

	switch window.Kind {
	case models.WindowToday:
		err = a.today(ctx, &rep, routines, local)
	case models.WindowWeek:
		err = a.week(ctx, &rep, routines, local, window.WeekStart)
	case models.WindowMonth:
		err = a.month(ctx, &rep, routines, local)
	case models.WindowAllTime:
		err = a.allTime(ctx, &rep, routines)
	default:
		return models.Report{}, apperrors.Validation("aggregate", fmt.Errorf("unknown window %q", window.Kind))
	}
	if err != nil {
		return models.Report{}, err
	}

	rep.SuccessRate = SuccessRate(rep.Completed, rep.Total)
	return rep, nil
}

// firstDay is the later of start and the routine's anchor day. A routine
// is never expected before it existed.
func firstDay(r models.Routine, start time.Time) time.Time {
	anchor := utils.StartOfDay(r.AnchorDate.In(start.Location()))
	if anchor.After(start) {
		return anchor
	}
	return start
}

func (a *Aggregator) entries(ctx context.Context, ownerID string, start, end time.Time) ([]models.CompletionEntry, error) {
	entries, err := a.source.GetEntriesForOwner(ctx, ownerID, start.Format(constants.DateFormat), end.Format(constants.DateFormat))
	if err != nil {
		return nil, apperrors.StoreRead("aggregate", err)
	}
	return entries, nil
}

func (a *Aggregator) today(ctx context.Context, rep *models.Report, routines []models.Routine, local time.Time) error {
	day := utils.StartOfDay(local)
	date := day.Format(constants.DateFormat)
	rep.Start, rep.End = date, date

	entries, err := a.entries(ctx, rep.OwnerID, day, day)
	if err != nil {
		return err
	}
	done := make(map[string]bool, len(entries))
	for _, e := range entries {
		done[e.RoutineID] = true
	}

	detail := &models.TodayDetail{Routines: []models.RoutineStatus{}}
	for _, r := range routines {
		if firstDay(r, day).After(day) || !utils.IsDueOn(r, day) {
			continue
		}
		rep.Total++
		detail.Routines = append(detail.Routines, models.RoutineStatus{
			RoutineID: r.ID,
			Name:      r.Name,
			TimeOfDay: r.TimeOfDay,
			Done:      done[r.ID],
		})
	}
	sort.SliceStable(detail.Routines, func(i, j int) bool {
		return detail.Routines[i].TimeOfDay < detail.Routines[j].TimeOfDay
	})

	rep.Completed = len(entries)
	rep.Today = detail
	return nil
}

func (a *Aggregator) week(ctx context.Context, rep *models.Report, routines []models.Routine, local time.Time, startDow time.Weekday) error {
	start, end := utils.WeekBounds(local, startDow)
	rep.Start, rep.End = start.Format(constants.DateFormat), end.Format(constants.DateFormat)

	entries, err := a.entries(ctx, rep.OwnerID, start, end)
	if err != nil {
		return err
	}

	freq := make(map[string]constants.Frequency, len(routines))
	detail := &models.WeekDetail{}
	dailyDue := 0
	for _, r := range routines {
		if !r.IsActive {
			continue
		}
		freq[r.ID] = r.Frequency
		due := len(utils.DueDatesBetween(r, firstDay(r, start), end))
		switch r.Frequency {
		case constants.FrequencyDaily:
			detail.DailyRoutines++
			dailyDue += due
		case constants.FrequencyWeekly:
			detail.WeeklyDue += due
		case constants.FrequencyMonthly:
			detail.MonthlyDue += due
		}
	}

	perDay := make(map[string]int)
	for _, e := range entries {
		perDay[e.Date]++
		switch freq[e.RoutineID] {
		case constants.FrequencyDaily:
			detail.DailyCompleted++
		case constants.FrequencyWeekly:
			detail.WeeklyCompleted++
		case constants.FrequencyMonthly:
			detail.MonthlyCompleted++
		}
	}
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		date := d.Format(constants.DateFormat)
		detail.Days = append(detail.Days, models.DayCount{Date: date, Count: perDay[date]})
	}
	detail.ActiveDays = len(perDay)

	rep.Completed = detail.DailyCompleted
	rep.Total = dailyDue
	rep.Week = detail
	return nil
}

func (a *Aggregator) month(ctx context.Context, rep *models.Report, routines []models.Routine, local time.Time) error {
	start, end := utils.MonthBounds(local)
	rep.Start, rep.End = start.Format(constants.DateFormat), end.Format(constants.DateFormat)

	entries, err := a.entries(ctx, rep.OwnerID, start, end)
	if err != nil {
		return err
	}

	for _, r := range routines {
		rep.Total += len(utils.DueDatesBetween(r, firstDay(r, start), end))
	}

	detail := &models.MonthDetail{DaysInMonth: utils.DaysIn(start.Year(), start.Month()), Weeks: []models.WeekCount{}}
	perDay := make(map[string]int)
	type isoWeek struct{ year, week int }
	perWeek := make(map[isoWeek]int)
	for _, e := range entries {
		perDay[e.Date]++
		d, err := time.Parse(constants.DateFormat, e.Date)
		if err != nil {
			continue
		}
		y, w := d.ISOWeek()
		perWeek[isoWeek{y, w}]++
	}
	for _, n := range perDay {
		if n > detail.BestDayCount {
			detail.BestDayCount = n
		}
	}
	for k, n := range perWeek {
		detail.Weeks = append(detail.Weeks, models.WeekCount{Year: k.year, Week: k.week, Count: n})
	}
	sort.Slice(detail.Weeks, func(i, j int) bool {
		if detail.Weeks[i].Year != detail.Weeks[j].Year {
			return detail.Weeks[i].Year < detail.Weeks[j].Year
		}
		return detail.Weeks[i].Week < detail.Weeks[j].Week
	})

	detail.ActiveDays = len(perDay)
	detail.AveragePerDay = round2(float64(len(entries)) / float64(detail.DaysInMonth))

	rep.Completed = len(entries)
	rep.Month = detail
	return nil
}

// allTime has no expected-occurrence denominator, so its rate is always 0.
func (a *Aggregator) allTime(ctx context.Context, rep *models.Report, routines []models.Routine) error {
	entries, err := a.source.GetAllEntriesForOwner(ctx, rep.OwnerID)
	if err != nil {
		return apperrors.StoreRead("aggregate", err)
	}

	names := make(map[string]string, len(routines))
	for _, r := range routines {
		names[r.ID] = r.Name
	}

	detail := &models.AllTimeDetail{PerRoutine: []models.RoutineCount{}}
	days := make(map[string]struct{})
	counts := make(map[string]int)
	for _, e := range entries {
		days[e.Date] = struct{}{}
		counts[e.RoutineID]++
		if detail.FirstDate == "" || e.Date < detail.FirstDate {
			detail.FirstDate = e.Date
		}
		if e.Date > detail.LastDate {
			detail.LastDate = e.Date
		}
	}
	for id, n := range counts {
		detail.PerRoutine = append(detail.PerRoutine, models.RoutineCount{RoutineID: id, Name: names[id], Count: n})
	}
	sort.Slice(detail.PerRoutine, func(i, j int) bool {
		if detail.PerRoutine[i].Count != detail.PerRoutine[j].Count {
			return detail.PerRoutine[i].Count > detail.PerRoutine[j].Count
		}
		return detail.PerRoutine[i].RoutineID < detail.PerRoutine[j].RoutineID
	})
	if len(detail.PerRoutine) > 0 {
		top := detail.PerRoutine[0]
		detail.TopRoutine = &top
	}

	detail.ActiveDays = len(days)
	if detail.ActiveDays > 0 {
		detail.AveragePerActiveDay = round2(float64(len(entries)) / float64(detail.ActiveDays))
	}

	rep.Start, rep.End = detail.FirstDate, detail.LastDate
	rep.Completed = len(entries)
	rep.AllTime = detail
	return nil
}
