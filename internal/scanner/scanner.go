// Package scanner finds the routines and tasks whose reminder minute is now.
package scanner

import (
	"context"
	"fmt"
	"time"

	"github.com/julianstephens/routinely/internal/constants"
	"github.com/julianstephens/routinely/internal/logger"
	"github.com/julianstephens/routinely/internal/models"
	"github.com/julianstephens/routinely/internal/utils"
)

// Source is the read side of the store a scan needs.
type Source interface {
	GetAllRoutines(ctx context.Context) ([]models.Routine, error)
	GetAllPreferences(ctx context.Context) ([]models.UserPreferences, error)
	GetTasksDueBetween(ctx context.Context, startDate, endDate string) ([]models.Task, error)
	GetSnoozedTasksBetween(ctx context.Context, from, to time.Time) ([]models.Task, error)
}

// Scanner evaluates every routine and open task once per tick.
type Scanner struct {
	source     Source
	defaultLoc *time.Location
}

// New creates a scanner. Owners without a stored timezone use defaultLoc.
func New(source Source, defaultLoc *time.Location) *Scanner {
	if defaultLoc == nil {
		defaultLoc = time.Local
	}
	return &Scanner{source: source, defaultLoc: defaultLoc}
}

// Tick returns the notifications due at now's minute. On any read error it
// returns no notifications at all.
func (s *Scanner) Tick(ctx context.Context, now time.Time) ([]models.Notification, error) {
	routines, err := s.source.GetAllRoutines(ctx)
	if err != nil {
		logger.Error("Scan skipped: failed to read routines", "error", err)
		return nil, fmt.Errorf("scan routines: %w", err)
	}
	prefs, err := s.source.GetAllPreferences(ctx)
	if err != nil {
		logger.Error("Scan skipped: failed to read preferences", "error", err)
		return nil, fmt.Errorf("scan preferences: %w", err)
	}

	locs := s.locations(prefs)
	locFor := func(owner string) *time.Location {
		if loc, ok := locs[owner]; ok {
			return loc
		}
		return s.defaultLoc
	}

	var out []models.Notification
	for _, r := range routines {
		if !r.ReminderEnabled || !r.IsActive {
			continue
		}
		loc := locFor(r.OwnerID)
		if r.TimeOfDay != utils.MinuteOf(now, loc) {
			continue
		}
		local := now.In(loc)
		if !utils.IsDueOn(r, local) {
			continue
		}
		out = append(out, models.Notification{
			Kind:      models.NotificationRoutine,
			OwnerID:   r.OwnerID,
			RoutineID: r.ID,
			Routine:   r,
			DueAt:     local.Truncate(time.Minute),
		})
	}

	tasks, err := s.tasks(ctx, now, locFor)
	if err != nil {
		return nil, err
	}
	out = append(out, tasks...)

	logger.Debug("Scan complete", "routines", len(routines), "due", len(out))
	return out, nil
}

// tasks matches open tasks on their due minute, or on the minute their
// snooze ends. A task still snoozed at its due minute stays quiet.
func (s *Scanner) tasks(ctx context.Context, now time.Time, locFor func(string) *time.Location) ([]models.Notification, error) {
	// every owner's local date lies within a day of UTC
	utc := now.UTC()
	start := utc.AddDate(0, 0, -1).Format(constants.DateFormat)
	end := utc.AddDate(0, 0, 1).Format(constants.DateFormat)
	due, err := s.source.GetTasksDueBetween(ctx, start, end)
	if err != nil {
		logger.Error("Scan skipped: failed to read tasks", "error", err)
		return nil, fmt.Errorf("scan tasks: %w", err)
	}
	minute := now.Truncate(time.Minute)
	snoozed, err := s.source.GetSnoozedTasksBetween(ctx, minute, minute.Add(time.Minute))
	if err != nil {
		logger.Error("Scan skipped: failed to read snoozed tasks", "error", err)
		return nil, fmt.Errorf("scan snoozed tasks: %w", err)
	}

	var out []models.Notification
	seen := make(map[string]bool)
	emit := func(t models.Task, local time.Time) {
		if seen[t.ID] {
			return
		}
		seen[t.ID] = true
		out = append(out, models.Notification{
			Kind:      models.NotificationTask,
			OwnerID:   t.OwnerID,
			RoutineID: t.ID,
			Task:      &t,
			DueAt:     local.Truncate(time.Minute),
		})
	}
	for _, t := range snoozed {
		emit(t, now.In(locFor(t.OwnerID)))
	}
	for _, t := range due {
		loc := locFor(t.OwnerID)
		if t.DueDate != utils.DateOf(now, loc) || t.DueTime != utils.MinuteOf(now, loc) {
			continue
		}
		if t.IsSnoozed(now) {
			continue
		}
		emit(t, now.In(loc))
	}
	return out, nil
}

func (s *Scanner) locations(prefs []models.UserPreferences) map[string]*time.Location {
	locs := make(map[string]*time.Location, len(prefs))
	for _, p := range prefs {
		loc, err := p.Location()
		if err != nil {
			logger.Warn("Ignoring invalid owner timezone", "owner", p.OwnerID, "timezone", p.Timezone, "error", err)
			continue
		}
		locs[p.OwnerID] = loc
	}
	return locs
}
