// Package engine is the synchronous query API over routines, the completion
// ledger, tasks and preferences. Every call returns its result or a typed
// error from internal/errors.
package engine

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/julianstephens/routinely/internal/clock"
	"github.com/julianstephens/routinely/internal/command"
	"github.com/julianstephens/routinely/internal/constants"
	apperrors "github.com/julianstephens/routinely/internal/errors"
	"github.com/julianstephens/routinely/internal/logger"
	"github.com/julianstephens/routinely/internal/models"
	"github.com/julianstephens/routinely/internal/recorder"
	"github.com/julianstephens/routinely/internal/report"
	"github.com/julianstephens/routinely/internal/storage"
	"github.com/julianstephens/routinely/internal/utils"
	"github.com/julianstephens/routinely/internal/validation"
)

// Engine is the query API shared by the CLI and the dashboard.
type Engine struct {
	store     storage.Provider
	clock     clock.Clock
	prefs     *storage.PreferenceReader
	recorder  *recorder.Recorder
	reports   *report.Aggregator
	weekStart time.Weekday
	newID     func() string
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock replaces the system clock.
func WithClock(c clock.Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithWeekStart sets the first day of the week report. Monday by default.
func WithWeekStart(d time.Weekday) Option {
	return func(e *Engine) { e.weekStart = d }
}

// WithDefaultLocation sets the timezone for owners without preferences.
func WithDefaultLocation(loc *time.Location) Option {
	return func(e *Engine) { e.prefs = storage.NewPreferenceReader(e.store, loc) }
}

// New creates an engine over store. It reads the system clock and treats
// owners without preferences as living in the local timezone unless options
// say otherwise.
func New(store storage.Provider, opts ...Option) *Engine {
	e := &Engine{
		store:     store,
		clock:     clock.System{},
		prefs:     storage.NewPreferenceReader(store, time.Local),
		weekStart: time.Monday,
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.recorder = recorder.New(store, e.prefs)
	e.reports = report.New(store, e.prefs)
	return e
}

// Preferences exposes the preference reader used by the engine.
func (e *Engine) Preferences() *storage.PreferenceReader {
	return e.prefs
}

// RoutineInput carries the user-supplied fields of a new routine.
type RoutineInput struct {
	Name        string
	Description string
	TimeOfDay   string
	Frequency   string
}

// RoutineUpdate holds the fields to change. Nil fields are left as they are.
type RoutineUpdate struct {
	Name        *string
	Description *string
	TimeOfDay   *string
	Frequency   *string
}

// CreateRoutine validates and stores a new routine anchored at the current
// instant.
func (e *Engine) CreateRoutine(ctx context.Context, ownerID string, in RoutineInput) (models.Routine, error) {
	ownerID = strings.TrimSpace(ownerID)
	if ownerID == "" {
		return models.Routine{}, apperrors.Validation("create routine", fmt.Errorf("owner is required"))
	}
	freq, err := models.ParseFrequency(in.Frequency)
	if err != nil {
		return models.Routine{}, apperrors.Validation("create routine", err)
	}

	now := e.clock.Now()
	r := models.Routine{
		ID:              e.newID(),
		OwnerID:         ownerID,
		Name:            in.Name,
		Description:     in.Description,
		TimeOfDay:       in.TimeOfDay,
		Frequency:       freq,
		AnchorDate:      now,
		IsActive:        true,
		ReminderEnabled: true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := validation.Routine(&r); err != nil {
		return models.Routine{}, apperrors.Validation("create routine", err)
	}
	if err := e.store.AddRoutine(ctx, r); err != nil {
		return models.Routine{}, apperrors.StoreWrite("create routine", err)
	}
	logger.Info("Routine created", "owner", ownerID, "routine", r.ID, "frequency", r.Frequency, "time", r.TimeOfDay)
	return r, nil
}

// UpdateRoutine applies an edit. The anchor date is kept, so a weekly
// routine keeps its weekday.
func (e *Engine) UpdateRoutine(ctx context.Context, ownerID, id string, upd RoutineUpdate) (models.Routine, error) {
	return e.mutate(ctx, "update routine", ownerID, id, func(r *models.Routine) error {
		if upd.Name != nil {
			r.Name = *upd.Name
		}
		if upd.Description != nil {
			r.Description = *upd.Description
		}
		if upd.TimeOfDay != nil {
			r.TimeOfDay = *upd.TimeOfDay
		}
		if upd.Frequency != nil {
			freq, err := models.ParseFrequency(*upd.Frequency)
			if err != nil {
				return err
			}
			r.Frequency = freq
		}
		return validation.Routine(r)
	})
}

// ToggleActive flips whether the routine is scheduled at all.
func (e *Engine) ToggleActive(ctx context.Context, ownerID, id string) (models.Routine, error) {
	return e.mutate(ctx, "toggle routine", ownerID, id, func(r *models.Routine) error {
		r.IsActive = !r.IsActive
		return nil
	})
}

// ToggleReminder flips whether the scheduler sends reminders for the routine.
func (e *Engine) ToggleReminder(ctx context.Context, ownerID, id string) (models.Routine, error) {
	return e.mutate(ctx, "toggle reminder", ownerID, id, func(r *models.Routine) error {
		r.ReminderEnabled = !r.ReminderEnabled
		return nil
	})
}

// mutate runs apply against the stored routine under the store's
// read-modify-write, so concurrent edits for one owner apply in turn.
func (e *Engine) mutate(ctx context.Context, op, ownerID, id string, apply func(*models.Routine) error) (models.Routine, error) {
	now := e.clock.Now()
	r, err := e.store.ModifyRoutine(ctx, ownerID, id, func(r *models.Routine) error {
		if err := apply(r); err != nil {
			return apperrors.Validation(op, err)
		}
		r.UpdatedAt = now
		return nil
	})
	if err != nil {
		return models.Routine{}, apperrors.StoreWrite(op, err)
	}
	logger.Debug("Routine updated", "op", op, "owner", ownerID, "routine", id)
	return r, nil
}

// DeleteRoutine removes the routine. Its ledger entries stay.
func (e *Engine) DeleteRoutine(ctx context.Context, ownerID, id string) error {
	if err := e.store.DeleteRoutine(ctx, ownerID, id); err != nil {
		return apperrors.StoreWrite("delete routine", err)
	}
	logger.Info("Routine deleted", "owner", ownerID, "routine", id)
	return nil
}

// ListRoutines returns all of the owner's routines ordered by time of day.
func (e *Engine) ListRoutines(ctx context.Context, ownerID string) ([]models.Routine, error) {
	routines, err := e.store.GetRoutinesForOwner(ctx, ownerID)
	if err != nil {
		return nil, apperrors.StoreRead("list routines", err)
	}
	sort.SliceStable(routines, func(i, j int) bool { return routines[i].TimeOfDay < routines[j].TimeOfDay })
	return routines, nil
}

// ListDue returns the routines due on date's calendar day in the owner's
// timezone, with whether each was completed that day.
func (e *Engine) ListDue(ctx context.Context, ownerID string, date time.Time) ([]models.RoutineStatus, error) {
	loc, err := e.prefs.GetTimezone(ctx, ownerID)
	if err != nil {
		return nil, apperrors.StoreRead("list due", err)
	}
	routines, err := e.ListRoutines(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	day := utils.StartOfDay(date.In(loc))
	dateStr := day.Format(constants.DateFormat)
	entries, err := e.store.GetEntriesForOwner(ctx, ownerID, dateStr, dateStr)
	if err != nil {
		return nil, apperrors.StoreRead("list due", err)
	}
	done := make(map[string]bool, len(entries))
	for _, en := range entries {
		done[en.RoutineID] = true
	}

	due := []models.RoutineStatus{}
	for _, r := range routines {
		if utils.IsDueOn(r, day) {
			due = append(due, models.RoutineStatus{RoutineID: r.ID, Name: r.Name, TimeOfDay: r.TimeOfDay, Done: done[r.ID]})
		}
	}
	return due, nil
}

// Complete records a completion at the current instant.
func (e *Engine) Complete(ctx context.Context, ownerID, routineID string) (models.CompletionEntry, error) {
	return e.recorder.Complete(ctx, ownerID, routineID, e.clock.Now())
}

// CompleteAt records a completion at a given instant.
func (e *Engine) CompleteAt(ctx context.Context, ownerID, routineID string, at time.Time) (models.CompletionEntry, error) {
	return e.recorder.Complete(ctx, ownerID, routineID, at)
}

// Streak returns the routine's current streak of completed due days.
func (e *Engine) Streak(ctx context.Context, ownerID, routineID string) (int, error) {
	return e.recorder.Streak(ctx, ownerID, routineID, e.clock.Now())
}

// Aggregate reports on the ledger for the window containing now.
// A week window with no start day uses the engine's week start.
func (e *Engine) Aggregate(ctx context.Context, ownerID string, kind models.WindowKind) (models.Report, error) {
	window := models.Window{Kind: kind}
	if kind == models.WindowWeek {
		window = models.ThisWeek(e.weekStart)
	}
	return e.reports.Aggregate(ctx, ownerID, window, e.clock.Now())
}

// ActionResult describes what Apply did.
type ActionResult struct {
	Action  command.Action
	Entry   *models.CompletionEntry
	Routine *models.Routine
}

// Apply runs a resolved action for the owner. Skip and postpone only
// acknowledge the reminder.
func (e *Engine) Apply(ctx context.Context, ownerID string, action command.Action) (ActionResult, error) {
	res := ActionResult{Action: action}
	switch action.Kind {
	case command.KindComplete:
		entry, err := e.Complete(ctx, ownerID, action.RoutineID)
		if err != nil {
			return res, err
		}
		res.Entry = &entry
	case command.KindToggle:
		r, err := e.ToggleActive(ctx, ownerID, action.RoutineID)
		if err != nil {
			return res, err
		}
		res.Routine = &r
	case command.KindDelete:
		if err := e.DeleteRoutine(ctx, ownerID, action.RoutineID); err != nil {
			return res, err
		}
	case command.KindSkip, command.KindPostpone:
		if _, err := e.store.GetRoutine(ctx, ownerID, action.RoutineID); err != nil {
			return res, apperrors.StoreRead(action.Kind.String(), err)
		}
		logger.Debug("Reminder acknowledged", "owner", ownerID, "routine", action.RoutineID, "action", action.Kind)
	default:
		return res, apperrors.Validation("apply", fmt.Errorf("unsupported action %q", action.Kind))
	}
	return res, nil
}

// TaskInput carries the user-supplied fields of a new task.
type TaskInput struct {
	Title       string
	Description string
	DueDate     string
	DueTime     string
	Priority    string
	Reminder    bool
}

// CreateTask validates and stores a one-off task. An empty due date means
// today in the owner's timezone.
func (e *Engine) CreateTask(ctx context.Context, ownerID string, in TaskInput) (models.Task, error) {
	ownerID = strings.TrimSpace(ownerID)
	if ownerID == "" {
		return models.Task{}, apperrors.Validation("create task", fmt.Errorf("owner is required"))
	}
	now := e.clock.Now()
	due := strings.TrimSpace(in.DueDate)
	if due == "" {
		loc, err := e.prefs.GetTimezone(ctx, ownerID)
		if err != nil {
			return models.Task{}, apperrors.StoreRead("create task", err)
		}
		due = utils.DateOf(now, loc)
	}

	t := models.Task{
		ID:              e.newID(),
		OwnerID:         ownerID,
		Title:           in.Title,
		Description:     in.Description,
		DueDate:         due,
		DueTime:         strings.TrimSpace(in.DueTime),
		Priority:        constants.Priority(strings.ToLower(strings.TrimSpace(in.Priority))),
		ReminderEnabled: in.Reminder && strings.TrimSpace(in.DueTime) != "",
		CreatedAt:       now,
	}
	if err := validation.Task(&t); err != nil {
		return models.Task{}, apperrors.Validation("create task", err)
	}
	if err := e.store.AddTask(ctx, t); err != nil {
		return models.Task{}, apperrors.StoreWrite("create task", err)
	}
	logger.Info("Task created", "owner", ownerID, "task", t.ID, "due", t.DueDate)
	return t, nil
}

// ListTasks returns the owner's tasks, open ones only unless all is set.
func (e *Engine) ListTasks(ctx context.Context, ownerID string, all bool) ([]models.Task, error) {
	tasks, err := e.store.GetTasksForOwner(ctx, ownerID, all)
	if err != nil {
		return nil, apperrors.StoreRead("list tasks", err)
	}
	return tasks, nil
}

// CompleteTask marks the task done at the current instant.
func (e *Engine) CompleteTask(ctx context.Context, ownerID, id string) error {
	if err := e.store.CompleteTask(ctx, ownerID, id, e.clock.Now()); err != nil {
		return apperrors.StoreWrite("complete task", err)
	}
	return nil
}

// DeleteTask removes the task.
func (e *Engine) DeleteTask(ctx context.Context, ownerID, id string) error {
	if err := e.store.DeleteTask(ctx, ownerID, id); err != nil {
		return apperrors.StoreWrite("delete task", err)
	}
	return nil
}

// TaskUpdate holds the task fields to change. Nil fields are left as they are.
type TaskUpdate struct {
	Title       *string
	Description *string
	DueDate     *string
	DueTime     *string
	Priority    *string
	Reminder    *bool
}

// UpdateTask edits an open task. Rescheduling clears any snooze.
func (e *Engine) UpdateTask(ctx context.Context, ownerID, id string, upd TaskUpdate) (models.Task, error) {
	return e.mutateTask(ctx, "update task", ownerID, id, func(t *models.Task) error {
		if upd.Title != nil {
			t.Title = *upd.Title
		}
		if upd.Description != nil {
			t.Description = *upd.Description
		}
		if upd.DueDate != nil {
			t.DueDate = strings.TrimSpace(*upd.DueDate)
			t.SnoozeUntil = nil
		}
		if upd.DueTime != nil {
			t.DueTime = strings.TrimSpace(*upd.DueTime)
			t.SnoozeUntil = nil
		}
		if upd.Priority != nil {
			t.Priority = constants.Priority(strings.ToLower(strings.TrimSpace(*upd.Priority)))
		}
		if upd.Reminder != nil {
			t.ReminderEnabled = *upd.Reminder
		}
		if t.DueTime == "" {
			t.ReminderEnabled = false
		}
		return validation.Task(t)
	})
}

// SnoozeTask defers the task's reminder to until. The scanner fires it again
// at that minute.
func (e *Engine) SnoozeTask(ctx context.Context, ownerID, id string, until time.Time) (models.Task, error) {
	now := e.clock.Now()
	at := until.Truncate(time.Minute)
	return e.mutateTask(ctx, "snooze task", ownerID, id, func(t *models.Task) error {
		if t.Completed {
			return fmt.Errorf("task is already completed")
		}
		if !at.After(now) {
			return fmt.Errorf("snooze time must be a future minute")
		}
		t.SnoozeUntil = &at
		return nil
	})
}

func (e *Engine) mutateTask(ctx context.Context, op, ownerID, id string, apply func(*models.Task) error) (models.Task, error) {
	t, err := e.store.ModifyTask(ctx, ownerID, id, func(t *models.Task) error {
		if err := apply(t); err != nil {
			return apperrors.Validation(op, err)
		}
		return nil
	})
	if err != nil {
		return models.Task{}, apperrors.StoreWrite(op, err)
	}
	logger.Debug("Task updated", "op", op, "owner", ownerID, "task", id)
	return t, nil
}

// UpcomingTasks returns open tasks due from today through days ahead in the
// owner's timezone. Overdue tasks are not included.
func (e *Engine) UpcomingTasks(ctx context.Context, ownerID string, days int) ([]models.Task, error) {
	if days < 0 {
		return nil, apperrors.Validation("upcoming tasks", fmt.Errorf("days must not be negative"))
	}
	loc, err := e.prefs.GetTimezone(ctx, ownerID)
	if err != nil {
		return nil, apperrors.StoreRead("upcoming tasks", err)
	}
	today := utils.StartOfDay(e.clock.Now().In(loc))
	from := today.Format(constants.DateFormat)
	to := today.AddDate(0, 0, days).Format(constants.DateFormat)

	open, err := e.ListTasks(ctx, ownerID, false)
	if err != nil {
		return nil, err
	}
	upcoming := []models.Task{}
	for _, t := range open {
		if t.DueDate >= from && t.DueDate <= to {
			upcoming = append(upcoming, t)
		}
	}
	return upcoming, nil
}

// TaskStats counts the owner's tasks by state and priority.
func (e *Engine) TaskStats(ctx context.Context, ownerID string) (models.TaskStats, error) {
	loc, err := e.prefs.GetTimezone(ctx, ownerID)
	if err != nil {
		return models.TaskStats{}, apperrors.StoreRead("task stats", err)
	}
	tasks, err := e.ListTasks(ctx, ownerID, true)
	if err != nil {
		return models.TaskStats{}, err
	}
	now := e.clock.Now()
	today := utils.DateOf(now, loc)

	st := models.TaskStats{ByPriority: map[constants.Priority]int{}}
	for i := range tasks {
		t := &tasks[i]
		st.Total++
		st.ByPriority[t.Priority]++
		switch {
		case t.Completed:
			st.Completed++
		case t.IsOverdue(today):
			st.Open++
			st.Overdue++
		default:
			st.Open++
		}
		if t.IsSnoozed(now) {
			st.Snoozed++
		}
	}
	st.CompletionRate = report.SuccessRate(st.Completed, st.Total)
	return st, nil
}

// GetPreferences returns the owner's preferences with defaults filled in.
func (e *Engine) GetPreferences(ctx context.Context, ownerID string) (models.UserPreferences, error) {
	prefs, err := e.prefs.Get(ctx, ownerID)
	if err != nil {
		return models.UserPreferences{}, apperrors.StoreRead("get preferences", err)
	}
	return prefs, nil
}

// SetPreferences validates and saves the owner's preferences.
func (e *Engine) SetPreferences(ctx context.Context, prefs models.UserPreferences) (models.UserPreferences, error) {
	prefs.OwnerID = strings.TrimSpace(prefs.OwnerID)
	if prefs.Language == "" {
		prefs.Language = constants.DefaultLanguage
	}
	if err := validation.Preferences(&prefs); err != nil {
		return models.UserPreferences{}, apperrors.Validation("set preferences", err)
	}
	prefs.UpdatedAt = e.clock.Now()
	if err := e.store.SavePreferences(ctx, prefs); err != nil {
		return models.UserPreferences{}, apperrors.StoreWrite("set preferences", err)
	}
	return prefs, nil
}

// Export is everything stored for one owner.
type Export struct {
	OwnerID     string                   `json:"owner_id"`
	ExportedAt  time.Time                `json:"exported_at"`
	Preferences models.UserPreferences   `json:"preferences"`
	Routines    []models.Routine         `json:"routines"`
	Entries     []models.CompletionEntry `json:"entries"`
	Tasks       []models.Task            `json:"tasks"`
}

// Export collects the owner's routines, ledger and tasks.
func (e *Engine) Export(ctx context.Context, ownerID string) (Export, error) {
	out := Export{OwnerID: ownerID, ExportedAt: e.clock.Now()}
	var err error
	if out.Preferences, err = e.GetPreferences(ctx, ownerID); err != nil {
		return Export{}, err
	}
	if out.Routines, err = e.ListRoutines(ctx, ownerID); err != nil {
		return Export{}, err
	}
	if out.Entries, err = e.store.GetAllEntriesForOwner(ctx, ownerID); err != nil {
		return Export{}, apperrors.StoreRead("export", err)
	}
	if out.Tasks, err = e.ListTasks(ctx, ownerID, true); err != nil {
		return Export{}, err
	}
	return out, nil
}

// Stats returns system-wide totals.
func (e *Engine) Stats(ctx context.Context) (storage.Stats, error) {
	s, err := e.store.Stats(ctx)
	if err != nil {
		return storage.Stats{}, apperrors.StoreRead("stats", err)
	}
	return s, nil
}

// Repair recomputes routine counters from the ledger and returns how many
// routines were corrected.
func (e *Engine) Repair(ctx context.Context) (int, error) {
	n, err := e.store.RepairCounters(ctx)
	if err != nil {
		return 0, apperrors.StoreWrite("repair", err)
	}
	if n > 0 {
		logger.Warn("Repaired routine counters", "routines", n)
	}
	return n, nil
}
