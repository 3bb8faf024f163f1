// Package dispatch delivers scanner hits through a MessageSender, one
// recipient at a time.
package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/julianstephens/routinely/internal/command"
	"github.com/julianstephens/routinely/internal/constants"
	apperrors "github.com/julianstephens/routinely/internal/errors"
	"github.com/julianstephens/routinely/internal/logger"
	"github.com/julianstephens/routinely/internal/models"
)

// MessageSender delivers one reminder to one recipient. Wording and
// localization belong to the sender.
type MessageSender interface {
	Send(ctx context.Context, recipientID string, reminder models.Reminder) error
}

// UserPreferences reports whether an owner wants reminders.
type UserPreferences interface {
	NotificationsEnabled(ctx context.Context, ownerID string) (bool, error)
}

// Guard claims a dispatch key. Acquire returns false when the key was
// already claimed, e.g. by another replica in the same minute.
type Guard interface {
	Acquire(ctx context.Context, key string) (bool, error)
}

// Dispatcher sends reminders and isolates per-recipient failures.
type Dispatcher struct {
	sender MessageSender
	prefs  UserPreferences
	guard  Guard
}

// New creates a dispatcher that consults prefs before each send.
func New(sender MessageSender, prefs UserPreferences) *Dispatcher {
	return &Dispatcher{sender: sender, prefs: prefs}
}

// WithGuard deduplicates sends across processes.
func (d *Dispatcher) WithGuard(g Guard) *Dispatcher {
	d.guard = g
	return d
}

// Dispatch sends one reminder per notification and returns how many were
// delivered. Failures are logged and never stop the batch. Nothing is retried.
func (d *Dispatcher) Dispatch(ctx context.Context, notifications []models.Notification) int {
	sent := 0
	for _, n := range notifications {
		if d.deliver(ctx, n) {
			sent++
		}
	}
	if len(notifications) > 0 {
		logger.Info("Dispatch complete", "batch", len(notifications), "sent", sent)
	}
	return sent
}

func (d *Dispatcher) deliver(ctx context.Context, n models.Notification) bool {
	enabled, err := d.prefs.NotificationsEnabled(ctx, n.OwnerID)
	if err != nil {
		logger.Error("Skipping reminder: preference lookup failed", "owner", n.OwnerID, "routine", n.RoutineID, "error", err)
		return false
	}
	if !enabled {
		return false
	}

	if d.guard != nil {
		ok, err := d.guard.Acquire(ctx, Key(n))
		switch {
		case err != nil:
			logger.Warn("Dispatch guard unavailable, sending anyway", "owner", n.OwnerID, "error", err)
		case !ok:
			logger.Debug("Reminder already dispatched", "owner", n.OwnerID, "routine", n.RoutineID)
			return false
		}
	}

	if err := d.sender.Send(ctx, n.OwnerID, BuildReminder(n)); err != nil {
		err = apperrors.Delivery(n.OwnerID, err)
		logger.Error("Reminder delivery failed", "owner", n.OwnerID, "routine", n.RoutineID, "error", err)
		return false
	}
	return true
}

// Key identifies one reminder occurrence.
func Key(n models.Notification) string {
	return fmt.Sprintf("%s|%s|%s|%s", n.OwnerID, n.Kind, n.RoutineID, n.DueAt.UTC().Truncate(time.Minute).Format(time.RFC3339))
}

// BuildReminder turns a notification into the sender payload.
func BuildReminder(n models.Notification) models.Reminder {
	r := models.Reminder{
		Kind:   n.Kind,
		ItemID: n.RoutineID,
		Time:   n.DueAt.Format(constants.TimeFormat),
		Date:   n.DueAt.Format(constants.DateFormat),
	}
	if n.Kind == models.NotificationTask && n.Task != nil {
		r.Name = n.Task.Title
		r.Description = n.Task.Description
		return r
	}
	r.Name = n.Routine.Name
	r.Description = n.Routine.Description
	r.Time = n.Routine.TimeOfDay
	r.Actions = command.ReminderActions(n.RoutineID)
	return r
}
