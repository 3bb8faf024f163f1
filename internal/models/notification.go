package models

import (
	"time"

	"github.com/julianstephens/routinely/internal/command"
)

// NotificationKind distinguishes routine reminders from one-off task reminders
type NotificationKind string

const (
	NotificationRoutine NotificationKind = "routine"
	NotificationTask    NotificationKind = "task"
)

// Notification is one scanner hit: a routine (or task) due at the scanned minute
type Notification struct {
	Kind      NotificationKind `json:"kind"`
	OwnerID   string           `json:"owner_id"`
	RoutineID string           `json:"routine_id"` // task id for task reminders
	Routine   Routine          `json:"routine"`    // snapshot taken at scan time
	Task      *Task            `json:"task,omitempty"`
	DueAt     time.Time        `json:"due_at"` // scanned minute in the owner's timezone
}

// Reminder is the opaque payload handed to a MessageSender. The sender's
// collaborator owns wording and localization.
type Reminder struct {
	Kind        NotificationKind `json:"kind"`
	ItemID      string           `json:"item_id"`
	Name        string           `json:"name"`
	Description string           `json:"description,omitempty"`
	Time        string           `json:"time"`
	Date        string           `json:"date"`
	Actions     []command.Action `json:"-"`
}

// ActionPayloads returns the encoded actions, for senders that ship JSON.
func (r Reminder) ActionPayloads() []string {
	out := make([]string, 0, len(r.Actions))
	for _, a := range r.Actions {
		out = append(out, a.Payload())
	}
	return out
}
