package models

import (
	"time"

	"github.com/julianstephens/routinely/internal/constants"
)

// Task is a one-off item with a due date and an optional reminder time
type Task struct {
	ID              string             `json:"id" validate:"required"`
	OwnerID         string             `json:"owner_id" validate:"required"`
	Title           string             `json:"title" validate:"min=1,max=200"`
	Description     string             `json:"description,omitempty" validate:"max=1000"`
	DueDate         string             `json:"due_date" validate:"datestr"`                  // YYYY-MM-DD
	DueTime         string             `json:"due_time,omitempty" validate:"omitempty,hhmm"` // HH:MM
	Priority        constants.Priority `json:"priority" validate:"priority"`
	ReminderEnabled bool               `json:"reminder_enabled"`
	Completed       bool               `json:"completed"`
	CompletedAt     *time.Time         `json:"completed_at,omitempty"`
	SnoozeUntil     *time.Time         `json:"snooze_until,omitempty"`
	CreatedAt       time.Time          `json:"created_at"`
}

// IsOverdue reports whether the task is still open after its due date
func (t *Task) IsOverdue(today string) bool {
	return !t.Completed && t.DueDate < today
}

// IsSnoozed reports whether an open task's reminder is deferred past now
func (t *Task) IsSnoozed(now time.Time) bool {
	return !t.Completed && t.SnoozeUntil != nil && t.SnoozeUntil.After(now)
}

// TaskStats summarizes an owner's tasks
type TaskStats struct {
	Total          int                        `json:"total"`
	Completed      int                        `json:"completed"`
	Open           int                        `json:"open"`
	Overdue        int                        `json:"overdue"`
	Snoozed        int                        `json:"snoozed"`
	ByPriority     map[constants.Priority]int `json:"by_priority"`
	CompletionRate float64                    `json:"completion_rate"`
}
