package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/julianstephens/routinely/internal/constants"
)

// Routine is a recurring obligation owned by one user
type Routine struct {
	ID              string              `json:"id" validate:"required"`
	OwnerID         string              `json:"owner_id" validate:"required"`
	Name            string              `json:"name" validate:"min=1,max=100"`
	Description     string              `json:"description" validate:"min=5,max=500"`
	TimeOfDay       string              `json:"time_of_day" validate:"hhmm"` // HH:MM, owner's local time
	Frequency       constants.Frequency `json:"frequency" validate:"frequency"`
	AnchorDate      time.Time           `json:"anchor_date"` // fixes the weekday / month day for weekly and monthly routines
	IsActive        bool                `json:"is_active"`
	ReminderEnabled bool                `json:"reminder_enabled"`
	CompletedCount  int                 `json:"completed_count" validate:"gte=0"`
	LastCompletedAt *time.Time          `json:"last_completed_at,omitempty"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
}

// CompletionEntry is one immutable ledger record
type CompletionEntry struct {
	ID          string    `json:"id"`
	RoutineID   string    `json:"routine_id"`
	OwnerID     string    `json:"owner_id"`
	CompletedAt time.Time `json:"completed_at"`
	Date        string    `json:"date"` // YYYY-MM-DD in the owner's timezone at completion time
}

// ParseFrequency accepts a frequency name in any letter case
func ParseFrequency(s string) (constants.Frequency, error) {
	switch f := constants.Frequency(strings.ToLower(strings.TrimSpace(s))); f {
	case constants.FrequencyDaily, constants.FrequencyWeekly, constants.FrequencyMonthly:
		return f, nil
	default:
		return "", fmt.Errorf("invalid frequency %q (expected daily, weekly or monthly)", s)
	}
}

// FormatRecurrence returns a human-readable string describing when the routine recurs
func (r *Routine) FormatRecurrence() string {
	switch r.Frequency {
	case constants.FrequencyDaily:
		return fmt.Sprintf("daily at %s", r.TimeOfDay)
	case constants.FrequencyWeekly:
		return fmt.Sprintf("every %s at %s", r.AnchorDate.Weekday(), r.TimeOfDay)
	case constants.FrequencyMonthly:
		return fmt.Sprintf("monthly on day %d at %s", r.AnchorDate.Day(), r.TimeOfDay)
	default:
		return "unknown"
	}
}
