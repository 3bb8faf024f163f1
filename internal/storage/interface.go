package storage

import (
	"context"
	"time"

	"github.com/julianstephens/routinely/internal/models"
)

// Provider is the ledger store contract shared by every backend.
// Routines are keyed by owner then id; the ledger is range-scanned by
// owner and date.
type Provider interface {
	// Lifecycle
	Init(ctx context.Context) error
	Load(ctx context.Context) error
	Close() error
	GetConfigPath() string

	// Routines
	AddRoutine(ctx context.Context, routine models.Routine) error
	GetRoutine(ctx context.Context, ownerID, id string) (models.Routine, error)
	GetRoutinesForOwner(ctx context.Context, ownerID string) ([]models.Routine, error)
	GetAllRoutines(ctx context.Context) ([]models.Routine, error)
	ModifyRoutine(ctx context.Context, ownerID, id string, fn func(*models.Routine) error) (models.Routine, error)
	DeleteRoutine(ctx context.Context, ownerID, id string) error

	// Ledger
	CompleteRoutine(ctx context.Context, entry models.CompletionEntry) (models.CompletionEntry, bool, error)
	GetEntry(ctx context.Context, routineID, date string) (models.CompletionEntry, error)
	GetEntriesForOwner(ctx context.Context, ownerID, startDate, endDate string) ([]models.CompletionEntry, error)
	GetAllEntriesForOwner(ctx context.Context, ownerID string) ([]models.CompletionEntry, error)
	RepairCounters(ctx context.Context) (int, error)

	// Tasks
	AddTask(ctx context.Context, task models.Task) error
	GetTask(ctx context.Context, ownerID, id string) (models.Task, error)
	GetTasksForOwner(ctx context.Context, ownerID string, includeCompleted bool) ([]models.Task, error)
	GetTasksDueBetween(ctx context.Context, startDate, endDate string) ([]models.Task, error)
	GetSnoozedTasksBetween(ctx context.Context, from, to time.Time) ([]models.Task, error)
	ModifyTask(ctx context.Context, ownerID, id string, fn func(*models.Task) error) (models.Task, error)
	CompleteTask(ctx context.Context, ownerID, id string, at time.Time) error
	DeleteTask(ctx context.Context, ownerID, id string) error

	// Preferences
	GetPreferences(ctx context.Context, ownerID string) (models.UserPreferences, error)
	GetAllPreferences(ctx context.Context) ([]models.UserPreferences, error)
	SavePreferences(ctx context.Context, prefs models.UserPreferences) error

	// Utils
	Stats(ctx context.Context) (Stats, error)
}

// Stats are system-wide totals.
type Stats struct {
	Owners      int `json:"owners"`
	Routines    int `json:"routines"`
	Active      int `json:"active"`
	Completions int `json:"completions"`
	Tasks       int `json:"tasks"`
	OpenTasks   int `json:"open_tasks"`
}
