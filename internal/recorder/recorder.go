// Package recorder appends completions to the ledger.
package recorder

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/julianstephens/routinely/internal/constants"
	apperrors "github.com/julianstephens/routinely/internal/errors"
	"github.com/julianstephens/routinely/internal/logger"
	"github.com/julianstephens/routinely/internal/models"
	"github.com/julianstephens/routinely/internal/utils"
)

// Store is the part of the ledger store the recorder writes through.
type Store interface {
	GetRoutine(ctx context.Context, ownerID, id string) (models.Routine, error)
	CompleteRoutine(ctx context.Context, entry models.CompletionEntry) (models.CompletionEntry, bool, error)
	GetAllEntriesForOwner(ctx context.Context, ownerID string) ([]models.CompletionEntry, error)
}

// Timezones resolves an owner's timezone.
type Timezones interface {
	GetTimezone(ctx context.Context, ownerID string) (*time.Location, error)
}

// Recorder writes completions to the ledger on the owner's local date.
type Recorder struct {
	store Store
	tz    Timezones
	newID func() string
}

// New creates a recorder over store.
func New(store Store, tz Timezones) *Recorder {
	return &Recorder{store: store, tz: tz, newID: uuid.NewString}
}

// Complete records that owner completed the routine at the given instant.
// A second completion on the same owner-local date returns the first entry
// unchanged.
func (r *Recorder) Complete(ctx context.Context, ownerID, routineID string, at time.Time) (models.CompletionEntry, error) {
	entry, _, err := r.Record(ctx, ownerID, routineID, at)
	return entry, err
}

// Record is Complete that also reports whether a new entry was appended.
func (r *Recorder) Record(ctx context.Context, ownerID, routineID string, at time.Time) (models.CompletionEntry, bool, error) {
	ownerID = strings.TrimSpace(ownerID)
	routineID = strings.TrimSpace(routineID)
	if ownerID == "" || routineID == "" {
		return models.CompletionEntry{}, false, apperrors.NotFound("complete", "routine not found: %q", routineID)
	}

	loc, err := r.tz.GetTimezone(ctx, ownerID)
	if err != nil {
		return models.CompletionEntry{}, false, apperrors.StoreRead("complete", err)
	}

	entry := models.CompletionEntry{
		ID:          r.newID(),
		RoutineID:   routineID,
		OwnerID:     ownerID,
		CompletedAt: at,
		Date:        utils.DateOf(at, loc),
	}

	stored, created, err := r.store.CompleteRoutine(ctx, entry)
	if err != nil {
		err = apperrors.StoreWrite("complete", err)
		logger.Error("Completion failed", "owner", ownerID, "routine", routineID, "error", err)
		return models.CompletionEntry{}, false, err
	}

	if created {
		logger.Info("Routine completed", "owner", ownerID, "routine", routineID, "date", stored.Date)
	} else {
		logger.Debug("Routine already completed", "owner", ownerID, "routine", routineID, "date", stored.Date)
	}
	return stored, created, nil
}

// Streak counts consecutive due dates, ending at today, on which the routine
// was completed. An uncompleted today does not break the streak.
func (r *Recorder) Streak(ctx context.Context, ownerID, routineID string, today time.Time) (int, error) {
	routine, err := r.store.GetRoutine(ctx, ownerID, routineID)
	if err != nil {
		return 0, err
	}
	loc, err := r.tz.GetTimezone(ctx, ownerID)
	if err != nil {
		return 0, apperrors.StoreRead("streak", err)
	}
	entries, err := r.store.GetAllEntriesForOwner(ctx, ownerID)
	if err != nil {
		return 0, apperrors.StoreRead("streak", err)
	}

	done := make(map[string]bool)
	first := ""
	for _, e := range entries {
		if e.RoutineID != routineID {
			continue
		}
		done[e.Date] = true
		if first == "" || e.Date < first {
			first = e.Date
		}
	}
	if len(done) == 0 {
		return 0, nil
	}

	// a paused routine keeps its streak history
	routine.IsActive = true
	day := utils.StartOfDay(today.In(loc))
	streak := 0
	for d := day; d.Format(constants.DateFormat) >= first; d = d.AddDate(0, 0, -1) {
		if !utils.IsDueOn(routine, d) {
			continue
		}
		switch date := d.Format(constants.DateFormat); {
		case done[date]:
			streak++
		case d.Equal(day):
			continue
		default:
			return streak, nil
		}
	}
	return streak, nil
}
