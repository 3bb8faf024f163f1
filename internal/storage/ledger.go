package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	apperrors "github.com/julianstephens/routinely/internal/errors"
	"github.com/julianstephens/routinely/internal/models"
)

const entryColumns = `id, routine_id, owner_id, completed_at, date`

func scanEntry(row scanner) (models.CompletionEntry, error) {
	var e models.CompletionEntry
	var completedAt string
	if err := row.Scan(&e.ID, &e.RoutineID, &e.OwnerID, &completedAt, &e.Date); err != nil {
		return models.CompletionEntry{}, err
	}
	t, err := parseTime("completed_at", completedAt)
	if err != nil {
		return models.CompletionEntry{}, err
	}
	e.CompletedAt = t
	return e, nil
}

// CompleteRoutine appends entry and bumps the routine counter in one
// transaction. When an entry for (routine_id, date) already exists nothing
// changes and the stored entry is returned with created=false.
func (b *Base) CompleteRoutine(ctx context.Context, entry models.CompletionEntry) (models.CompletionEntry, bool, error) {
	tx, err := b.DB.BeginTx(ctx, nil)
	if err != nil {
		return models.CompletionEntry{}, false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var owner string
	err = tx.QueryRowContext(ctx, b.q(`SELECT owner_id FROM routines WHERE id = ?`), entry.RoutineID).Scan(&owner)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && owner != entry.OwnerID) {
		return models.CompletionEntry{}, false, apperrors.NotFound("complete routine", "routine not found: %s", entry.RoutineID)
	}
	if err != nil {
		return models.CompletionEntry{}, false, err
	}

	res, err := tx.ExecContext(ctx, b.q(`
		INSERT INTO completion_entries (`+entryColumns+`) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (routine_id, date) DO NOTHING`),
		entry.ID, entry.RoutineID, entry.OwnerID, formatTime(entry.CompletedAt), entry.Date,
	)
	if err != nil {
		return models.CompletionEntry{}, false, fmt.Errorf("failed to append entry: %w", err)
	}
	inserted, err := res.RowsAffected()
	if err != nil {
		return models.CompletionEntry{}, false, err
	}

	if inserted == 0 {
		existing, err := scanEntry(tx.QueryRowContext(ctx,
			b.q(`SELECT `+entryColumns+` FROM completion_entries WHERE routine_id = ? AND date = ?`),
			entry.RoutineID, entry.Date))
		if err != nil {
			return models.CompletionEntry{}, false, fmt.Errorf("failed to read existing entry: %w", err)
		}
		return existing, false, tx.Commit()
	}

	if _, err := tx.ExecContext(ctx, b.q(`
		UPDATE routines SET completed_count = completed_count + 1, last_completed_at = ?
		WHERE id = ?`),
		formatTime(entry.CompletedAt), entry.RoutineID,
	); err != nil {
		return models.CompletionEntry{}, false, fmt.Errorf("failed to update counter: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return models.CompletionEntry{}, false, fmt.Errorf("failed to commit completion: %w", err)
	}
	return entry, true, nil
}

func (b *Base) GetEntry(ctx context.Context, routineID, date string) (models.CompletionEntry, error) {
	e, err := scanEntry(b.queryRow(ctx,
		`SELECT `+entryColumns+` FROM completion_entries WHERE routine_id = ? AND date = ?`, routineID, date))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.CompletionEntry{}, apperrors.NotFound("get entry", "no completion for %s on %s", routineID, date)
		}
		return models.CompletionEntry{}, err
	}
	return e, nil
}

// GetEntriesForOwner returns entries with startDate <= date <= endDate.
func (b *Base) GetEntriesForOwner(ctx context.Context, ownerID, startDate, endDate string) ([]models.CompletionEntry, error) {
	return b.listEntries(ctx, `
		SELECT `+entryColumns+` FROM completion_entries
		WHERE owner_id = ? AND date >= ? AND date <= ?
		ORDER BY date, completed_at`, ownerID, startDate, endDate)
}

func (b *Base) GetAllEntriesForOwner(ctx context.Context, ownerID string) ([]models.CompletionEntry, error) {
	return b.listEntries(ctx, `
		SELECT `+entryColumns+` FROM completion_entries
		WHERE owner_id = ? ORDER BY date, completed_at`, ownerID)
}

func (b *Base) listEntries(ctx context.Context, query string, args ...interface{}) ([]models.CompletionEntry, error) {
	rows, err := b.query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []models.CompletionEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// RepairCounters recomputes completed_count and last_completed_at from the
// ledger and returns how many routines were out of sync.
func (b *Base) RepairCounters(ctx context.Context) (int, error) {
	tx, err := b.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	var drifted int
	err = tx.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM routines r
		WHERE r.completed_count <> (SELECT COUNT(*) FROM completion_entries e WHERE e.routine_id = r.id)`).Scan(&drifted)
	if err != nil {
		return 0, fmt.Errorf("failed to compare counters: %w", err)
	}
	if drifted == 0 {
		return 0, nil
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE routines SET
			completed_count = (SELECT COUNT(*) FROM completion_entries e WHERE e.routine_id = routines.id),
			last_completed_at = (SELECT MAX(e.completed_at) FROM completion_entries e WHERE e.routine_id = routines.id)`); err != nil {
		return 0, fmt.Errorf("failed to repair counters: %w", err)
	}
	return drifted, tx.Commit()
}
