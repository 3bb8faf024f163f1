package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	apperrors "github.com/julianstephens/routinely/internal/errors"
	"github.com/julianstephens/routinely/internal/models"
)

const routineColumns = `id, owner_id, name, description, time_of_day, frequency, anchor_date,
	is_active, reminder_enabled, completed_count, last_completed_at, created_at, updated_at`

func scanRoutine(row scanner) (models.Routine, error) {
	var r models.Routine
	var frequency, anchorDate, createdAt, updatedAt string
	var lastCompletedAt sql.NullString

	err := row.Scan(
		&r.ID, &r.OwnerID, &r.Name, &r.Description, &r.TimeOfDay, &frequency, &anchorDate,
		&r.IsActive, &r.ReminderEnabled, &r.CompletedCount, &lastCompletedAt, &createdAt, &updatedAt,
	)
	if err != nil {
		return models.Routine{}, err
	}

	r.Frequency, err = models.ParseFrequency(frequency)
	if err != nil {
		return models.Routine{}, err
	}
	if r.AnchorDate, err = parseTime("anchor_date", anchorDate); err != nil {
		return models.Routine{}, err
	}
	if r.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
		return models.Routine{}, err
	}
	if r.UpdatedAt, err = parseTime("updated_at", updatedAt); err != nil {
		return models.Routine{}, err
	}
	if r.LastCompletedAt, err = parseNullTime("last_completed_at", lastCompletedAt); err != nil {
		return models.Routine{}, err
	}
	return r, nil
}

func (b *Base) AddRoutine(ctx context.Context, r models.Routine) error {
	_, err := b.exec(ctx, `
		INSERT INTO routines (`+routineColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.OwnerID, r.Name, r.Description, r.TimeOfDay, string(r.Frequency), formatTime(r.AnchorDate),
		r.IsActive, r.ReminderEnabled, r.CompletedCount, nullTime(r.LastCompletedAt),
		formatTime(r.CreatedAt), formatTime(r.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert routine: %w", err)
	}
	return nil
}

func (b *Base) GetRoutine(ctx context.Context, ownerID, id string) (models.Routine, error) {
	row := b.queryRow(ctx, `SELECT `+routineColumns+` FROM routines WHERE owner_id = ? AND id = ?`, ownerID, id)
	r, err := scanRoutine(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Routine{}, apperrors.NotFound("get routine", "routine not found: %s", id)
		}
		return models.Routine{}, err
	}
	return r, nil
}

func (b *Base) GetRoutinesForOwner(ctx context.Context, ownerID string) ([]models.Routine, error) {
	return b.listRoutines(ctx, `SELECT `+routineColumns+` FROM routines WHERE owner_id = ? ORDER BY time_of_day, id`, ownerID)
}

func (b *Base) GetAllRoutines(ctx context.Context) ([]models.Routine, error) {
	return b.listRoutines(ctx, `SELECT `+routineColumns+` FROM routines ORDER BY owner_id, id`)
}

func (b *Base) listRoutines(ctx context.Context, query string, args ...interface{}) ([]models.Routine, error) {
	rows, err := b.query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var routines []models.Routine
	for rows.Next() {
		r, err := scanRoutine(rows)
		if err != nil {
			return nil, err
		}
		routines = append(routines, r)
	}
	return routines, rows.Err()
}

// ModifyRoutine reads the routine, applies fn and writes the editable fields
// back in one transaction. The counter and last completion are owned by
// CompleteRoutine and RepairCounters. An error from fn aborts the change and
// is returned as is.
func (b *Base) ModifyRoutine(ctx context.Context, ownerID, id string, fn func(*models.Routine) error) (models.Routine, error) {
	tx, err := b.DB.BeginTx(ctx, nil)
	if err != nil {
		return models.Routine{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	r, err := scanRoutine(tx.QueryRowContext(ctx,
		b.q(`SELECT `+routineColumns+` FROM routines WHERE owner_id = ? AND id = ?`+b.forUpdate()), ownerID, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Routine{}, apperrors.NotFound("modify routine", "routine not found: %s", id)
	}
	if err != nil {
		return models.Routine{}, err
	}
	if err := fn(&r); err != nil {
		return models.Routine{}, err
	}

	if _, err := tx.ExecContext(ctx, b.q(`
		UPDATE routines SET name = ?, description = ?, time_of_day = ?, frequency = ?,
			is_active = ?, reminder_enabled = ?, updated_at = ?
		WHERE owner_id = ? AND id = ?`),
		r.Name, r.Description, r.TimeOfDay, string(r.Frequency),
		r.IsActive, r.ReminderEnabled, formatTime(r.UpdatedAt),
		ownerID, id,
	); err != nil {
		return models.Routine{}, fmt.Errorf("failed to update routine: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return models.Routine{}, fmt.Errorf("failed to commit routine update: %w", err)
	}
	return r, nil
}

// DeleteRoutine removes the routine record. Its ledger entries stay.
func (b *Base) DeleteRoutine(ctx context.Context, ownerID, id string) error {
	res, err := b.exec(ctx, `DELETE FROM routines WHERE owner_id = ? AND id = ?`, ownerID, id)
	if err != nil {
		return fmt.Errorf("failed to delete routine: %w", err)
	}
	return requireRow(res, "delete routine", "routine", id)
}

func requireRow(res sql.Result, op, kind, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return apperrors.NotFound(op, "%s not found: %s", kind, id)
	}
	return nil
}
