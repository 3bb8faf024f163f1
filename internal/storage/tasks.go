package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/julianstephens/routinely/internal/constants"
	apperrors "github.com/julianstephens/routinely/internal/errors"
	"github.com/julianstephens/routinely/internal/models"
)

const taskColumns = `id, owner_id, title, description, due_date, due_time, priority,
	reminder_enabled, completed, completed_at, created_at, snooze_until`

func scanTask(row scanner) (models.Task, error) {
	var t models.Task
	var priority, createdAt string
	var completedAt, snoozeUntil sql.NullString

	err := row.Scan(
		&t.ID, &t.OwnerID, &t.Title, &t.Description, &t.DueDate, &t.DueTime, &priority,
		&t.ReminderEnabled, &t.Completed, &completedAt, &createdAt, &snoozeUntil,
	)
	if err != nil {
		return models.Task{}, err
	}
	t.Priority = constants.Priority(priority)
	if t.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
		return models.Task{}, err
	}
	if t.CompletedAt, err = parseNullTime("completed_at", completedAt); err != nil {
		return models.Task{}, err
	}
	if t.SnoozeUntil, err = parseNullTime("snooze_until", snoozeUntil); err != nil {
		return models.Task{}, err
	}
	return t, nil
}

func (b *Base) AddTask(ctx context.Context, t models.Task) error {
	_, err := b.exec(ctx, `
		INSERT INTO tasks (`+taskColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.OwnerID, t.Title, t.Description, t.DueDate, t.DueTime, string(t.Priority),
		t.ReminderEnabled, t.Completed, nullTime(t.CompletedAt), formatTime(t.CreatedAt), nullTime(t.SnoozeUntil),
	)
	if err != nil {
		return fmt.Errorf("failed to insert task: %w", err)
	}
	return nil
}

func (b *Base) GetTask(ctx context.Context, ownerID, id string) (models.Task, error) {
	t, err := scanTask(b.queryRow(ctx, `SELECT `+taskColumns+` FROM tasks WHERE owner_id = ? AND id = ?`, ownerID, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Task{}, apperrors.NotFound("get task", "task not found: %s", id)
		}
		return models.Task{}, err
	}
	return t, nil
}

func (b *Base) GetTasksForOwner(ctx context.Context, ownerID string, includeCompleted bool) ([]models.Task, error) {
	if includeCompleted {
		return b.listTasks(ctx, `SELECT `+taskColumns+` FROM tasks WHERE owner_id = ? ORDER BY due_date, due_time, id`, ownerID)
	}
	return b.listTasks(ctx, `SELECT `+taskColumns+` FROM tasks WHERE owner_id = ? AND completed = ? ORDER BY due_date, due_time, id`, ownerID, false)
}

// GetTasksDueBetween returns open, reminder-enabled tasks with a due time whose
// due date falls in [startDate, endDate].
func (b *Base) GetTasksDueBetween(ctx context.Context, startDate, endDate string) ([]models.Task, error) {
	return b.listTasks(ctx, `
		SELECT `+taskColumns+` FROM tasks
		WHERE completed = ? AND reminder_enabled = ? AND due_time <> '' AND due_date >= ? AND due_date <= ?
		ORDER BY owner_id, id`, false, true, startDate, endDate)
}

// GetSnoozedTasksBetween returns open tasks whose snooze ends in [from, to).
func (b *Base) GetSnoozedTasksBetween(ctx context.Context, from, to time.Time) ([]models.Task, error) {
	return b.listTasks(ctx, `
		SELECT `+taskColumns+` FROM tasks
		WHERE completed = ? AND snooze_until IS NOT NULL AND snooze_until >= ? AND snooze_until < ?
		ORDER BY owner_id, id`, false, formatTime(from), formatTime(to))
}

// ModifyTask reads the task, applies fn and writes the editable fields back
// in one transaction. Completion is owned by CompleteTask.
func (b *Base) ModifyTask(ctx context.Context, ownerID, id string, fn func(*models.Task) error) (models.Task, error) {
	tx, err := b.DB.BeginTx(ctx, nil)
	if err != nil {
		return models.Task{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	t, err := scanTask(tx.QueryRowContext(ctx,
		b.q(`SELECT `+taskColumns+` FROM tasks WHERE owner_id = ? AND id = ?`+b.forUpdate()), ownerID, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Task{}, apperrors.NotFound("modify task", "task not found: %s", id)
	}
	if err != nil {
		return models.Task{}, err
	}
	if err := fn(&t); err != nil {
		return models.Task{}, err
	}

	if _, err := tx.ExecContext(ctx, b.q(`
		UPDATE tasks SET title = ?, description = ?, due_date = ?, due_time = ?, priority = ?,
			reminder_enabled = ?, snooze_until = ?
		WHERE owner_id = ? AND id = ?`),
		t.Title, t.Description, t.DueDate, t.DueTime, string(t.Priority),
		t.ReminderEnabled, nullTime(t.SnoozeUntil),
		ownerID, id,
	); err != nil {
		return models.Task{}, fmt.Errorf("failed to update task: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return models.Task{}, fmt.Errorf("failed to commit task update: %w", err)
	}
	return t, nil
}

func (b *Base) listTasks(ctx context.Context, query string, args ...interface{}) ([]models.Task, error) {
	rows, err := b.query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []models.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// CompleteTask marks the task done. Completing a done task keeps the first
// completion time.
func (b *Base) CompleteTask(ctx context.Context, ownerID, id string, at time.Time) error {
	res, err := b.exec(ctx, `
		UPDATE tasks SET completed = ?, completed_at = COALESCE(completed_at, ?), snooze_until = NULL
		WHERE owner_id = ? AND id = ?`, true, formatTime(at), ownerID, id)
	if err != nil {
		return fmt.Errorf("failed to complete task: %w", err)
	}
	return requireRow(res, "complete task", "task", id)
}

func (b *Base) DeleteTask(ctx context.Context, ownerID, id string) error {
	res, err := b.exec(ctx, `DELETE FROM tasks WHERE owner_id = ? AND id = ?`, ownerID, id)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	return requireRow(res, "delete task", "task", id)
}
