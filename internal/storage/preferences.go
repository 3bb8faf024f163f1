package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	apperrors "github.com/julianstephens/routinely/internal/errors"
	"github.com/julianstephens/routinely/internal/models"
)

const preferenceColumns = `owner_id, timezone, notifications_enabled, language, updated_at`

func scanPreferences(row scanner) (models.UserPreferences, error) {
	var p models.UserPreferences
	var updatedAt string
	if err := row.Scan(&p.OwnerID, &p.Timezone, &p.NotificationsEnabled, &p.Language, &updatedAt); err != nil {
		return models.UserPreferences{}, err
	}
	t, err := parseTime("updated_at", updatedAt)
	if err != nil {
		return models.UserPreferences{}, err
	}
	p.UpdatedAt = t
	return p, nil
}

// GetPreferences returns NotFound when the owner never saved preferences.
func (b *Base) GetPreferences(ctx context.Context, ownerID string) (models.UserPreferences, error) {
	p, err := scanPreferences(b.queryRow(ctx, `SELECT `+preferenceColumns+` FROM user_preferences WHERE owner_id = ?`, ownerID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.UserPreferences{}, apperrors.NotFound("get preferences", "no preferences for owner %s", ownerID)
		}
		return models.UserPreferences{}, err
	}
	return p, nil
}

func (b *Base) GetAllPreferences(ctx context.Context) ([]models.UserPreferences, error) {
	rows, err := b.query(ctx, `SELECT `+preferenceColumns+` FROM user_preferences ORDER BY owner_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.UserPreferences
	for rows.Next() {
		p, err := scanPreferences(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (b *Base) SavePreferences(ctx context.Context, p models.UserPreferences) error {
	_, err := b.exec(ctx, `
		INSERT INTO user_preferences (`+preferenceColumns+`) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (owner_id) DO UPDATE SET
			timezone = excluded.timezone,
			notifications_enabled = excluded.notifications_enabled,
			language = excluded.language,
			updated_at = excluded.updated_at`,
		p.OwnerID, p.Timezone, p.NotificationsEnabled, p.Language, formatTime(p.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to save preferences: %w", err)
	}
	return nil
}
