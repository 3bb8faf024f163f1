package storage

import (
	"context"
	"errors"
	"time"

	"github.com/julianstephens/routinely/internal/constants"
	apperrors "github.com/julianstephens/routinely/internal/errors"
	"github.com/julianstephens/routinely/internal/logger"
	"github.com/julianstephens/routinely/internal/models"
)

// PreferenceReader answers the preference questions the core asks, filling in
// defaults for owners that never saved preferences.
type PreferenceReader struct {
	store      Provider
	defaultLoc *time.Location
}

func NewPreferenceReader(store Provider, defaultLoc *time.Location) *PreferenceReader {
	if defaultLoc == nil {
		defaultLoc = time.Local
	}
	return &PreferenceReader{store: store, defaultLoc: defaultLoc}
}

// Get returns the stored preferences or the defaults.
func (p *PreferenceReader) Get(ctx context.Context, ownerID string) (models.UserPreferences, error) {
	prefs, err := p.store.GetPreferences(ctx, ownerID)
	if errors.Is(err, apperrors.ErrNotFound) {
		return models.UserPreferences{
			OwnerID:              ownerID,
			Timezone:             p.defaultLoc.String(),
			NotificationsEnabled: constants.DefaultNotificationsEnabled,
			Language:             constants.DefaultLanguage,
		}, nil
	}
	return prefs, err
}

// GetTimezone resolves the owner's timezone. An unloadable stored zone falls
// back to the default.
func (p *PreferenceReader) GetTimezone(ctx context.Context, ownerID string) (*time.Location, error) {
	prefs, err := p.Get(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	loc, err := prefs.Location()
	if err != nil {
		logger.Warn("Using default timezone", "owner", ownerID, "timezone", prefs.Timezone, "error", err)
		return p.defaultLoc, nil
	}
	return loc, nil
}

func (p *PreferenceReader) NotificationsEnabled(ctx context.Context, ownerID string) (bool, error) {
	prefs, err := p.Get(ctx, ownerID)
	if err != nil {
		return false, err
	}
	return prefs.NotificationsEnabled, nil
}
