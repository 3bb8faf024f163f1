package models

import (
	"fmt"
	"time"
)

// UserPreferences holds the few user fields the scheduling core reads.
// Everything else about a user belongs to the chat layer.
type UserPreferences struct {
	OwnerID              string    `json:"owner_id" validate:"required"`
	Timezone             string    `json:"timezone" validate:"timezone"`
	NotificationsEnabled bool      `json:"notifications_enabled"`
	Language             string    `json:"language,omitempty"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// Location resolves the preference timezone. Empty and "Local" map to the
// system zone.
func (p UserPreferences) Location() (*time.Location, error) {
	if p.Timezone == "" || p.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(p.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", p.Timezone, err)
	}
	return loc, nil
}
