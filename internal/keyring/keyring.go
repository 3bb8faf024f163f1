// Package keyring keeps the password-bearing postgres DSN in the OS keyring
// so config files only carry credential-free connection strings.
package keyring

import (
	"errors"
	"fmt"
	"os"

	"github.com/zalando/go-keyring"

	"github.com/julianstephens/routinely/internal/constants"
)

var (
	ErrNotFound           = errors.New("credentials not found in keyring")
	ErrKeyringUnavailable = errors.New("OS keyring is not available")
)

// Get returns the stored DSN for account.
func Get(account string) (string, error) {
	secret, err := keyring.Get(constants.AppName, account)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrKeyringUnavailable, err)
	}
	return secret, nil
}

// Set stores secret for account.
func Set(account, secret string) error {
	if secret == "" {
		return errors.New("connection string cannot be empty")
	}
	if err := keyring.Set(constants.AppName, account, secret); err != nil {
		return fmt.Errorf("failed to store credentials in keyring: %w", err)
	}
	return nil
}

// Delete removes account's secret.
func Delete(account string) error {
	err := keyring.Delete(constants.AppName, account)
	if errors.Is(err, keyring.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to delete credentials from keyring: %w", err)
	}
	return nil
}

// ResolveConnection picks the DSN to open: ROUTINELY_DB_CONNECTION first,
// then the keyring entry, then configured unchanged.
func ResolveConnection(configured string) (string, error) {
	if env := os.Getenv(constants.EnvDBConnection); env != "" {
		return env, nil
	}
	secret, err := Get(constants.DefaultKeyringUser)
	switch {
	case err == nil:
		return secret, nil
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrKeyringUnavailable):
		return configured, nil
	default:
		return "", err
	}
}

// IsAvailable reports whether reads from the OS keyring work at all.
func IsAvailable() bool {
	_, err := keyring.Get(constants.AppName, "availability-probe")
	return err == nil || errors.Is(err, keyring.ErrNotFound)
}
