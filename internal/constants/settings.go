package constants

const (
	// Preference keys
	SettingTimezone             = "timezone"
	SettingNotificationsEnabled = "notifications_enabled"
	SettingLanguage             = "language"

	// Default preference values
	DefaultTimezone             = "Local" // Use system local timezone by default
	DefaultNotificationsEnabled = true
	DefaultLanguage             = "en"

	// Log rotation
	LogFileName   = "routinely.log"
	LogMaxSizeMB  = 10
	LogMaxBackups = 3
	LogMaxAgeDays = 28

	// Environment variables
	EnvDBConnection = "ROUTINELY_DB_CONNECTION"
	EnvPrefix       = "ROUTINELY_"
)
