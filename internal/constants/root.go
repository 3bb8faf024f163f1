package constants

import "time"

// Frequency represents how often a routine recurs
type Frequency string

// Priority represents the priority of a one-off task
type Priority string

const (
	AppName            = "routinely"
	DefaultKeyringUser = "database-connection"
	DefaultConfigPath  = "~/.config/routinely/config.yaml"
	DefaultDBPath      = "~/.config/routinely/routinely.db"
	Version            = "v0.3.0"

	// DateFormat is the standard date format used throughout the application (YYYY-MM-DD)
	DateFormat = "2006-01-02"

	// TimeFormat is the standard time format used throughout the application (HH:MM)
	TimeFormat = "15:04"

	// Backup constants
	MaxBackups            = 14
	BackupDirName         = "backups"
	BackupFilePrefix      = "routinely-"
	BackupFileSuffix      = ".db"
	DefaultBackupInterval = 25 // writes between snapshots

	// Store constants
	DefaultStoreTimeout = 5 * time.Second
	OwnerLockStripes    = 64

	// Scheduler constants
	DefaultTickInterval = time.Minute
	DedupKeyTTL         = 2 * time.Minute

	// Notify constants
	NotifierLockfileName   = "routinely-notifier.lock"
	NotificationDurationMs = 5000
	TrayAppIdentifier      = "com.julianstephens.routinely"
	DefaultAMQPQueue       = "routine_reminders"

	// Sender kinds
	SenderConsole = "console"
	SenderTray    = "tray"
	SenderAMQP    = "amqp"

	// Frequencies
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"

	// Task priorities
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"

	// Field limits
	RoutineNameMin        = 1
	RoutineNameMax        = 100
	RoutineDescriptionMin = 5
	RoutineDescriptionMax = 500

	// Sessions
	DefaultSessionTTL = 15 * time.Minute
)
