// Package config loads routinely's settings from a YAML file and ROUTINELY_*
// environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/julianstephens/routinely/internal/constants"
	"github.com/julianstephens/routinely/internal/utils"
)

// Config holds application configuration
type Config struct {
	Database       string        `yaml:"database"` // SQLite path or postgres DSN
	Timezone       string        `yaml:"timezone"`
	StoreTimeout   time.Duration `yaml:"store_timeout"`
	BackupInterval int           `yaml:"backup_interval"` // writes between snapshots, 0 disables
	BackupRetain   int           `yaml:"backup_retain"`
	TickInterval   time.Duration `yaml:"tick_interval"`
	Sender         string        `yaml:"sender"`
	AMQPURL        string        `yaml:"amqp_url"`
	AMQPQueue      string        `yaml:"amqp_queue"`
	RedisURL       string        `yaml:"redis_url"`
	WeekStart      string        `yaml:"week_start"`
	Debug          bool          `yaml:"debug"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Database:       constants.DefaultDBPath,
		Timezone:       constants.DefaultTimezone,
		StoreTimeout:   constants.DefaultStoreTimeout,
		BackupInterval: constants.DefaultBackupInterval,
		BackupRetain:   constants.MaxBackups,
		TickInterval:   constants.DefaultTickInterval,
		Sender:         constants.SenderConsole,
		AMQPQueue:      constants.DefaultAMQPQueue,
		WeekStart:      "monday",
	}
}

// Load reads path over the defaults, then applies the environment. A missing
// file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(ExpandPath(path))
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	c.Database = getEnv("DATABASE", c.Database)
	c.Timezone = getEnv("TIMEZONE", c.Timezone)
	c.Sender = getEnv("SENDER", c.Sender)
	c.AMQPURL = getEnv("AMQP_URL", c.AMQPURL)
	c.AMQPQueue = getEnv("AMQP_QUEUE", c.AMQPQueue)
	c.RedisURL = getEnv("REDIS_URL", c.RedisURL)
	c.WeekStart = getEnv("WEEK_START", c.WeekStart)
	c.Debug = getEnvBool("DEBUG", c.Debug)

	var err error
	if c.StoreTimeout, err = getEnvDuration("STORE_TIMEOUT", c.StoreTimeout); err != nil {
		return err
	}
	if c.TickInterval, err = getEnvDuration("TICK_INTERVAL", c.TickInterval); err != nil {
		return err
	}
	if c.BackupInterval, err = getEnvInt("BACKUP_INTERVAL", c.BackupInterval); err != nil {
		return err
	}
	if c.BackupRetain, err = getEnvInt("BACKUP_RETAIN", c.BackupRetain); err != nil {
		return err
	}
	return nil
}

// Validate rejects settings the rest of the program cannot run with.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Database) == "" {
		return errors.New("database is required")
	}
	if c.StoreTimeout <= 0 {
		return fmt.Errorf("store_timeout must be positive, got %s", c.StoreTimeout)
	}
	if c.TickInterval <= 0 {
		return fmt.Errorf("tick_interval must be positive, got %s", c.TickInterval)
	}
	if c.BackupInterval < 0 || c.BackupRetain < 0 {
		return errors.New("backup_interval and backup_retain must not be negative")
	}
	if !utils.ValidateTimezone(c.Timezone) {
		return fmt.Errorf("invalid timezone %q", c.Timezone)
	}
	if _, err := c.WeekStartDay(); err != nil {
		return err
	}
	switch c.Sender {
	case constants.SenderConsole, constants.SenderTray:
	case constants.SenderAMQP:
		if c.AMQPURL == "" {
			return errors.New("amqp_url is required for the amqp sender")
		}
	default:
		return fmt.Errorf("unknown sender %q (expected console, tray or amqp)", c.Sender)
	}
	return nil
}

// Location returns the default timezone.
func (c *Config) Location() *time.Location {
	loc, err := utils.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// WeekStartDay parses WeekStart as an English weekday name.
func (c *Config) WeekStartDay() (time.Weekday, error) {
	name := strings.ToLower(strings.TrimSpace(c.WeekStart))
	if name == "" {
		return time.Monday, nil
	}
	for d := time.Sunday; d <= time.Saturday; d++ {
		if strings.ToLower(d.String()) == name {
			return d, nil
		}
	}
	return 0, fmt.Errorf("invalid week_start %q", c.WeekStart)
}

// ExpandPath replaces a leading ~ with the user's home directory.
func ExpandPath(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(constants.EnvPrefix + key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(constants.EnvPrefix + key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(constants.EnvPrefix + key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s%s: %w", constants.EnvPrefix, key, err)
	}
	return n, nil
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(constants.EnvPrefix + key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s%s: %w", constants.EnvPrefix, key, err)
	}
	return d, nil
}
