// Package cli holds the kong commands of the routinely binary.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/julianstephens/routinely/internal/backup"
	"github.com/julianstephens/routinely/internal/clock"
	"github.com/julianstephens/routinely/internal/config"
	"github.com/julianstephens/routinely/internal/constants"
	"github.com/julianstephens/routinely/internal/engine"
	"github.com/julianstephens/routinely/internal/keyring"
	"github.com/julianstephens/routinely/internal/logger"
	"github.com/julianstephens/routinely/internal/storage"
	"github.com/julianstephens/routinely/internal/storage/postgres"
	"github.com/julianstephens/routinely/internal/storage/sqlite"
	"github.com/julianstephens/routinely/internal/utils"
)

// Context is shared by every command. Load or Init must run before Engine
// or Store are used.
type Context struct {
	Config *config.Config
	Owner  string
	Out    io.Writer
	In     io.Reader
	Clock  clock.Clock

	base      context.Context
	backend   storage.Provider
	guarded   *storage.Guarded
	engine    *engine.Engine
	backups   *backup.Manager
	snapshots *backup.Snapshotter
}

func NewContext(base context.Context, cfg *config.Config, owner string) *Context {
	return &Context{
		Config: cfg,
		Owner:  owner,
		Out:    os.Stdout,
		In:     os.Stdin,
		Clock:  clock.System{},
		base:   base,
	}
}

// Ctx is the process context, cancelled on SIGINT/SIGTERM.
func (c *Context) Ctx() context.Context {
	if c.base == nil {
		return context.Background()
	}
	return c.base
}

// newBackend picks SQLite or PostgreSQL from the configured database.
// ROUTINELY_DB_CONNECTION forces PostgreSQL.
func (c *Context) newBackend() (storage.Provider, error) {
	db := c.Config.Database
	if !postgres.IsConnString(db) {
		if os.Getenv(constants.EnvDBConnection) == "" {
			return sqlite.NewStore(config.ExpandPath(db)), nil
		}
	} else if err := postgres.ValidateConnString(db); err != nil {
		return nil, err
	}
	dsn, err := keyring.ResolveConnection(db)
	if err != nil {
		return nil, err
	}
	return postgres.New(dsn), nil
}

// Init creates the store and applies migrations.
func (c *Context) Init() error {
	return c.open(true)
}

// Load opens an existing store.
func (c *Context) Load() error {
	return c.open(false)
}

func (c *Context) open(create bool) error {
	if c.engine != nil {
		return nil
	}
	backend, err := c.newBackend()
	if err != nil {
		return err
	}
	if create {
		err = backend.Init(c.Ctx())
	} else {
		err = backend.Load(c.Ctx())
	}
	if err != nil {
		return err
	}

	c.backend = backend
	c.guarded = storage.NewGuarded(backend, c.Config.StoreTimeout)
	if s, ok := backend.(*sqlite.Store); ok {
		c.backups = backup.NewManager(s.GetConfigPath(), c.Config.BackupRetain)
		if c.Config.BackupInterval > 0 {
			c.snapshots = backup.NewSnapshotter(c.backups, c.Config.BackupInterval)
			c.guarded.OnWrite = c.snapshots.Notify
		}
	}

	weekStart, err := c.Config.WeekStartDay()
	if err != nil {
		return err
	}
	c.engine = engine.New(c.guarded,
		engine.WithClock(c.Clock),
		engine.WithWeekStart(weekStart),
		engine.WithDefaultLocation(c.Config.Location()),
	)
	logger.Debug("Store opened", "path", backend.GetConfigPath())
	return nil
}

func (c *Context) Engine() *engine.Engine { return c.engine }

// Store returns the guarded store.
func (c *Context) Store() *storage.Guarded { return c.guarded }

// Backups returns the backup manager, or nil for PostgreSQL.
func (c *Context) Backups() *backup.Manager { return c.backups }

// Close waits for a pending snapshot and closes the store.
func (c *Context) Close() error {
	if c.snapshots != nil {
		c.snapshots.Close()
		if n := c.snapshots.Taken(); n > 0 {
			logger.Info("Automatic backups taken", "count", n)
		}
		c.snapshots = nil
	}
	if c.backend == nil {
		return nil
	}
	err := c.backend.Close()
	c.backend, c.guarded, c.engine = nil, nil, nil
	return err
}

// today returns midnight of the current day in loc.
func (c *Context) today(loc *time.Location) time.Time {
	return utils.StartOfDay(c.Clock.Now().In(loc))
}

// parseDate accepts YYYY-MM-DD, "today" or an empty string.
func (c *Context) parseDate(s string) (time.Time, error) {
	loc, err := c.engine.Preferences().GetTimezone(c.Ctx(), c.Owner)
	if err != nil {
		return time.Time{}, err
	}
	if s == "" || s == "today" {
		return c.today(loc), nil
	}
	t, err := utils.ParseDateInLocation(s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (expected %s or 'today')", s, constants.DateFormat)
	}
	return t, nil
}

func (c *Context) printf(format string, args ...interface{}) {
	fmt.Fprintf(c.Out, format, args...)
}

func (c *Context) println(args ...interface{}) {
	fmt.Fprintln(c.Out, args...)
}

func (c *Context) printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	c.println(string(data))
	return nil
}

// NeedsStore reports whether a command path runs against the database.
func NeedsStore(command string) bool {
	switch command {
	case "init", "migrate", "doctor",
		"keyring set <connection-string>", "keyring show", "keyring delete", "keyring status":
		return false
	}
	return true
}

var errCancelled = errors.New("cancelled")
