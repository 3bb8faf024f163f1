package cli

import (
	"fmt"
	"time"

	"github.com/julianstephens/routinely/internal/keyring"
	"github.com/julianstephens/routinely/internal/storage/sqlite"
	"github.com/julianstephens/routinely/internal/validation"
)

type DoctorCmd struct{}

type check struct {
	name    string
	warn    bool
	skipped bool
	run     func(ctx *Context) error
}

func (cmd *DoctorCmd) Run(ctx *Context) error {
	ctx.println("Running diagnostics...")
	ctx.println()

	dbReachable := checkDBReachable(ctx) == nil
	checks := []check{
		{name: "Database reachable", run: checkDBReachable},
		{name: "Schema version", run: checkSchemaVersion},
		{name: "Backups present", warn: true, run: checkBackupsPresent},
		{name: "Data validation", skipped: !dbReachable, run: checkValidation},
		{name: "Counters match ledger", skipped: !dbReachable, run: checkCounters},
		{name: "OS keyring", warn: true, run: checkKeyring},
		{name: "Clock/timezone", run: checkClockTimezone},
	}

	hasError := false
	for _, c := range checks {
		if c.skipped {
			ctx.printf("⊘ %s: SKIPPED (database not reachable)\n", c.name)
			continue
		}
		err := c.run(ctx)
		switch {
		case err == nil:
			ctx.printf("✓ %s: OK\n", c.name)
		case c.warn:
			ctx.printf("⚠ %s: WARNING\n   %v\n", c.name, err)
		default:
			ctx.printf("❌ %s: FAIL\n   Error: %v\n", c.name, err)
			hasError = true
		}
	}

	ctx.println()
	if hasError {
		ctx.println("Diagnostics completed with errors.")
		return fmt.Errorf("one or more health checks failed")
	}
	ctx.println("All diagnostics passed!")
	return nil
}

func checkDBReachable(ctx *Context) error {
	if err := ctx.Load(); err != nil {
		return fmt.Errorf("failed to load database: %w", err)
	}
	_, err := ctx.Engine().Stats(ctx.Ctx())
	return err
}

func checkSchemaVersion(ctx *Context) error {
	if ctx.backend == nil {
		return fmt.Errorf("database not loaded")
	}
	s, ok := ctx.backend.(*sqlite.Store)
	if !ok {
		// postgres validates the version on load
		return nil
	}

	runner, err := s.Runner()
	if err != nil {
		return err
	}
	current, err := runner.GetCurrentVersion(ctx.Ctx())
	if err != nil {
		return fmt.Errorf("failed to get current schema version: %w", err)
	}
	latest, err := runner.GetLatestVersion()
	if err != nil {
		return fmt.Errorf("failed to get latest schema version: %w", err)
	}
	switch {
	case current > latest:
		return fmt.Errorf("database schema version (%d) is newer than supported version (%d)", current, latest)
	case current < latest:
		return fmt.Errorf("migrations incomplete: current version %d, latest version %d", current, latest)
	}
	return nil
}

func checkBackupsPresent(ctx *Context) error {
	mgr := ctx.Backups()
	if mgr == nil {
		return errNoBackups
	}
	backups, err := mgr.ListBackups()
	if err != nil {
		return fmt.Errorf("failed to list backups: %w", err)
	}
	if len(backups) == 0 {
		return fmt.Errorf("no backups found - consider creating one with 'routinely backup create'")
	}
	return nil
}

func checkValidation(ctx *Context) error {
	routines, err := ctx.Store().GetAllRoutines(ctx.Ctx())
	if err != nil {
		return fmt.Errorf("failed to get routines: %w", err)
	}
	for i := range routines {
		r := routines[i]
		if err := validation.Routine(&r); err != nil {
			return fmt.Errorf("routine %s: %w", r.ID, err)
		}
	}
	return nil
}

func checkCounters(ctx *Context) error {
	n, err := ctx.Engine().Repair(ctx.Ctx())
	if err != nil {
		return err
	}
	if n > 0 {
		ctx.printf("   Repaired %d routine counter(s)\n", n)
	}
	return nil
}

func checkKeyring(*Context) error {
	if !keyring.IsAvailable() {
		return keyring.ErrKeyringUnavailable
	}
	return nil
}

func checkClockTimezone(ctx *Context) error {
	now := ctx.Clock.Now()
	if now.Year() < 2020 || now.Year() > 2100 {
		return fmt.Errorf("system time appears incorrect: %s", now.Format(time.RFC3339))
	}
	ctx.printf("   Default timezone: %s\n", ctx.Config.Location())
	return nil
}
