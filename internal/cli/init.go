package cli

import (
	"fmt"

	"github.com/julianstephens/routinely/internal/storage/sqlite"
)

type InitCmd struct{}

func (c *InitCmd) Run(ctx *Context) error {
	if err := ctx.Init(); err != nil {
		return err
	}
	ctx.printf("Initialized routinely storage at: %s\n", ctx.Store().GetConfigPath())
	return nil
}

type MigrateCmd struct{}

func (c *MigrateCmd) Run(ctx *Context) error {
	backend, err := ctx.newBackend()
	if err != nil {
		return err
	}
	defer backend.Close()

	if s, ok := backend.(*sqlite.Store); ok {
		applied, err := s.Migrate(ctx.Ctx())
		if err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
		if applied == 0 {
			ctx.println("Database is up to date.")
		} else {
			ctx.printf("✓ Applied %d migration(s)\n", applied)
		}
		return nil
	}

	if err := backend.Init(ctx.Ctx()); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	ctx.println("✓ Migrations applied")
	return nil
}
