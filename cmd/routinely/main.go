package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/julianstephens/routinely/internal/cli"
	"github.com/julianstephens/routinely/internal/config"
	"github.com/julianstephens/routinely/internal/constants"
	apperrors "github.com/julianstephens/routinely/internal/errors"
	"github.com/julianstephens/routinely/internal/logger"
)

var CLI struct {
	Version kong.VersionFlag
	Config  string `help:"Config file path." type:"string" default:"${config_path}"`
	DB      string `name:"db" help:"SQLite path or PostgreSQL connection string. PostgreSQL passwords belong in the OS keyring or ROUTINELY_DB_CONNECTION, never in the string."`
	Owner   string `help:"Owner whose routines to manage." env:"ROUTINELY_OWNER" default:"local"`
	Debug   bool   `help:"Enable debug logging."`

	Init    cli.InitCmd    `cmd:"" help:"Initialize routinely storage."`
	Migrate cli.MigrateCmd `cmd:"" help:"Run database migrations."`
	Doctor  cli.DoctorCmd  `cmd:"" help:"Run health checks and diagnostics."`
	Routine struct {
		Add      cli.RoutineAddCmd      `cmd:"" help:"Add a routine."`
		List     cli.RoutineListCmd     `cmd:"" help:"List routines." default:"1"`
		Edit     cli.RoutineEditCmd     `cmd:"" help:"Edit a routine."`
		Toggle   cli.RoutineToggleCmd   `cmd:"" help:"Pause or resume a routine."`
		Reminder cli.RoutineReminderCmd `cmd:"" help:"Turn a routine's reminders on or off."`
		Delete   cli.RoutineDeleteCmd   `cmd:"" help:"Delete a routine, keeping its history."`
	} `cmd:"" help:"Manage routines."`
	Tui      cli.TuiCmd      `cmd:"" help:"Open the interactive dashboard."`
	Due      cli.DueCmd      `cmd:"" help:"Show routines due on a day."`
	Complete cli.CompleteCmd `cmd:"" help:"Mark a routine done for today."`
	Act      cli.ActCmd      `cmd:"" hidden:"" help:"Apply a reminder action payload."`
	Report   cli.ReportCmd   `cmd:"" help:"Show completion statistics."`
	Task     struct {
		Add      cli.TaskAddCmd      `cmd:"" help:"Add a one-off task."`
		List     cli.TaskListCmd     `cmd:"" help:"List tasks." default:"1"`
		Complete cli.TaskCompleteCmd `cmd:"" help:"Mark a task done."`
		Delete   cli.TaskDeleteCmd   `cmd:"" help:"Delete a task."`
		Edit     cli.TaskEditCmd     `cmd:"" help:"Edit a task."`
		Snooze   cli.TaskSnoozeCmd   `cmd:"" help:"Defer a task reminder."`
		Stats    cli.TaskStatsCmd    `cmd:"" help:"Show task statistics."`
	} `cmd:"" help:"Manage one-off tasks."`
	Prefs struct {
		Show cli.PrefsShowCmd `cmd:"" help:"Show preferences." default:"1"`
		Set  cli.PrefsSetCmd  `cmd:"" help:"Change preferences."`
	} `cmd:"" help:"Manage owner preferences."`
	Notify cli.NotifyCmd `cmd:"" help:"Run one reminder tick (for cron)."`
	Serve  cli.ServeCmd  `cmd:"" help:"Run the reminder scheduler until interrupted."`
	Backup struct {
		Create  cli.BackupCreateCmd  `cmd:"" help:"Create a manual backup." default:"1"`
		List    cli.BackupListCmd    `cmd:"" help:"List available backups."`
		Restore cli.BackupRestoreCmd `cmd:"" help:"Restore from a backup."`
	} `cmd:"" help:"Manage database backups."`
	Export  cli.ExportCmd `cmd:"" help:"Print the owner's data as JSON."`
	Repair  cli.RepairCmd `cmd:"" help:"Recompute routine counters from the ledger."`
	Keyring struct {
		Set    cli.KeyringSetCmd    `cmd:"" help:"Store the PostgreSQL connection string."`
		Show   cli.KeyringShowCmd   `cmd:"" help:"Show the stored connection string, masked."`
		Delete cli.KeyringDeleteCmd `cmd:"" help:"Remove the stored connection string."`
		Status cli.KeyringStatusCmd `cmd:"" help:"Check keyring availability."`
	} `cmd:"" help:"Manage credentials in the OS keyring."`
	DebugInfo cli.DebugCmd `name:"debug-info" cmd:"" help:"Debug commands for troubleshooting."`
}

func main() {
	kctx := kong.Parse(&CLI,
		kong.Name(constants.AppName),
		kong.Description("Routine scheduling and completion tracking"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact:             true,
			NoExpandSubcommands: true,
		}),
		kong.Vars{"version": constants.Version, "config_path": constants.DefaultConfigPath},
	)

	cfg, err := config.Load(CLI.Config)
	if err != nil {
		apperrors.Fatal(err)
	}
	if CLI.DB != "" {
		cfg.Database = CLI.DB
	}
	if CLI.Debug {
		cfg.Debug = true
	}
	if err := cfg.Validate(); err != nil {
		apperrors.Fatal(fmt.Errorf("invalid configuration: %w", err))
	}

	command := kctx.Command()
	if err := logger.Init(logger.Config{
		Debug:     cfg.Debug,
		ConfigDir: filepath.Dir(config.ExpandPath(CLI.Config)),
		Stderr:    command == "serve",
	}); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to initialize logger: %v\n", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	appCtx := cli.NewContext(ctx, cfg, CLI.Owner)
	if cli.NeedsStore(command) {
		if err := appCtx.Load(); err != nil {
			apperrors.Fatal(err)
		}
	}

	err = kctx.Run(appCtx)
	if closeErr := appCtx.Close(); closeErr != nil {
		logger.Warn("Failed to close store", "error", closeErr)
	}
	if err != nil {
		stop()
		apperrors.Fatal(err)
	}
}
