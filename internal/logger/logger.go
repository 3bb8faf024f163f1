// Package logger holds the process-wide structured logger. Output goes to a
// rotating file under the config directory; debug and serve runs mirror it
// to stderr.
package logger

import (
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/julianstephens/routinely/internal/constants"
)

// Logger is nil until Init or UseWriter runs; the helpers are no-ops then.
var Logger *log.Logger

type Config struct {
	Debug     bool
	ConfigDir string
	// Stderr mirrors Info and above to stderr for long-running processes.
	Stderr bool
}

func levelFor(cfg Config) log.Level {
	switch {
	case cfg.Debug:
		return log.DebugLevel
	case cfg.Stderr:
		return log.InfoLevel
	default:
		return log.WarnLevel
	}
}

func Init(cfg Config) error {
	logDir := filepath.Join(cfg.ConfigDir, "logs")
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return err
	}

	var w io.Writer = &lumberjack.Logger{
		Filename:   filepath.Join(logDir, constants.LogFileName),
		MaxSize:    constants.LogMaxSizeMB,
		MaxBackups: constants.LogMaxBackups,
		MaxAge:     constants.LogMaxAgeDays,
		Compress:   true,
	}
	if cfg.Debug || cfg.Stderr {
		w = io.MultiWriter(os.Stderr, w)
	}

	Logger = log.NewWithOptions(w, log.Options{
		ReportCaller:    cfg.Debug,
		ReportTimestamp: true,
		Level:           levelFor(cfg),
		Prefix:          constants.AppName,
	})
	return nil
}

// UseWriter points the global logger at w without timestamps.
func UseWriter(w io.Writer, level log.Level) {
	Logger = log.NewWithOptions(w, log.Options{Level: level, Prefix: constants.AppName})
}

// Component returns a child logger tagged with component=name. Before Init
// it discards everything.
func Component(name string) *log.Logger {
	if Logger == nil {
		return log.NewWithOptions(io.Discard, log.Options{})
	}
	return Logger.With("component", name)
}

func logAt(level log.Level, msg string, keyvals []interface{}) {
	if Logger != nil {
		Logger.Log(level, msg, keyvals...)
	}
}

func Debug(msg string, keyvals ...interface{}) { logAt(log.DebugLevel, msg, keyvals) }
func Info(msg string, keyvals ...interface{})  { logAt(log.InfoLevel, msg, keyvals) }
func Warn(msg string, keyvals ...interface{})  { logAt(log.WarnLevel, msg, keyvals) }
func Error(msg string, keyvals ...interface{}) { logAt(log.ErrorLevel, msg, keyvals) }

// Fatal logs at error level and exits with status 1.
func Fatal(msg string, keyvals ...interface{}) {
	logAt(log.ErrorLevel, msg, keyvals)
	os.Exit(1)
}
