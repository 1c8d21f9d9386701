// Package tlog wires up structured logging for tasq, following the same
// shape as the teacher's pkg/log: a global zerolog.Logger, per-component
// child loggers, and level parsing from the CLI's --level flag.
package tlog

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ridgeback/tasq/internal/types"
)

// Logger is the global logger instance used for tasq's own operational
// messages (not task output, which goes through the bus instead).
var Logger zerolog.Logger

// Config configures the global logger.
type Config struct {
	Level  types.Level
	Output io.Writer
}

// Init initializes the global logger from Config.
func Init(cfg Config) {
	zerolog.SetGlobalLevel(parseLevel(cfg.Level))

	output := cfg.Output
	if output == nil {
		output = os.Stdout
	}

	Logger = zerolog.New(zerolog.ConsoleWriter{
		Out:        output,
		TimeFormat: time.RFC3339,
		NoColor:    true,
	}).With().Timestamp().Logger()
}

func parseLevel(l types.Level) zerolog.Level {
	switch types.Level(strings.ToUpper(string(l))) {
	case types.LevelDebug:
		return zerolog.DebugLevel
	case types.LevelWarn:
		return zerolog.WarnLevel
	case types.LevelError:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// WithComponent returns a child logger tagged with the given component
// name, e.g. "supervisor", "runner", "scanner".
func WithComponent(component string) zerolog.Logger {
	return Logger.With().Str("component", component).Logger()
}

// WithTask returns a child logger tagged with a task name, for messages
// about a task's lifecycle (not its raw output).
func WithTask(taskName string) zerolog.Logger {
	return Logger.With().Str("subprocess", taskName).Logger()
}
