// Package cli provides the logging, configuration and lifecycle helpers shared by the back office commands.
package cli

import (
	"log/slog"
	"os"

	"github.com/inmobiliaria/backoffice/internal/common/constants"
)

// Level maps the number of -v flags to a log level: WARN by default, INFO with -v, DEBUG above.
func Level(verbose int) slog.Level {
	switch {
	case verbose <= 0:
		return constants.DefaultLogLevel
	case verbose == 1:
		return slog.LevelInfo
	default:
		return slog.LevelDebug
	}
}

// SetVerbosity changes the level of the default logger and keeps its handler.
func SetVerbosity(verbose int) {
	slog.SetLogLoggerLevel(Level(verbose))
}

// SetSlog configures the default logger. JSON records go to stdout.
func SetSlog(verbose int, jsonLogs bool) {
	if !jsonLogs {
		SetVerbosity(verbose)
		return
	}
	h := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: Level(verbose)})
	slog.SetDefault(slog.New(h))
}
