package utils

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/jmylchreest/sp108ed/internal/config"
	"github.com/jmylchreest/sp108ed/internal/errors"
)

// LogLevel defines log level types
type LogLevel string

// Log level constants - using values from config package
const (
	LogLevelDebug LogLevel = LogLevel(config.LogLevelDebug)
	LogLevelInfo  LogLevel = LogLevel(config.LogLevelInfo)
	LogLevelWarn  LogLevel = LogLevel(config.LogLevelWarn)
	LogLevelError LogLevel = LogLevel(config.LogLevelError)
)

// LogFormat defines log format types
type LogFormat string

// Log format constants - using values from config package
const (
	LogFormatText LogFormat = LogFormat(config.LogFormatText)
	LogFormatJSON LogFormat = LogFormat(config.LogFormatJSON)
)

// level is shared by every logger built here so it can be changed at runtime
// from the API or a config reload.
var level = new(slog.LevelVar)

// GetLogLevel converts a string log level to slog.Level
func GetLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case string(LogLevelDebug):
		return slog.LevelDebug
	case string(LogLevelWarn), "warning":
		return slog.LevelWarn
	case string(LogLevelError):
		return slog.LevelError
	case string(LogLevelInfo):
		fallthrough
	default:
		return slog.LevelInfo
	}
}

// ValidateLogLevel ensures the provided level is valid, returning a default if not
func ValidateLogLevel(level string) string {
	switch level {
	case string(LogLevelDebug), string(LogLevelInfo), string(LogLevelWarn), string(LogLevelError):
		return level
	default:
		return string(LogLevelInfo)
	}
}

// ValidateLogFormat ensures the provided format is valid, returning a default if not
func ValidateLogFormat(format string) string {
	switch format {
	case string(LogFormatText), string(LogFormatJSON):
		return format
	default:
		return string(LogFormatText)
	}
}

// LevelToString converts a slog.Level to its string representation.
func LevelToString(l slog.Level) string {
	switch {
	case l <= slog.LevelDebug:
		return string(LogLevelDebug)
	case l <= slog.LevelInfo:
		return string(LogLevelInfo)
	case l <= slog.LevelWarn:
		return string(LogLevelWarn)
	default:
		return string(LogLevelError)
	}
}

// SetupLogger creates a logger on stderr whose level follows SetLevel.
func SetupLogger(lvl string, format string) *slog.Logger {
	return SetupLoggerTo(os.Stderr, lvl, format)
}

// SetupLoggerTo is SetupLogger with an explicit output.
func SetupLoggerTo(w io.Writer, lvl string, format string) *slog.Logger {
	level.Set(GetLogLevel(ValidateLogLevel(lvl)))

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: true,
	}

	var handler slog.Handler
	if ValidateLogFormat(format) == string(LogFormatJSON) {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

// SetupErrorLogger creates a simple text logger for reporting errors during startup.
func SetupErrorLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// SetLevel changes the level of every logger created by SetupLogger.
func SetLevel(lvl string) error {
	if ValidateLogLevel(lvl) != lvl {
		return errors.InvalidInputf("invalid log level %q; must be debug, info, warn, or error", lvl)
	}
	level.Set(GetLogLevel(lvl))
	return nil
}

// GetLevel returns the current runtime log level as a string.
func GetLevel() string {
	return LevelToString(level.Level())
}

// SetAsDefaultLogger sets a logger as the default logger
func SetAsDefaultLogger(logger *slog.Logger) {
	slog.SetDefault(logger)
}
