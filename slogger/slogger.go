// Package slogger provides structured logging for the collaboration
// server. Engine, fabric, and transport components accept a Logger in
// their Options and default to DefaultLogger when none is given.
package slogger

import (
	"context"
	"strings"
)

// DefaultLogger is used by components constructed without a logger.
var DefaultLogger = NewDevNullLogger()

// Logger is the logging interface used throughout the module. It
// supports structured key-value logging and maps directly onto slog.
type Logger interface {
	// Debug logs a message at debug level with optional key-value pairs
	Debug(msg string, keysAndValues ...any)

	// Info logs a message at info level with optional key-value pairs
	Info(msg string, keysAndValues ...any)

	// Warn logs a message at warn level with optional key-value pairs
	Warn(msg string, keysAndValues ...any)

	// Error logs a message at error level with optional key-value pairs
	Error(msg string, keysAndValues ...any)

	// With returns a new Logger with the given key-value pairs attached
	With(keysAndValues ...any) Logger
}

type contextKey string

const (
	loggerKey contextKey = "cowrite.logger"
)

// WithLogger returns a new context carrying the given logger.
func WithLogger(ctx context.Context, logger Logger) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, loggerKey, logger)
}

// Ctx returns the logger from the given context, or a default logger
// when none is attached.
func Ctx(ctx context.Context) Logger {
	if ctx == nil {
		return New(DefaultLogLevel)
	}
	logger, ok := ctx.Value(loggerKey).(Logger)
	if !ok {
		return New(DefaultLogLevel)
	}
	return logger
}

// WithComponent tags a logger with the component name that owns it.
// Server subsystems (engine, fabric, ws) use this so interleaved output
// can be attributed.
func WithComponent(logger Logger, name string) Logger {
	if logger == nil {
		logger = DefaultLogger
	}
	return logger.With("component", name)
}

// LevelFromString converts a string to a LogLevel. Unknown values fall
// back to DefaultLogLevel.
func LevelFromString(level string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return LevelDebug
	case "info":
		return LevelInfo
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return DefaultLogLevel
	}
}
