package slogger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
)

var DefaultLogLevel = LevelInfo

// LogLevel represents the minimum log level
type LogLevel slog.Level

// Available log levels
const (
	LevelDebug LogLevel = LogLevel(slog.LevelDebug)
	LevelInfo  LogLevel = LogLevel(slog.LevelInfo)
	LevelWarn  LogLevel = LogLevel(slog.LevelWarn)
	LevelError LogLevel = LogLevel(slog.LevelError)
)

// Options configures a Slogger.
type Options struct {
	// Level is the minimum level that will be logged.
	Level LogLevel

	// LevelVar, when set, overrides Level with a handle the caller can
	// adjust at runtime (config hot reload).
	LevelVar *slog.LevelVar

	// Output receives log lines. Defaults to os.Stderr, which keeps
	// logs separate from CLI output written to stdout.
	Output io.Writer

	// TimeFormat used on each line. Defaults to time.Kitchen.
	TimeFormat string

	// NoColor disables ANSI color. When Output is a terminal this
	// defaults to false, otherwise true.
	NoColor *bool

	// WithCaller prefixes each record with a short file:line of the
	// call site.
	WithCaller bool
}

// Slogger implements the Logger interface using slog with a tint
// handler.
type Slogger struct {
	logger     *slog.Logger
	withCaller bool
}

// New returns a Slogger writing colorized output to stderr at the given
// minimum level, with caller attribution enabled.
func New(level LogLevel) *Slogger {
	return NewWithOptions(Options{Level: level, WithCaller: true})
}

// NewWithOptions returns a Slogger configured by opts.
func NewWithOptions(opts Options) *Slogger {
	output := opts.Output
	if output == nil {
		output = os.Stderr
	}
	timeFormat := opts.TimeFormat
	if timeFormat == "" {
		timeFormat = time.Kitchen
	}
	var noColor bool
	if opts.NoColor != nil {
		noColor = *opts.NoColor
	} else if f, ok := output.(*os.File); ok {
		noColor = !isatty.IsTerminal(f.Fd())
	} else {
		noColor = true
	}
	var level slog.Leveler = slog.Level(opts.Level)
	if opts.LevelVar != nil {
		level = opts.LevelVar
	}
	handler := tint.NewHandler(output, &tint.Options{
		NoColor:    noColor,
		TimeFormat: timeFormat,
		Level:      level,
	})
	return &Slogger{
		logger:     slog.New(handler),
		withCaller: opts.WithCaller,
	}
}

func (l *Slogger) Debug(msg string, keysAndValues ...any) {
	l.logger.Debug(msg, l.attrs(keysAndValues)...)
}

func (l *Slogger) Info(msg string, keysAndValues ...any) {
	l.logger.Info(msg, l.attrs(keysAndValues)...)
}

func (l *Slogger) Warn(msg string, keysAndValues ...any) {
	l.logger.Warn(msg, l.attrs(keysAndValues)...)
}

func (l *Slogger) Error(msg string, keysAndValues ...any) {
	l.logger.Error(msg, l.attrs(keysAndValues)...)
}

func (l *Slogger) With(keysAndValues ...any) Logger {
	return &Slogger{
		logger:     l.logger.With(keysAndValues...),
		withCaller: l.withCaller,
	}
}

func (l *Slogger) attrs(keysAndValues []any) []any {
	if !l.withCaller {
		return keysAndValues
	}
	const callerSkip = 3 // attrs, the level method, and the caller
	if _, file, line, ok := runtime.Caller(callerSkip); ok {
		return append([]any{"caller", formatCaller(file, line)}, keysAndValues...)
	}
	return keysAndValues
}

func formatCaller(file string, line int) string {
	// Last two path components read well without being noisy
	parts := strings.Split(file, "/")
	switch len(parts) {
	case 0:
		return "unknown"
	case 1:
		return fmt.Sprintf("%s:%d", parts[0], line)
	default:
		return fmt.Sprintf("%s/%s:%d",
			parts[len(parts)-2],
			parts[len(parts)-1],
			line)
	}
}
