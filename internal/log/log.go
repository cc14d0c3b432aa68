package log

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync/atomic"
)

var (
	logger    atomic.Pointer[slog.Logger]
	level     *slog.LevelVar
	verbosity atomic.Int32
	format    atomic.Value // string
)

func init() {
	// Warnings only until Init is called from the CLI.
	level = new(slog.LevelVar)
	level.Set(slog.LevelWarn)
	verbosity.Store(VerbosityWarn)
	format.Store(FormatText)
	logger.Store(slog.New(NewHandler(HandlerOptions{
		Level:  level,
		Format: FormatText,
		Output: os.Stderr,
	})))
}

// Init initializes the global logger (call once at startup).
func Init(v int, logFormat string) {
	InitWithOutput(v, logFormat, os.Stderr)
}

// InitWithOutput is Init with an explicit destination.
func InitWithOutput(v int, logFormat string, w io.Writer) {
	if logFormat == "" {
		logFormat = FormatText
	}
	verbosity.Store(int32(v))
	level.Set(VerbosityToLevel(v))
	format.Store(logFormat)

	newLogger := slog.New(NewHandler(HandlerOptions{
		Level:  level,
		Format: logFormat,
		Output: w,
	}))
	logger.Store(newLogger)
	slog.SetDefault(newLogger)
}

// SetVerbosity changes verbosity at runtime.
func SetVerbosity(v int) {
	verbosity.Store(int32(v))
	level.Set(VerbosityToLevel(v))
}

// Verbosity returns the current verbosity level.
func Verbosity() int {
	return int(verbosity.Load())
}

// Format returns the active log format.
func Format() string {
	return format.Load().(string)
}

// Logger returns the current logger instance.
func Logger() *slog.Logger {
	return logger.Load()
}

// Error logs at error level (v=0).
func Error(msg string, args ...any) {
	logger.Load().Error(msg, args...)
}

// Warn logs at warn level (v=1).
func Warn(msg string, args ...any) {
	logger.Load().Warn(msg, args...)
}

// Info logs at info level (v=2).
func Info(msg string, args ...any) {
	logger.Load().Info(msg, args...)
}

// Debug logs at debug level (v=3).
func Debug(msg string, args ...any) {
	logger.Load().Debug(msg, args...)
}

// Trace logs at trace level (v=4).
func Trace(msg string, args ...any) {
	logger.Load().Log(context.Background(), LevelTrace, msg, args...)
}

// V returns a logger that only logs if verbosity >= level.
// Usage: log.V(3).Info("detailed", "key", value)
func V(v int) *slog.Logger {
	if int(verbosity.Load()) >= v {
		return logger.Load()
	}
	return slog.New(discardHandler{})
}

// With returns a logger with additional context.
func With(args ...any) *slog.Logger {
	return logger.Load().With(args...)
}

// Component returns a logger tagged with component name.
func Component(name string) *slog.Logger {
	return logger.Load().With("component", name)
}

