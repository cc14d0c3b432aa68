// Package log provides structured logging with verbosity levels for appcache.
// It wraps log/slog and follows kubectl/klog -v=N conventions.
package log

import "log/slog"

// LevelTrace is a custom trace level (more verbose than debug).
const LevelTrace = slog.Level(-8)

// Verbosity level constants for documentation and reference.
const (
	VerbosityError = 0 // Errors only (quiet)
	VerbosityWarn  = 1 // + Warnings (malformed directives, minifier errors)
	VerbosityInfo  = 2 // + Info (config loaded, files written, summaries)
	VerbosityDebug = 3 // + Debug (files scanned, directives parsed, exclusions)
	VerbosityTrace = 4 // + Trace (per-entry filter decisions, request dumps)
)

// VerbosityToLevel maps -v=N to a slog level.
func VerbosityToLevel(v int) slog.Level {
	switch {
	case v <= 0:
		return slog.LevelError
	case v == 1:
		return slog.LevelWarn
	case v == 2:
		return slog.LevelInfo
	case v == 3:
		return slog.LevelDebug
	default:
		return LevelTrace
	}
}

// LevelToVerbosity maps a slog level to -v=N (for display).
func LevelToVerbosity(l slog.Level) int {
	switch {
	case l >= slog.LevelError:
		return VerbosityError
	case l >= slog.LevelWarn:
		return VerbosityWarn
	case l >= slog.LevelInfo:
		return VerbosityInfo
	case l >= slog.LevelDebug:
		return VerbosityDebug
	default:
		return VerbosityTrace
	}
}

// LevelName returns the name for a level, including custom levels.
func LevelName(l slog.Level) string {
	if l == LevelTrace {
		return "TRACE"
	}
	return l.String()
}
