package log

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
)

// Supported log formats.
const (
	FormatText   = "text"
	FormatJSON   = "json"
	FormatPretty = "pretty"
)

// HandlerOptions configures the log handler.
type HandlerOptions struct {
	Level     slog.Leveler
	Format    string // "text", "json" or "pretty"
	Output    io.Writer
	AddSource bool
}

// NewHandler creates appropriate handler based on options.
func NewHandler(opts HandlerOptions) slog.Handler {
	if opts.Output == nil {
		opts.Output = os.Stderr // Always stderr, never stdout
	}

	switch opts.Format {
	case FormatJSON:
		return slog.NewJSONHandler(opts.Output, &slog.HandlerOptions{
			Level:       opts.Level,
			AddSource:   opts.AddSource,
			ReplaceAttr: replaceLevelNames,
		})
	case FormatPretty:
		return tint.NewHandler(opts.Output, &tint.Options{
			Level:       opts.Level,
			AddSource:   opts.AddSource,
			TimeFormat:  time.TimeOnly,
			NoColor:     !isTerminal(opts.Output),
			ReplaceAttr: replaceLevelNames,
		})
	default:
		return slog.NewTextHandler(opts.Output, &slog.HandlerOptions{
			Level:       opts.Level,
			AddSource:   opts.AddSource,
			ReplaceAttr: replaceLevelNames,
		})
	}
}

// replaceLevelNames customizes level display (TRACE, etc.).
func replaceLevelNames(groups []string, a slog.Attr) slog.Attr {
	if a.Key == slog.LevelKey && len(groups) == 0 {
		level, ok := a.Value.Any().(slog.Level)
		if ok && level == LevelTrace {
			a.Value = slog.StringValue(LevelName(level))
		}
	}
	return a
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// discardHandler is a handler that discards all log records.
type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (d discardHandler) WithAttrs([]slog.Attr) slog.Handler      { return d }
func (d discardHandler) WithGroup(string) slog.Handler           { return d }
