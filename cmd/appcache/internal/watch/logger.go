package watch

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/term"
)

// ChangeType represents the type of file change.
type ChangeType string

const (
	ChangeAdded    ChangeType = "+"
	ChangeModified ChangeType = "~"
	ChangeDeleted  ChangeType = "-"
)

// Logger writes the watch session's event stream, as text or JSON lines.
type Logger struct {
	writer  io.Writer
	isTTY   bool
	verbose bool
	noColor bool
	jsonOut bool

	statsMu sync.Mutex
	stats   Stats
}

// Stats counts what happened during the watch session.
type Stats struct {
	Builds    int
	Syncs     int
	Errors    int
	StartTime time.Time
}

// LoggerConfig configures the logger.
type LoggerConfig struct {
	Writer  io.Writer
	Verbose bool
	NoColor bool
	JSON    bool
}

// NewLogger creates a logger. Colour is used only when the writer is a
// terminal and NoColor is unset.
func NewLogger(cfg LoggerConfig) *Logger {
	writer := cfg.Writer
	if writer == nil {
		writer = os.Stdout
	}

	isTTY := false
	if f, ok := writer.(*os.File); ok {
		isTTY = term.IsTerminal(int(f.Fd()))
	}

	return &Logger{
		writer:  writer,
		isTTY:   isTTY,
		verbose: cfg.Verbose,
		noColor: cfg.NoColor,
		jsonOut: cfg.JSON,
		stats:   Stats{StartTime: time.Now()},
	}
}

// Ready announces that watching has started.
func (l *Logger) Ready(fileCount int, baseDirs []string, root string) {
	if l.jsonOut {
		l.writeJSON(map[string]any{
			"event":     "ready",
			"files":     fileCount,
			"base_dirs": baseDirs,
			"path":      root,
		})
		return
	}

	l.printf("appcache: watching %d files in %s\n", fileCount, root)
	if len(baseDirs) > 0 {
		l.printf("appcache: bundles: %s\n", strings.Join(baseDirs, ", "))
	}
	l.println("appcache: ready")
	l.println()
}

// FileChanged logs one change. Text output shows it only when verbose.
func (l *Logger) FileChanged(path string, change ChangeType) {
	if l.jsonOut {
		l.writeJSON(map[string]any{
			"event":  "file_changed",
			"path":   path,
			"change": string(change),
			"time":   time.Now().Format(time.RFC3339),
		})
		return
	}

	if l.verbose {
		l.printf("[%s] %s %s\n", l.timestamp(), l.colorize(string(change), change), path)
	}
}

// Building logs the start of a bundle rebuild.
func (l *Logger) Building(baseDir string) {
	if l.jsonOut {
		l.writeJSON(map[string]any{
			"event":    "building",
			"base_dir": baseDir,
			"time":     time.Now().Format(time.RFC3339),
		})
		return
	}
	l.printf("[%s] building %s...\n", l.timestamp(), baseDir)
}

// Built logs a finished bundle rebuild.
func (l *Logger) Built(baseDir string, files int, diagnostics []string) {
	l.statsMu.Lock()
	l.stats.Builds++
	l.statsMu.Unlock()

	if l.jsonOut {
		l.writeJSON(map[string]any{
			"event":       "built",
			"base_dir":    baseDir,
			"files":       files,
			"diagnostics": diagnostics,
			"time":        time.Now().Format(time.RFC3339),
		})
		return
	}

	for _, d := range diagnostics {
		l.printf("[%s] %s\n", l.timestamp(), d)
	}
	checkmark := l.colorize("✓", ChangeAdded)
	l.printf("[%s] %s %s bundled (%d files)\n", l.timestamp(), checkmark, baseDir, files)
}

// Synced logs a manifest synchronization.
func (l *Logger) Synced(manifest string, files int, changed bool) {
	l.statsMu.Lock()
	l.stats.Syncs++
	l.statsMu.Unlock()

	if l.jsonOut {
		l.writeJSON(map[string]any{
			"event":    "synced",
			"manifest": manifest,
			"files":    files,
			"changed":  changed,
			"time":     time.Now().Format(time.RFC3339),
		})
		return
	}

	if !changed {
		if l.verbose {
			l.printf("[%s] %s unchanged\n", l.timestamp(), manifest)
		}
		return
	}
	checkmark := l.colorize("✓", ChangeAdded)
	l.printf("[%s] %s %s updated (%d cached files)\n", l.timestamp(), checkmark, manifest, files)
}

// Error logs an error.
func (l *Logger) Error(err error) {
	l.statsMu.Lock()
	l.stats.Errors++
	l.statsMu.Unlock()

	if l.jsonOut {
		l.writeJSON(map[string]any{
			"event": "error",
			"error": err.Error(),
			"time":  time.Now().Format(time.RFC3339),
		})
		return
	}

	xmark := l.colorize("✗", ChangeDeleted)
	l.printf("[%s] %s error: %v\n", l.timestamp(), xmark, err)
}

// Shutdown logs the session summary.
func (l *Logger) Shutdown() {
	stats := l.Stats()

	if l.jsonOut {
		l.writeJSON(map[string]any{
			"event":    "shutdown",
			"builds":   stats.Builds,
			"syncs":    stats.Syncs,
			"errors":   stats.Errors,
			"duration": time.Since(stats.StartTime).String(),
		})
		return
	}

	l.println()
	l.printf("appcache: shutting down (%d builds, %d syncs, %d errors)\n",
		stats.Builds, stats.Syncs, stats.Errors)
}

// Stats returns the session counters.
func (l *Logger) Stats() Stats {
	l.statsMu.Lock()
	defer l.statsMu.Unlock()
	return l.stats
}

func (l *Logger) timestamp() string {
	return time.Now().Format("15:04:05")
}

func (l *Logger) colorize(s string, change ChangeType) string {
	if l.noColor || !l.isTTY {
		return s
	}

	var color string
	switch change {
	case ChangeAdded:
		color = "\033[32m" // green
	case ChangeModified:
		color = "\033[33m" // yellow
	case ChangeDeleted:
		color = "\033[31m" // red
	default:
		return s
	}
	return color + s + "\033[0m"
}

func (l *Logger) writeJSON(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		l.println(`{"event":"internal_error","error":"json marshal failed"}`)
		return
	}
	l.println(string(data))
}

// Output errors are ignored; the event log is informational.
func (l *Logger) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(l.writer, format, args...)
}

func (l *Logger) println(args ...any) {
	_, _ = fmt.Fprintln(l.writer, args...)
}
