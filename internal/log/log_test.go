package log

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestVerbosityToLevel(t *testing.T) {
	tests := []struct {
		verbosity int
		expected  slog.Level
	}{
		{0, slog.LevelError},
		{-1, slog.LevelError},
		{1, slog.LevelWarn},
		{2, slog.LevelInfo},
		{3, slog.LevelDebug},
		{4, LevelTrace},
		{5, LevelTrace}, // anything > 4 maps to trace
	}

	for _, tt := range tests {
		got := VerbosityToLevel(tt.verbosity)
		if got != tt.expected {
			t.Errorf("VerbosityToLevel(%d) = %v, want %v", tt.verbosity, got, tt.expected)
		}
	}
}

func TestLevelToVerbosity(t *testing.T) {
	tests := []struct {
		level    slog.Level
		expected int
	}{
		{slog.LevelError, VerbosityError},
		{slog.LevelWarn, VerbosityWarn},
		{slog.LevelInfo, VerbosityInfo},
		{slog.LevelDebug, VerbosityDebug},
		{LevelTrace, VerbosityTrace},
	}

	for _, tt := range tests {
		got := LevelToVerbosity(tt.level)
		if got != tt.expected {
			t.Errorf("LevelToVerbosity(%v) = %d, want %d", tt.level, got, tt.expected)
		}
	}
}

func TestLevelName(t *testing.T) {
	tests := []struct {
		level    slog.Level
		expected string
	}{
		{LevelTrace, "TRACE"},
		{slog.LevelDebug, "DEBUG"},
		{slog.LevelInfo, "INFO"},
		{slog.LevelWarn, "WARN"},
		{slog.LevelError, "ERROR"},
	}

	for _, tt := range tests {
		got := LevelName(tt.level)
		if got != tt.expected {
			t.Errorf("LevelName(%v) = %q, want %q", tt.level, got, tt.expected)
		}
	}
}

func TestInitWithOutput(t *testing.T) {
	var buf bytes.Buffer
	InitWithOutput(2, FormatText, &buf)

	if Verbosity() != 2 {
		t.Errorf("Verbosity() = %d, want 2", Verbosity())
	}
	if Format() != FormatText {
		t.Errorf("Format() = %q, want %q", Format(), FormatText)
	}

	Info("manifest written", "files", 3)
	Debug("hidden at v=2")

	out := buf.String()
	if !strings.Contains(out, "manifest written") {
		t.Errorf("expected info record, got: %s", out)
	}
	if strings.Contains(out, "hidden at v=2") {
		t.Errorf("debug record should be filtered at v=2, got: %s", out)
	}
}

func TestInitEmptyFormatDefaultsToText(t *testing.T) {
	var buf bytes.Buffer
	InitWithOutput(1, "", &buf)
	if Format() != FormatText {
		t.Errorf("Format() = %q, want %q", Format(), FormatText)
	}
}

func TestSetVerbosity(t *testing.T) {
	var buf bytes.Buffer
	InitWithOutput(1, FormatText, &buf)

	SetVerbosity(3)
	if Verbosity() != 3 {
		t.Errorf("Verbosity() = %d, want 3", Verbosity())
	}

	SetVerbosity(0)
	if Verbosity() != 0 {
		t.Errorf("Verbosity() = %d, want 0", Verbosity())
	}
}

func TestV(t *testing.T) {
	var buf bytes.Buffer
	InitWithOutput(2, FormatText, &buf)

	V(2).Info("should appear", "key", "value")
	if !strings.Contains(buf.String(), "should appear") {
		t.Errorf("V(2) should log when verbosity is 2, got: %s", buf.String())
	}

	buf.Reset()

	V(3).Info("should not appear", "key", "value")
	if strings.Contains(buf.String(), "should not appear") {
		t.Errorf("V(3) should not log when verbosity is 2, got: %s", buf.String())
	}
}

func TestTraceLevelName(t *testing.T) {
	var buf bytes.Buffer
	InitWithOutput(4, FormatText, &buf)

	Trace("entry filtered", "path", "a.js")
	if !strings.Contains(buf.String(), "level=TRACE") {
		t.Errorf("trace record should carry TRACE level, got: %s", buf.String())
	}
}

func TestComponent(t *testing.T) {
	var buf bytes.Buffer
	InitWithOutput(2, FormatText, &buf)

	Component("manifest").Info("test message")

	if !strings.Contains(buf.String(), "component=manifest") {
		t.Errorf("Component should add component context, got: %s", buf.String())
	}
}

func TestWith(t *testing.T) {
	var buf bytes.Buffer
	InitWithOutput(2, FormatText, &buf)

	With("base_dir", "js").Info("combined")

	if !strings.Contains(buf.String(), "base_dir=js") {
		t.Errorf("With should add context, got: %s", buf.String())
	}
}

func TestNewHandler_JSON(t *testing.T) {
	var buf bytes.Buffer

	handler := NewHandler(HandlerOptions{
		Level:  slog.LevelInfo,
		Format: FormatJSON,
		Output: &buf,
	})

	l := slog.New(handler)
	l.Info("test", "key", "value")

	if !strings.Contains(buf.String(), `"key":"value"`) {
		t.Errorf("JSON handler should output JSON, got: %s", buf.String())
	}
}

func TestNewHandler_PrettyWithoutTTY(t *testing.T) {
	var buf bytes.Buffer

	handler := NewHandler(HandlerOptions{
		Level:  slog.LevelInfo,
		Format: FormatPretty,
		Output: &buf,
	})

	slog.New(handler).Info("bundle written", "path", "js/combined.js")

	out := buf.String()
	if !strings.Contains(out, "bundle written") || !strings.Contains(out, "path=js/combined.js") {
		t.Errorf("pretty handler output missing fields: %s", out)
	}
	if strings.Contains(out, "\x1b[") {
		t.Errorf("pretty handler should not colorize non-terminal output: %q", out)
	}
}

func TestNewHandler_DefaultOutput(t *testing.T) {
	handler := NewHandler(HandlerOptions{
		Level:  slog.LevelInfo,
		Format: FormatText,
		Output: nil, // should default to stderr
	})

	if handler == nil {
		t.Error("NewHandler should not return nil")
	}
}
