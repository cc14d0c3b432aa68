package watch

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/goccy/go-json"
)

func TestLogger_Ready(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LoggerConfig{Writer: &buf})

	logger.Ready(100, []string{"js", "rest/js"}, "/srv/app")

	output := buf.String()
	for _, want := range []string{"100 files", "/srv/app", "js, rest/js", "ready"} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output: %s", want, output)
		}
	}
}

func TestLogger_FileChanged(t *testing.T) {
	var quiet, verbose bytes.Buffer
	NewLogger(LoggerConfig{Writer: &quiet}).FileChanged("js/app.js", ChangeModified)
	NewLogger(LoggerConfig{Writer: &verbose, Verbose: true, NoColor: true}).FileChanged("js/app.js", ChangeModified)

	if quiet.Len() != 0 {
		t.Errorf("non-verbose logger printed: %s", quiet.String())
	}
	if !strings.Contains(verbose.String(), "~ js/app.js") {
		t.Errorf("verbose output = %s", verbose.String())
	}
}

func TestLogger_BuiltPrintsDiagnostics(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LoggerConfig{Writer: &buf})

	logger.Built("js", 3, []string{"js/combined.js:4:2: Parse error"})

	output := buf.String()
	if !strings.Contains(output, "js/combined.js:4:2: Parse error") {
		t.Errorf("diagnostic missing: %s", output)
	}
	if !strings.Contains(output, "js bundled (3 files)") {
		t.Errorf("build line missing: %s", output)
	}
}

func TestLogger_SyncedUnchangedIsQuiet(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LoggerConfig{Writer: &buf})

	logger.Synced("app.manifest", 10, false)
	if buf.Len() != 0 {
		t.Errorf("unchanged sync printed: %s", buf.String())
	}
	logger.Synced("app.manifest", 10, true)
	if !strings.Contains(buf.String(), "app.manifest updated (10 cached files)") {
		t.Errorf("output = %s", buf.String())
	}
}

func TestLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LoggerConfig{Writer: &buf, JSON: true})

	logger.Building("js")
	logger.Built("js", 2, nil)
	logger.Synced("app.manifest", 5, true)
	logger.Error(errors.New("boom"))
	logger.Shutdown()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	wantEvents := []string{"building", "built", "synced", "error", "shutdown"}
	if len(lines) != len(wantEvents) {
		t.Fatalf("got %d lines, want %d: %s", len(lines), len(wantEvents), buf.String())
	}
	for i, line := range lines {
		var ev map[string]any
		if err := json.Unmarshal([]byte(line), &ev); err != nil {
			t.Fatalf("line %d is not JSON: %v", i, err)
		}
		if ev["event"] != wantEvents[i] {
			t.Errorf("line %d event = %v, want %s", i, ev["event"], wantEvents[i])
		}
	}

	var last map[string]any
	_ = json.Unmarshal([]byte(lines[len(lines)-1]), &last)
	if last["builds"] != float64(1) || last["syncs"] != float64(1) || last["errors"] != float64(1) {
		t.Errorf("shutdown stats = %v", last)
	}
}

func TestLogger_NoColorWithoutTTY(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LoggerConfig{Writer: &buf})

	logger.Error(errors.New("x"))
	if strings.Contains(buf.String(), "\033[") {
		t.Errorf("colour codes written to non-terminal: %q", buf.String())
	}
}

func TestLogger_Stats(t *testing.T) {
	logger := NewLogger(LoggerConfig{Writer: &bytes.Buffer{}})
	logger.Built("js", 1, nil)
	logger.Built("rest/js", 1, nil)
	logger.Error(errors.New("x"))

	stats := logger.Stats()
	if stats.Builds != 2 || stats.Errors != 1 || stats.Syncs != 0 {
		t.Errorf("Stats() = %+v", stats)
	}
	if stats.StartTime.IsZero() {
		t.Error("StartTime not set")
	}
}
