package cli

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/albertocavalcante/appcache/cmd/appcache/internal/manifest"
)

func TestCommandFlagDefaults(t *testing.T) {
	tests := []struct {
		command      string
		flagName     string
		wantDefault  string
		wantShortcut string
	}{
		{"build", "no-minify", "false", ""},
		{"build", "verbose", "false", ""},
		{"offline", "force", "false", "f"},
		{"offline", "dry-run", "false", ""},
		{"sync", "check", "false", ""},
		{"sync", "dry-run", "false", ""},
		{"status", "json", "false", ""},
		{"watch", "debounce", "500", ""},
		{"watch", "json", "false", ""},
		{"watch", "no-color", "false", ""},
	}

	for _, tt := range tests {
		t.Run(tt.command+"/"+tt.flagName, func(t *testing.T) {
			cmd := findCommand(RootCmd(), tt.command)
			if cmd == nil {
				t.Fatalf("command %q not found", tt.command)
			}
			flag := cmd.Flags().Lookup(tt.flagName)
			if flag == nil {
				t.Fatalf("flag %q not found on %s command", tt.flagName, tt.command)
			}
			if flag.DefValue != tt.wantDefault {
				t.Errorf("flag %q default = %q, want %q", tt.flagName, flag.DefValue, tt.wantDefault)
			}
			if flag.Shorthand != tt.wantShortcut {
				t.Errorf("flag %q shorthand = %q, want %q", tt.flagName, flag.Shorthand, tt.wantShortcut)
			}
		})
	}
}

// resetFlags restores every flag to its default so commands can be
// executed repeatedly within one test binary.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.PersistentFlags().VisitAll(reset)
	cmd.Flags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := RootCmd()
	resetFlags(root)

	var buf bytes.Buffer
	root.SetOut(&buf)
	root.SetErr(&buf)
	root.SetArgs(args)
	err := root.Execute()
	return buf.String(), err
}

// newProject creates a workspace and isolates user-level configuration.
func newProject(t *testing.T, files map[string]string) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, ".config"))

	dir := t.TempDir()
	if err := os.Mkdir(filepath.Join(dir, ".git"), 0o755); err != nil {
		t.Fatal(err)
	}
	for name, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func readProjectFile(t *testing.T, dir, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(name)))
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out, "appcache "+Version) {
		t.Errorf("version output = %q", out)
	}
}

func TestBuildCommand(t *testing.T) {
	dir := newProject(t, map[string]string{
		"js/includes.yaml": "scripts:\n  - lib.js\n  - app.js\n",
		"js/lib.js":        "var lib = {};",
		"js/app.js":        "lib.run();",
	})

	out, err := execute(t, "-C", dir, "build", "--no-minify")
	if err != nil {
		t.Fatalf("build error = %v\n%s", err, out)
	}
	if !strings.Contains(out, "Combining 2 files into js/combined.js.") {
		t.Errorf("output = %s", out)
	}
	want := "\n/* lib.js */\nvar lib = {};\n/* app.js */\nlib.run();"
	if got := readProjectFile(t, dir, "js/combined.js"); got != want {
		t.Errorf("combined.js = %q, want %q", got, want)
	}
	if _, err := os.Stat(filepath.Join(dir, "js", "combined-min.js")); !os.IsNotExist(err) {
		t.Error("combined-min.js written with --no-minify")
	}
}

func TestBuildCommandMinifies(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"compiledCode":"a();","errors":[{"lineno":2,"charno":1,"error":"bad"}]}`))
	}))
	defer srv.Close()

	dir := newProject(t, map[string]string{"js/a.js": "a();"})
	t.Setenv("APPCACHE_MINIFIER_URL", srv.URL)

	out, err := execute(t, "-C", dir, "build")
	if err != nil {
		t.Fatalf("build error = %v\n%s", err, out)
	}
	if !strings.Contains(out, "js/combined.js:2:1: bad") {
		t.Errorf("diagnostic missing from output:\n%s", out)
	}
	got := readProjectFile(t, dir, "js/combined-min.js")
	if !strings.HasPrefix(got, "/* Source hash: ") || !strings.HasSuffix(got, " */\na();") {
		t.Errorf("combined-min.js = %q", got)
	}
}

func TestBuildCommandMinifierDown(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	dir := newProject(t, map[string]string{"js/a.js": "a();"})
	t.Setenv("APPCACHE_MINIFIER_URL", addr)

	if _, err := execute(t, "-C", dir, "build"); err == nil {
		t.Fatal("build should fail when the minifier is unreachable")
	}
	if _, err := os.Stat(filepath.Join(dir, "js", "combined.js")); err != nil {
		t.Errorf("combined.js should be kept: %v", err)
	}
}

func TestOfflineSyncStatusFlow(t *testing.T) {
	dir := newProject(t, map[string]string{
		"index.html": "<html></html>",
		"app.json":   "{}",
		"js/a.js":    "a();",
	})

	out, err := execute(t, "-C", dir, "offline")
	if err != nil {
		t.Fatalf("offline error = %v\n%s", err, out)
	}
	if !strings.Contains(out, "Creating file app.manifest.") {
		t.Errorf("offline output = %s", out)
	}
	content := readProjectFile(t, dir, "app.manifest")
	if !strings.Contains(content, "\n"+manifest.AutogenLine+"\n") {
		t.Errorf("manifest has no generated section:\n%s", content)
	}
	if !strings.HasSuffix(content, "CACHE:\nindex.html\njs/a.js\n") {
		t.Errorf("cache section:\n%s", content)
	}

	out, err = execute(t, "-C", dir, "offline")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "app.manifest already exists (use -f to overwrite).") {
		t.Errorf("second offline output = %s", out)
	}

	out, err = execute(t, "-C", dir, "sync", "--check")
	if err != nil {
		t.Fatalf("sync --check on fresh manifest error = %v\n%s", err, out)
	}
	if !strings.Contains(out, "up to date") {
		t.Errorf("sync --check output = %s", out)
	}

	if err := os.WriteFile(filepath.Join(dir, "js", "b.js"), []byte("b();"), 0o644); err != nil {
		t.Fatal(err)
	}

	out, err = execute(t, "-C", dir, "sync", "--check")
	if !errors.Is(err, errStale) {
		t.Errorf("sync --check error = %v, want errStale", err)
	}
	if !strings.Contains(out, "+js/b.js") {
		t.Errorf("diff missing new file:\n%s", out)
	}
	if got := readProjectFile(t, dir, "app.manifest"); got != content {
		t.Error("sync --check modified the manifest")
	}

	out, err = execute(t, "-C", dir, "status", "--json")
	if err != nil {
		t.Fatal(err)
	}
	var status StatusOutput
	if err := json.Unmarshal([]byte(out), &status); err != nil {
		t.Fatalf("status --json is not JSON: %v\n%s", err, out)
	}
	if !status.Stale || status.ManifestState != "stale" {
		t.Errorf("status = %+v, want stale", status)
	}
	if len(status.NewFiles) != 1 || status.NewFiles[0] != "js/b.js" {
		t.Errorf("NewFiles = %v", status.NewFiles)
	}
	if len(status.AffectedDirs) != 1 || status.AffectedDirs[0] != "js" {
		t.Errorf("AffectedDirs = %v", status.AffectedDirs)
	}

	out, err = execute(t, "-C", dir, "status", "--verbose")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"app.manifest: out of date", "+ js/b.js", "Affected directories (1):\n  * js"} {
		if !strings.Contains(out, want) {
			t.Errorf("status --verbose missing %q:\n%s", want, out)
		}
	}

	out, err = execute(t, "-C", dir, "sync")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "app.manifest updated: 3 files") {
		t.Errorf("sync output = %s", out)
	}
	if !strings.HasSuffix(readProjectFile(t, dir, "app.manifest"), "CACHE:\nindex.html\njs/a.js\njs/b.js\n") {
		t.Error("sync did not add the new file")
	}

	out, err = execute(t, "-C", dir, "status")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "No changes since last sync") {
		t.Errorf("status output = %s", out)
	}
}

func TestOfflineDryRun(t *testing.T) {
	dir := newProject(t, map[string]string{"index.html": "hi"})

	out, err := execute(t, "-C", dir, "offline", "--dry-run")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out, "CACHE MANIFEST\n") || !strings.HasSuffix(out, "CACHE:\nindex.html\n") {
		t.Errorf("dry-run output:\n%s", out)
	}
	if _, err := os.Stat(filepath.Join(dir, "app.manifest")); !os.IsNotExist(err) {
		t.Error("dry-run wrote the manifest")
	}
}

func TestSyncWithoutManifest(t *testing.T) {
	dir := newProject(t, map[string]string{"index.html": "hi"})

	out, err := execute(t, "-C", dir, "sync")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "does not exist") {
		t.Errorf("output = %s", out)
	}
	if _, err := os.Stat(filepath.Join(dir, ".appcache")); !os.IsNotExist(err) {
		t.Error("sync without a manifest created state")
	}
}

func TestProjectConfigOverridesManifestPath(t *testing.T) {
	dir := newProject(t, map[string]string{
		"appcache.toml": "[manifest]\npath = \"offline.appcache\"\n",
		"index.html":    "hi",
	})

	if _, err := execute(t, "-C", dir, "offline"); err != nil {
		t.Fatal(err)
	}
	content := readProjectFile(t, dir, "offline.appcache")
	if !strings.HasSuffix(content, "CACHE:\nappcache.toml\nindex.html\n") {
		t.Errorf("manifest:\n%s", content)
	}
}
