package scripts

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func setup(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
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

var outputs = []string{"combined.js", "combined-min.js"}

func TestListWalk(t *testing.T) {
	dir := setup(t, map[string]string{
		"b.js":            "",
		"a.js":            "",
		"lib/z.js":        "",
		"combined.js":     "",
		"combined-min.js": "",
		"vendor.min.js":   "",
		"style.css":       "",
		".cache/x.js":     "",
	})

	got, err := List(dir, outputs)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	want := []string{"a.js", "b.js", "lib/z.js"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("List() = %v, want %v", got, want)
	}
}

func TestListIncludesOrder(t *testing.T) {
	dir := setup(t, map[string]string{
		"app.js":        "",
		"lib/base.js":   "",
		"unused.js":     "",
		"includes.yaml": "scripts:\n  - lib/base.js\n  - app.js\n  - lib/base.js\n",
	})

	got, err := List(dir, outputs)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	want := []string{"lib/base.js", "app.js", "lib/base.js"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("List() = %v, want %v", got, want)
	}
}

func TestListIncludesErrors(t *testing.T) {
	tests := []struct {
		name     string
		includes string
	}{
		{"missing script", "scripts: [nope.js]\n"},
		{"malformed", "scripts: [a.js\n"},
		{"empty entry", "scripts: ['']\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := setup(t, map[string]string{"a.js": "", "includes.yaml": tt.includes})
			if _, err := List(dir, outputs); err == nil {
				t.Error("List() expected error")
			}
		})
	}
}

func TestPaths(t *testing.T) {
	dir := setup(t, map[string]string{"lib/a.js": ""})

	got, err := Paths(dir, outputs)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{filepath.Join(dir, "lib", "a.js")}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Paths() = %v, want %v", got, want)
	}
}

func TestListMissingDir(t *testing.T) {
	if _, err := List(filepath.Join(t.TempDir(), "nope"), outputs); err == nil {
		t.Error("List() expected error for missing directory")
	}
}
