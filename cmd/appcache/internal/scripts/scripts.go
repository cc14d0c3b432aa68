// Package scripts determines the ordered list of script files that make up
// a bundle.
package scripts

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/albertocavalcante/appcache/internal/log"
)

// IncludesFile lists a base directory's scripts in evaluation order.
const IncludesFile = "includes.yaml"

// Includes is the decoded IncludesFile.
type Includes struct {
	Scripts []string `yaml:"scripts"`
}

// List returns the script paths for baseDir, relative to baseDir with
// forward slashes. When baseDir has an IncludesFile its order is returned
// verbatim; otherwise every *.js file is returned sorted, skipping the
// bundle outputs and *.min.js files.
func List(baseDir string, outputs []string) ([]string, error) {
	inc, err := readIncludes(filepath.Join(baseDir, IncludesFile))
	if err != nil {
		return nil, err
	}
	if inc != nil {
		for _, p := range inc.Scripts {
			if _, err := os.Stat(filepath.Join(baseDir, filepath.FromSlash(p))); err != nil {
				return nil, fmt.Errorf("%s: script %s: %w", IncludesFile, p, err)
			}
		}
		log.Trace("script order from includes", "dir", baseDir, "scripts", len(inc.Scripts))
		return inc.Scripts, nil
	}
	return walk(baseDir, outputs)
}

// Paths joins List's result onto baseDir.
func Paths(baseDir string, outputs []string) ([]string, error) {
	rel, err := List(baseDir, outputs)
	if err != nil {
		return nil, err
	}
	paths := make([]string, len(rel))
	for i, p := range rel {
		paths[i] = filepath.Join(baseDir, filepath.FromSlash(p))
	}
	return paths, nil
}

func readIncludes(path string) (*Includes, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var inc Includes
	if err := yaml.Unmarshal(data, &inc); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	for i, p := range inc.Scripts {
		p = strings.TrimSpace(p)
		if p == "" {
			return nil, fmt.Errorf("%s: entry %d is empty", path, i+1)
		}
		inc.Scripts[i] = p
	}
	return &inc, nil
}

func walk(baseDir string, outputs []string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(baseDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != baseDir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		name := d.Name()
		if !strings.HasSuffix(name, ".js") || strings.HasSuffix(name, ".min.js") || slices.Contains(outputs, name) {
			return nil
		}

		rel, err := filepath.Rel(baseDir, path)
		if err != nil {
			return err
		}
		paths = append(paths, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list scripts in %s: %w", baseDir, err)
	}
	slices.Sort(paths)
	return paths, nil
}
