package listing

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	gitignore "github.com/sabhiram/go-gitignore"
)

// DefaultIgnoredDirs contains directory name prefixes skipped while scanning.
// They apply to directories only; hidden files and directories are always
// skipped.
var DefaultIgnoredDirs = []string{
	"node_modules", // Node.js dependencies
	"__pycache__",  // Python cache
}

// ScanConfig configures the scanner.
type ScanConfig struct {
	Root       string
	Algorithm  Algorithm
	IgnoreDirs []string // Additional dir prefixes to ignore
	IgnoreFile string   // gitignore-syntax file relative to Root ("" = none)
}

// Scanner builds an Index by walking the filesystem.
type Scanner struct {
	root       string
	algo       Algorithm
	ignoreDirs []string
	ignore     *gitignore.GitIgnore
}

// NewScanner creates a scanner with the given config. The ignore file is
// read once here; a missing ignore file is not an error.
func NewScanner(cfg ScanConfig) (*Scanner, error) {
	algo := cfg.Algorithm
	if algo == "" {
		algo = Blake3
	}

	ignoreDirs := make([]string, len(DefaultIgnoredDirs))
	copy(ignoreDirs, DefaultIgnoredDirs)
	ignoreDirs = append(ignoreDirs, cfg.IgnoreDirs...)

	s := &Scanner{
		root:       cfg.Root,
		algo:       algo,
		ignoreDirs: ignoreDirs,
	}

	if cfg.IgnoreFile != "" {
		lines, err := readIgnoreLines(filepath.Join(cfg.Root, cfg.IgnoreFile))
		if err != nil {
			return nil, err
		}
		if len(lines) > 0 {
			s.ignore = gitignore.CompileIgnoreLines(lines...)
		}
	}

	return s, nil
}

// Root returns the directory the scanner walks.
func (s *Scanner) Root() string { return s.root }

// Algorithm returns the digest used for entry hashes.
func (s *Scanner) Algorithm() Algorithm { return s.algo }

// Scan walks the filesystem and builds an Index with full content hashes.
func (s *Scanner) Scan(ctx context.Context) (*Index, error) {
	return s.walk(ctx, true)
}

// ScanFast performs a scan that only records mtime/size without hashing.
func (s *Scanner) ScanFast(ctx context.Context) (*Index, error) {
	return s.walk(ctx, false)
}

// Listing scans the workspace and wraps the result for manifest use.
func (s *Scanner) Listing(ctx context.Context) (*Listing, error) {
	idx, err := s.Scan(ctx)
	if err != nil {
		return nil, err
	}
	return New(s.root, s.algo, idx), nil
}

// Ignored reports whether a relative slash path is excluded from listings.
// Any hidden component (.git, .appcache, .env) excludes the path. The
// ignore dir prefixes are matched against directory components only, so
// a file named builder.js survives an ignored "build" prefix.
func (s *Scanner) Ignored(rel string, isDir bool) bool {
	parts := strings.Split(rel, "/")
	dirs := parts
	if !isDir {
		dirs = parts[:len(parts)-1]
	}
	for _, part := range parts {
		if strings.HasPrefix(part, ".") {
			return true
		}
	}
	for _, part := range dirs {
		if part != "" && s.ignoredName(part) {
			return true
		}
	}
	if s.ignore != nil {
		candidate := rel
		if isDir {
			candidate += "/"
		}
		if s.ignore.MatchesPath(candidate) {
			return true
		}
	}
	return false
}

func (s *Scanner) ignoredName(name string) bool {
	for _, prefix := range s.ignoreDirs {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}

func (s *Scanner) walk(ctx context.Context, withHash bool) (*Index, error) {
	idx := NewIndex()
	idx.Algorithm = s.algo

	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err != nil {
			return err
		}
		if path == s.root {
			return nil
		}

		rel, err := filepath.Rel(s.root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if s.Ignored(rel, true) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || s.Ignored(rel, false) {
			return nil
		}

		entry, err := s.stat(path, rel, d, withHash)
		if err != nil {
			return err
		}
		idx.Add(entry)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return idx, nil
}

func (s *Scanner) stat(path, rel string, d fs.DirEntry, withHash bool) (*Entry, error) {
	info, err := d.Info()
	if err != nil {
		return nil, err
	}

	entry := &Entry{
		Path:    rel,
		ModTime: info.ModTime().UnixNano(),
		Size:    info.Size(),
	}
	if withHash {
		entry.Hash, err = HashFile(s.algo, path)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", rel, err)
		}
	}
	return entry, nil
}

// readIgnoreLines returns the non-blank, non-comment lines of an ignore file.
func readIgnoreLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open ignore file: %w", err)
	}
	defer func() { _ = f.Close() }()

	var lines []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read ignore file: %w", err)
	}
	return lines, nil
}
