// Package bundle concatenates ordered script files into a combined bundle
// and optionally produces a minified copy through a Minifier.
package bundle

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/zeebo/blake3"

	"github.com/albertocavalcante/appcache/internal/log"
	"github.com/albertocavalcante/appcache/pkg/util"
)

// Result describes an assembled bundle.
type Result struct {
	CombinedPath  string
	MinifiedPath  string // empty when no minifier ran
	Files         int
	CombinedBytes int
	MinifiedBytes int
	SourceHash    string
	Diagnostics   []Diagnostic
	Stats         *Statistics
}

// Errors returns the error diagnostics.
func (r *Result) Errors() []Diagnostic {
	var out []Diagnostic
	for _, d := range r.Diagnostics {
		if d.Severity == SeverityError {
			out = append(out, d)
		}
	}
	return out
}

// Assembler builds bundles. A nil Minifier disables minification.
type Assembler struct {
	minifier Minifier
	logger   *slog.Logger
}

// NewAssembler creates an assembler using m, which may be nil.
func NewAssembler(m Minifier) *Assembler {
	return &Assembler{minifier: m, logger: log.Component("bundle")}
}

// Combine concatenates the files in order, each preceded by a comment
// line holding its base name.
func Combine(paths []string) (string, error) {
	var b strings.Builder
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return "", fmt.Errorf("failed to read %s: %w", p, err)
		}
		fmt.Fprintf(&b, "\n/* %s */\n", filepath.Base(p))
		b.Write(data)
	}
	return b.String(), nil
}

// SourceHash is the BLAKE3-256 hex digest of the unminified source.
func SourceHash(source string) string {
	sum := blake3.Sum256([]byte(source))
	return hex.EncodeToString(sum[:])
}

// SourceHeader is the first line of a minified bundle.
func SourceHeader(source string) string {
	return "/* Source hash: " + SourceHash(source) + " */\n"
}

// Assemble writes the combined bundle and, when a minifier is set, the
// minified bundle. Compiler errors do not prevent writing the minified
// output. A minifier failure leaves the combined file in place and the
// minified file untouched.
func (a *Assembler) Assemble(ctx context.Context, paths []string, combinedPath, minifiedPath string) (*Result, error) {
	source, err := Combine(paths)
	if err != nil {
		return nil, err
	}

	a.logger.Info("combining files", "files", len(paths), "output", combinedPath)
	if err := util.WriteFileAtomic(combinedPath, []byte(source), 0o644); err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", combinedPath, err)
	}

	res := &Result{
		CombinedPath:  combinedPath,
		Files:         len(paths),
		CombinedBytes: len(source),
		SourceHash:    SourceHash(source),
	}
	if a.minifier == nil {
		return res, nil
	}

	a.logger.Info("minifying", "output", minifiedPath)
	out, err := a.minifier.Minify(ctx, source)
	if err != nil {
		return res, err
	}

	for _, group := range [][]Diagnostic{out.Errors, out.Warnings} {
		for _, d := range group {
			d.File = combinedPath
			res.Diagnostics = append(res.Diagnostics, d)
		}
	}
	if n := len(out.Errors); n > 0 {
		a.logger.Warn("minifier reported errors", "count", n, "output", minifiedPath)
	}

	minified := SourceHeader(source) + out.Code
	if err := util.WriteFileAtomic(minifiedPath, []byte(minified), 0o644); err != nil {
		return res, fmt.Errorf("failed to write %s: %w", minifiedPath, err)
	}
	res.MinifiedPath = minifiedPath
	res.MinifiedBytes = len(minified)
	res.Stats = out.Stats
	return res, nil
}
