// Package manifest maintains the offline cache manifest: it parses the
// hand-written header and directives of an existing manifest, recomputes
// the cached file section from a local file listing and rewrites the file
// atomically.
package manifest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/gofrs/flock"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/albertocavalcante/appcache/cmd/appcache/internal/listing"
	"github.com/albertocavalcante/appcache/internal/log"
	"github.com/albertocavalcante/appcache/pkg/config"
	"github.com/albertocavalcante/appcache/pkg/util"
)

// lockRetryDelay is how often a blocked synchronization retries the lock.
const lockRetryDelay = 50 * time.Millisecond

// LockFile is the advisory lock serializing synchronizations, relative to
// the workspace root.
var LockFile = path.Join(listing.StateDir, "manifest.lock")

// Listing is the view of the local file tree the synchronizer needs.
type Listing interface {
	Paths() []string
	Get(path string) (*listing.Entry, bool)
	// Restat refreshes one entry from disk.
	Restat(ctx context.Context, path string) error
}

// Options configures a Synchronizer.
type Options struct {
	// Root is the workspace directory the listing paths are relative to.
	Root string

	// ManifestPath is the manifest, relative to Root with forward slashes.
	ManifestPath string

	// MetaPath is the reserved metadata file, never cached.
	MetaPath string

	// MaxFileSize is the largest cacheable file in bytes.
	MaxFileSize int64

	// DataPaths are doublestar patterns for files that are never cached.
	DataPaths []string
}

// OptionsFromConfig builds Options for the workspace at root.
func OptionsFromConfig(root string, cfg *config.Config) Options {
	return Options{
		Root:         root,
		ManifestPath: path.Clean(filepath.ToSlash(cfg.Manifest.Path)),
		MetaPath:     cfg.Manifest.MetaFile,
		MaxFileSize:  cfg.Manifest.MaxFileSize,
		DataPaths:    cfg.Manifest.DataPaths,
	}
}

// Validate checks the options before any file is touched.
func (o Options) Validate() error {
	var errs []error
	if o.ManifestPath == "" {
		errs = append(errs, errors.New("manifest path is empty"))
	}
	if o.MaxFileSize < 0 {
		errs = append(errs, fmt.Errorf("max file size %d is negative", o.MaxFileSize))
	}
	for _, p := range o.DataPaths {
		if !doublestar.ValidatePattern(p) {
			errs = append(errs, fmt.Errorf("invalid data path pattern %q", p))
		}
	}
	return errors.Join(errs...)
}

// File returns the manifest's filesystem path.
func (o Options) File() string {
	return filepath.Join(o.Root, filepath.FromSlash(o.ManifestPath))
}

func (o Options) filter(excludes []string) *Filter {
	return &Filter{
		ManifestPath: o.ManifestPath,
		MetaPath:     o.MetaPath,
		MaxFileSize:  o.MaxFileSize,
		DataPaths:    o.DataPaths,
		Excludes:     excludes,
	}
}

// Status is the outcome of generating or synchronizing a manifest.
type Status int

const (
	// StatusNoManifest means no manifest file exists; nothing was done.
	StatusNoManifest Status = iota
	// StatusNoMarker means the manifest has no autogenerated section.
	StatusNoMarker
	// StatusGenerated means new content was computed but not written.
	StatusGenerated
	// StatusWritten means the manifest was rewritten.
	StatusWritten
)

func (s Status) String() string {
	switch s {
	case StatusNoManifest:
		return "no-manifest"
	case StatusNoMarker:
		return "no-marker"
	case StatusGenerated:
		return "generated"
	case StatusWritten:
		return "written"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Plan is a regenerated manifest that has not been written yet.
type Plan struct {
	Path     string
	Status   Status
	Old      []byte
	New      []byte
	Document *Document
	Set      *CachedSet
	Warnings []*DirectiveWarning
}

// Changed reports whether writing the plan would change the file.
func (p *Plan) Changed() bool {
	return p.Status == StatusGenerated && !bytes.Equal(p.Old, p.New)
}

// Diff returns a unified diff from the current to the regenerated manifest,
// empty when nothing changes.
func (p *Plan) Diff() (string, error) {
	if !p.Changed() {
		return "", nil
	}
	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(p.Old)),
		B:        difflib.SplitLines(string(p.New)),
		FromFile: p.Path + " (current)",
		ToFile:   p.Path + " (regenerated)",
		Context:  3,
	})
	if err != nil {
		return "", fmt.Errorf("failed to diff %s: %w", p.Path, err)
	}
	return diff, nil
}

// Result describes a completed synchronization.
type Result struct {
	Path       string
	Status     Status
	Changed    bool
	Files      int
	TotalBytes int64
	Signature  string
	Warnings   []*DirectiveWarning
}

// Synchronizer regenerates the autogenerated section of a manifest.
type Synchronizer struct {
	opts    Options
	listing Listing
	logger  *slog.Logger

	// writeFile replaces the manifest; it must leave the old file intact
	// on failure.
	writeFile func(path string, data []byte, perm fs.FileMode) error
}

// NewSynchronizer creates a synchronizer over l.
func NewSynchronizer(opts Options, l Listing) *Synchronizer {
	return &Synchronizer{
		opts:      opts,
		listing:   l,
		logger:    log.Component("manifest"),
		writeFile: util.WriteFileAtomic,
	}
}

// Options returns the synchronizer's options.
func (s *Synchronizer) Options() Options { return s.opts }

// Generate reads the current manifest and computes its replacement
// without writing anything.
func (s *Synchronizer) Generate(ctx context.Context) (*Plan, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	old, err := os.ReadFile(s.opts.File())
	if errors.Is(err, fs.ErrNotExist) {
		return &Plan{Path: s.opts.ManifestPath, Status: StatusNoManifest}, nil
	}
	if err != nil {
		return nil, ioError("read", s.opts.ManifestPath, err)
	}

	return s.PlanContent(old), nil
}

// PlanContent computes the replacement for manifest content that may not
// exist on disk yet.
func (s *Synchronizer) PlanContent(old []byte) *Plan {
	plan := &Plan{Path: s.opts.ManifestPath, Status: StatusNoMarker, Old: old}

	doc, warnings := Parse(string(old))
	plan.Document = doc
	plan.Warnings = warnings
	if !doc.HasMarker {
		return plan
	}

	excludes := doc.Excludes()
	for _, prefix := range excludes {
		s.logger.Debug("excluding paths", "prefix", prefix)
	}

	plan.Set = BuildCachedSet(s.listing, s.opts.filter(excludes))
	plan.New = Render(doc, plan.Set)
	plan.Status = StatusGenerated
	return plan
}

// Synchronize rewrites the manifest from the current listing. A missing
// manifest or one without an autogenerated section is left untouched;
// explicit only controls whether the latter is reported as a warning.
func (s *Synchronizer) Synchronize(ctx context.Context, explicit bool) (*Result, error) {
	if err := s.opts.Validate(); err != nil {
		return nil, err
	}

	// Check before locking so a tree without a manifest is not modified.
	if !util.FileExists(s.opts.File()) {
		s.logger.Debug("no manifest, skipping", "path", s.opts.ManifestPath)
		return &Result{Path: s.opts.ManifestPath, Status: StatusNoManifest}, nil
	}

	unlock, err := s.lock(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	plan, err := s.Generate(ctx)
	if err != nil {
		return nil, err
	}

	for _, w := range plan.Warnings {
		s.logger.Warn("directive kept verbatim", "line", w.Line, "reason", w.Reason)
	}

	result := &Result{Path: plan.Path, Status: plan.Status, Warnings: plan.Warnings}
	switch plan.Status {
	case StatusNoManifest:
		return result, nil
	case StatusNoMarker:
		if explicit {
			s.logger.Warn("manifest has no AUTOGENERATED section", "path", plan.Path)
		}
		return result, nil
	}

	if err := s.writeFile(s.opts.File(), plan.New, 0o644); err != nil {
		return nil, ioError("write", plan.Path, err)
	}

	// The manifest is part of the listing it summarizes.
	if err := s.listing.Restat(ctx, s.opts.ManifestPath); err != nil {
		return nil, fmt.Errorf("failed to refresh listing for %s: %w", plan.Path, err)
	}

	result.Status = StatusWritten
	result.Changed = plan.Changed()
	result.Files = plan.Set.Len()
	result.TotalBytes = plan.Set.TotalBytes
	result.Signature = plan.Set.Signature()

	s.logger.Info("manifest updated",
		"path", plan.Path,
		"files", result.Files,
		"bytes", result.TotalBytes,
		"changed", result.Changed)
	return result, nil
}

func (s *Synchronizer) lock(ctx context.Context) (func(), error) {
	lockPath := filepath.Join(s.opts.Root, filepath.FromSlash(LockFile))
	if err := os.MkdirAll(filepath.Dir(lockPath), 0o755); err != nil {
		return nil, ioError("create lock directory for", s.opts.ManifestPath, err)
	}

	fl := flock.New(lockPath)
	locked, err := fl.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return nil, fmt.Errorf("failed to lock %s: %w", lockPath, err)
	}
	if !locked {
		return nil, fmt.Errorf("failed to lock %s", lockPath)
	}
	s.logger.Log(ctx, log.LevelTrace, "lock acquired", "path", lockPath)

	return func() {
		if err := fl.Unlock(); err != nil {
			s.logger.Warn("failed to release lock", "path", lockPath, "error", err)
		}
	}, nil
}
