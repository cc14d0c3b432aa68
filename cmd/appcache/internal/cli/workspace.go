package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/albertocavalcante/appcache/cmd/appcache/internal/bundle"
	"github.com/albertocavalcante/appcache/cmd/appcache/internal/listing"
	"github.com/albertocavalcante/appcache/cmd/appcache/internal/manifest"
	"github.com/albertocavalcante/appcache/cmd/appcache/internal/scripts"
	"github.com/albertocavalcante/appcache/internal/log"
	"github.com/albertocavalcante/appcache/pkg/config"
)

// workspace is a project directory together with its loaded configuration.
type workspace struct {
	root string
	cfg  *config.Config
}

// loadWorkspace resolves the workspace directory, loads its configuration
// and applies config logging defaults for flags left unset.
func loadWorkspace(cmd *cobra.Command) (*workspace, error) {
	root := globalFlags.dir
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		root = wd
	}
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("invalid workspace %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("workspace must be a directory: %s", root)
	}

	cfg, err := config.LoadFrom(root)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	applyLogConfig(cmd, cfg)
	log.With("root", root).Debug("workspace loaded", "manifest", cfg.Manifest.Path)
	return &workspace{root: root, cfg: cfg}, nil
}

func applyLogConfig(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	verbosity := globalFlags.verbosity
	if !flags.Changed("verbosity") && cfg.Log.Verbosity != nil {
		verbosity = *cfg.Log.Verbosity
	}
	format := globalFlags.logFormat
	if !flags.Changed("log-format") && cfg.Log.Format != "" {
		format = cfg.Log.Format
	}
	log.Init(verbosity, format)
}

// rel makes an absolute path inside the workspace relative for display.
func (w *workspace) rel(path string) string {
	if r, err := filepath.Rel(w.root, path); err == nil {
		return r
	}
	return path
}

func (w *workspace) scanner() (*listing.Scanner, error) {
	algo, err := listing.ParseAlgorithm(w.cfg.Listing.Hash)
	if err != nil {
		return nil, err
	}
	return listing.NewScanner(listing.ScanConfig{
		Root:       w.root,
		Algorithm:  algo,
		IgnoreDirs: w.cfg.Listing.IgnoreDirs,
		IgnoreFile: w.cfg.Listing.IgnoreFile,
	})
}

// synchronizer scans the workspace and returns a synchronizer over the
// fresh listing.
func (w *workspace) synchronizer(ctx context.Context) (*manifest.Synchronizer, *listing.Scanner, *listing.Listing, error) {
	sc, err := w.scanner()
	if err != nil {
		return nil, nil, nil, err
	}
	l, err := sc.Listing(ctx)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to list workspace files: %w", err)
	}
	return manifest.NewSynchronizer(manifest.OptionsFromConfig(w.root, w.cfg), l), sc, l, nil
}

// synchronize rescans and synchronizes the manifest, then records the
// listing as the status baseline.
func (w *workspace) synchronize(ctx context.Context, explicit bool) (*manifest.Result, error) {
	s, sc, l, err := w.synchronizer(ctx)
	if err != nil {
		return nil, err
	}
	res, err := s.Synchronize(ctx, explicit)
	if err != nil {
		return nil, err
	}
	if res.Status == manifest.StatusWritten {
		if err := listing.NewTracker(sc).Save(l.Index()); err != nil {
			log.Warn("failed to record listing state", "error", err)
		}
	}
	return res, nil
}

func (w *workspace) assembler(noMinify bool) *bundle.Assembler {
	if noMinify || !w.cfg.MinifyEnabled() {
		return bundle.NewAssembler(nil)
	}
	return bundle.NewAssembler(bundle.NewClosureMinifier(bundle.ClosureOptions{
		URL:              w.cfg.Build.MinifierURL,
		CompilationLevel: w.cfg.Build.CompilationLevel,
		Timeout:          w.cfg.MinifierTimeout(),
		UserAgent:        "appcache/" + Version,
	}))
}

// build assembles the bundle of one base dir.
func (w *workspace) build(ctx context.Context, asm *bundle.Assembler, baseDir string) (*bundle.Result, error) {
	dir := filepath.Join(w.root, filepath.FromSlash(baseDir))
	b := w.cfg.Build
	paths, err := scripts.Paths(dir, []string{b.CombinedName, b.MinifiedName})
	if err != nil {
		return nil, err
	}
	return asm.Assemble(ctx, paths, filepath.Join(dir, b.CombinedName), filepath.Join(dir, b.MinifiedName))
}
