package watch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/albertocavalcante/appcache/cmd/appcache/internal/listing"
	"github.com/albertocavalcante/appcache/internal/log"
)

// DefaultDebounce is used when Config.Debounce is not positive.
const DefaultDebounce = 500 * time.Millisecond

// ErrWatchLimitReached is returned when the OS watch limit is exceeded.
var ErrWatchLimitReached = errors.New("filesystem watch limit reached")

// Actions are the operations the watcher triggers.
type Actions struct {
	// Build rebuilds the bundle of one base dir and returns the number of
	// files combined and any compiler diagnostics.
	Build func(ctx context.Context, baseDir string) (files int, diagnostics []string, err error)

	// Sync rescans the workspace and synchronizes the manifest.
	Sync func(ctx context.Context) (cached int, changed bool, err error)
}

// Config configures the watcher.
type Config struct {
	Root     string
	BaseDirs []string
	Outputs  []string // bundle file names inside each base dir
	Manifest string   // relative to Root
	Scanner  *listing.Scanner
	Debounce time.Duration
	Verbose  bool
	NoColor  bool
	JSON     bool
	Writer   io.Writer
}

// Watcher watches the workspace and runs Actions on change.
type Watcher struct {
	config    Config
	actions   Actions
	fsWatcher *fsnotify.Watcher
	router    *Router
	debouncer *Debouncer
	logger    *Logger

	ctx context.Context

	// runMu serializes rebuilds.
	runMu sync.Mutex
}

// New creates a watcher.
func New(cfg Config, actions Actions) (*Watcher, error) {
	if cfg.Scanner == nil {
		return nil, errors.New("watch: scanner is required")
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	ignored := func(rel string) bool { return cfg.Scanner.Ignored(rel, false) }
	return &Watcher{
		config:    cfg,
		actions:   actions,
		fsWatcher: fsWatcher,
		router:    NewRouter(cfg.BaseDirs, cfg.Outputs, cfg.Manifest, ignored),
		logger: NewLogger(LoggerConfig{
			Writer:  cfg.Writer,
			Verbose: cfg.Verbose,
			NoColor: cfg.NoColor,
			JSON:    cfg.JSON,
		}),
		ctx: context.Background(),
	}, nil
}

// Logger returns the event logger.
func (w *Watcher) Logger() *Logger { return w.logger }

// Run starts the watch loop. It blocks until the context is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	w.ctx = ctx

	window := w.config.Debounce
	if window <= 0 {
		window = DefaultDebounce
	}
	w.debouncer = NewDebouncer(window, w.handleChanges)
	defer w.debouncer.Stop()

	if err := w.addRecursive(w.config.Root); err != nil {
		return fmt.Errorf("failed to watch workspace: %w", err)
	}

	fileCount := 0
	if idx, err := w.config.Scanner.ScanFast(ctx); err == nil {
		fileCount = idx.Len()
	}
	w.logger.Ready(fileCount, w.config.BaseDirs, w.config.Root)

	for {
		select {
		case <-ctx.Done():
			w.logger.Shutdown()
			return nil

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event)

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Error(err)
		}
	}
}

// addRecursive watches a directory and all non-ignored subdirectories.
func (w *Watcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsPermission(err) {
				if w.config.Verbose {
					w.logger.Error(fmt.Errorf("permission denied: %s", path))
				}
				return nil
			}
			w.logger.Error(fmt.Errorf("walk error at %s: %w", path, err))
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if rel, ok := w.rel(path); ok && rel != "." && w.config.Scanner.Ignored(rel, true) {
			return filepath.SkipDir
		}

		if err := w.fsWatcher.Add(path); err != nil {
			if isWatchLimitError(err) {
				return fmt.Errorf("%w for %s: %v\n"+
					"Increase limit with: sudo sysctl fs.inotify.max_user_watches=524288", ErrWatchLimitReached, path, err)
			}
			if w.config.Verbose {
				w.logger.Error(fmt.Errorf("failed to watch %s: %w", path, err))
			}
		}
		return nil
	})
}

func isWatchLimitError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "no space left on device") ||
		strings.Contains(errStr, "too many open files")
}

func (w *Watcher) rel(path string) (string, bool) {
	rel, err := filepath.Rel(w.config.Root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

// handleEvent filters one filesystem event and queues its path.
func (w *Watcher) handleEvent(event fsnotify.Event) {
	rel, ok := w.rel(event.Name)
	if !ok {
		return
	}
	log.V(log.VerbosityTrace).Debug("fs event", "path", rel, "op", event.Op.String())

	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if w.config.Scanner.Ignored(rel, true) {
				return
			}
			if err := w.addRecursive(event.Name); err != nil {
				w.logger.Error(fmt.Errorf("failed to watch new directory %s: %w", rel, err))
			}
			// Files created before the watch was added are picked up by the
			// next sync's full scan.
			w.debouncer.Add(rel)
			return
		}
	}

	if !w.router.Relevant(rel) {
		return
	}

	var change ChangeType
	switch {
	case event.Has(fsnotify.Create):
		change = ChangeAdded
	case event.Has(fsnotify.Write):
		change = ChangeModified
	case event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename):
		change = ChangeDeleted
	default:
		return // chmod
	}

	w.logger.FileChanged(rel, change)
	w.debouncer.Add(rel)
}

// handleChanges runs when the debouncer flushes.
func (w *Watcher) handleChanges(paths []string) {
	rebuild, needSync := w.router.Route(paths)
	if !needSync {
		return
	}

	w.runMu.Lock()
	defer w.runMu.Unlock()

	ctx := w.ctx
	for _, dir := range rebuild {
		if ctx.Err() != nil {
			return
		}
		w.logger.Building(dir)
		files, diags, err := w.actions.Build(ctx, dir)
		if err != nil {
			w.logger.Error(fmt.Errorf("build %s: %w", dir, err))
			continue
		}
		w.logger.Built(dir, files, diags)
	}

	if ctx.Err() != nil {
		return
	}
	cached, changed, err := w.actions.Sync(ctx)
	if err != nil {
		w.logger.Error(fmt.Errorf("sync: %w", err))
		return
	}
	w.logger.Synced(w.config.Manifest, cached, changed)
}

// Close closes the watcher and releases resources.
func (w *Watcher) Close() error {
	if w.fsWatcher != nil {
		return w.fsWatcher.Close()
	}
	return nil
}
