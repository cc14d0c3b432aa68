// Package watch rebuilds bundles and resynchronizes the manifest when files
// in the workspace change.
package watch

import (
	"sync"
	"time"
)

// MaxPending is the number of distinct pending paths that forces an
// immediate flush, bounding memory during bulk file creation.
const MaxPending = 1000

// Debouncer coalesces bursts of changed paths (editor autosave, git
// checkout) into one batch delivered after a quiet window.
type Debouncer struct {
	mu      sync.Mutex
	pending map[string]struct{}
	timer   *time.Timer
	window  time.Duration
	onFlush func(paths []string)
	stopped bool
}

// NewDebouncer creates a debouncer calling onFlush with the unique paths
// added since the previous flush.
func NewDebouncer(window time.Duration, onFlush func(paths []string)) *Debouncer {
	return &Debouncer{
		pending: make(map[string]struct{}),
		window:  window,
		onFlush: onFlush,
	}
}

// Add records a changed path and restarts the quiet window.
func (d *Debouncer) Add(path string) {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.pending[path] = struct{}{}

	if d.timer != nil {
		// A timer that already fired may still run flush; drain copes with
		// an empty set.
		d.timer.Stop()
		d.timer = nil
	}
	if len(d.pending) >= MaxPending {
		paths := d.drainLocked()
		d.mu.Unlock()
		d.deliver(paths)
		return
	}
	d.timer = time.AfterFunc(d.window, d.FlushNow)
	d.mu.Unlock()
}

// FlushNow delivers pending paths immediately.
func (d *Debouncer) FlushNow() {
	d.mu.Lock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	var paths []string
	if !d.stopped {
		paths = d.drainLocked()
	}
	d.mu.Unlock()

	d.deliver(paths)
}

// Stop flushes what is pending and ignores later Adds.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	paths := d.drainLocked()
	d.mu.Unlock()

	d.deliver(paths)
}

// PendingCount returns the number of paths waiting to be flushed.
func (d *Debouncer) PendingCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}

// drainLocked empties the pending set. Caller must hold d.mu.
func (d *Debouncer) drainLocked() []string {
	if len(d.pending) == 0 {
		return nil
	}
	paths := make([]string, 0, len(d.pending))
	for p := range d.pending {
		paths = append(paths, p)
	}
	d.pending = make(map[string]struct{})
	return paths
}

// deliver runs the callback without holding the lock.
func (d *Debouncer) deliver(paths []string) {
	if len(paths) > 0 && d.onFlush != nil {
		d.onFlush(paths)
	}
}
