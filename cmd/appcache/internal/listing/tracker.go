package listing

import (
	"context"
	"fmt"
	"path/filepath"
)

// Tracker remembers the listing used by the last successful manifest
// synchronization and reports what changed since.
type Tracker struct {
	store   Store
	scanner *Scanner
}

// NewTracker creates a tracker persisting under the scanner's root.
func NewTracker(scanner *Scanner) *Tracker {
	return &Tracker{
		store:   NewJSONStore(scanner.Root()),
		scanner: scanner,
	}
}

// Status checks for changes without modifying state.
func (t *Tracker) Status(ctx context.Context) (*ChangeSet, error) {
	_, cs, err := t.Snapshot(ctx)
	return cs, err
}

// Snapshot builds the current index and the changes since the stored state
// without modifying it. Files whose mtime and size match the stored entry
// keep the stored hash; only new and touched files are read.
func (t *Tracker) Snapshot(ctx context.Context) (*Index, *ChangeSet, error) {
	oldIdx, err := t.store.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load state: %w", err)
	}

	fastIdx, err := t.scanner.ScanFast(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to scan workspace: %w", err)
	}

	// Hashes from a different algorithm are not comparable; rehash everything.
	rehashAll := oldIdx.Algorithm != t.scanner.Algorithm()
	cs, err := t.computeChangesWithLazyHash(ctx, oldIdx, fastIdx, rehashAll)
	if err != nil {
		return nil, nil, err
	}
	return fastIdx, cs, nil
}

// computeChangesWithLazyHash fills in the hashes of fastIdx and computes
// changes, only hashing files whose mtime or size differ from the stored
// entry.
func (t *Tracker) computeChangesWithLazyHash(ctx context.Context, oldIdx, fastIdx *Index, rehashAll bool) (*ChangeSet, error) {
	cs := NewChangeSet()

	for _, path := range fastIdx.Paths() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		newEntry, _ := fastIdx.Get(path)
		oldEntry, exists := oldIdx.Get(path)

		// Fast path: if mtime and size unchanged, reuse the stored hash
		if exists && !rehashAll && oldEntry.ModTime == newEntry.ModTime && oldEntry.Size == newEntry.Size {
			newEntry.Hash = oldEntry.Hash
			continue
		}

		hash, err := HashFile(t.scanner.Algorithm(), filepath.Join(t.scanner.Root(), filepath.FromSlash(path)))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		newEntry.Hash = hash

		switch {
		case !exists:
			cs.Added = append(cs.Added, path)
		case oldEntry.Hash != hash:
			cs.Modified = append(cs.Modified, path)
		}
	}

	for _, path := range oldIdx.Paths() {
		if _, exists := fastIdx.Get(path); !exists {
			cs.Deleted = append(cs.Deleted, path)
		}
	}

	cs.sort()
	return cs, nil
}

// Save stores idx as the new baseline.
func (t *Tracker) Save(idx *Index) error {
	if err := t.store.Save(idx); err != nil {
		return fmt.Errorf("failed to save state: %w", err)
	}
	return nil
}

// HasState returns true if a previous state exists.
func (t *Tracker) HasState() bool {
	return t.store.Exists()
}

// TrackedFileCount returns the number of files in the stored index.
// Returns 0 if no state exists or on error.
func (t *Tracker) TrackedFileCount() int {
	idx, err := t.store.Load()
	if err != nil {
		return 0
	}
	return idx.Len()
}
