package listing

import (
	"time"

	"github.com/albertocavalcante/appcache/pkg/util"
)

// IndexVersion is the current version of the index format.
const IndexVersion = 1

// Index represents a snapshot of files in the workspace.
type Index struct {
	Version   int               `json:"version"`
	Algorithm Algorithm         `json:"algorithm"`
	UpdatedAt time.Time         `json:"updated_at"`
	Entries   map[string]*Entry `json:"entries"`
}

// NewIndex creates an empty index.
func NewIndex() *Index {
	return &Index{
		Version:   IndexVersion,
		Algorithm: Blake3,
		UpdatedAt: time.Now(),
		Entries:   make(map[string]*Entry),
	}
}

// Add adds or updates an entry.
func (idx *Index) Add(e *Entry) {
	if idx == nil || e == nil {
		return
	}
	if idx.Entries == nil {
		idx.Entries = make(map[string]*Entry)
	}
	idx.Entries[e.Path] = e
}

// Remove deletes an entry if present.
func (idx *Index) Remove(path string) {
	if idx == nil || idx.Entries == nil {
		return
	}
	delete(idx.Entries, path)
}

// Get retrieves an entry by path.
func (idx *Index) Get(path string) (*Entry, bool) {
	if idx == nil || idx.Entries == nil {
		return nil, false
	}
	e, ok := idx.Entries[path]
	return e, ok
}

// Paths returns every indexed path in lexicographic order.
func (idx *Index) Paths() []string {
	if idx == nil {
		return nil
	}
	return util.SortedKeys(idx.Entries)
}

// Len returns the number of entries.
func (idx *Index) Len() int {
	if idx == nil {
		return 0
	}
	return len(idx.Entries)
}

// Diff compares this index against another, returning changes.
// The receiver (idx) is the "old" state, other is the "new" state.
func (idx *Index) Diff(other *Index) *ChangeSet {
	cs := NewChangeSet()

	if idx == nil && other == nil {
		return cs
	}

	oldEntries := make(map[string]*Entry)
	newEntries := make(map[string]*Entry)

	if idx != nil && idx.Entries != nil {
		oldEntries = idx.Entries
	}
	if other != nil && other.Entries != nil {
		newEntries = other.Entries
	}

	for path, newEntry := range newEntries {
		oldEntry, exists := oldEntries[path]
		if !exists {
			cs.Added = append(cs.Added, path)
			continue
		}

		// Content is what matters; mtime-only changes are not modifications.
		if oldEntry.Hash != newEntry.Hash || oldEntry.Size != newEntry.Size {
			cs.Modified = append(cs.Modified, path)
		}
	}

	for path := range oldEntries {
		if _, exists := newEntries[path]; !exists {
			cs.Deleted = append(cs.Deleted, path)
		}
	}

	cs.sort()
	return cs
}
