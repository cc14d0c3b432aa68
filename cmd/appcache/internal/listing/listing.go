package listing

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
)

// Listing is an Index bound to the workspace root it describes, so that
// single entries can be refreshed after the tool itself writes a file.
type Listing struct {
	root string
	algo Algorithm
	idx  *Index
}

// New wraps idx. A nil idx yields an empty listing.
func New(root string, algo Algorithm, idx *Index) *Listing {
	if idx == nil {
		idx = NewIndex()
	}
	if algo == "" {
		algo = Blake3
	}
	idx.Algorithm = algo
	return &Listing{root: root, algo: algo, idx: idx}
}

// Root returns the workspace root.
func (l *Listing) Root() string { return l.root }

// Index returns the underlying index.
func (l *Listing) Index() *Index { return l.idx }

// Paths returns all listed paths, sorted.
func (l *Listing) Paths() []string { return l.idx.Paths() }

// Get returns the entry for a relative path.
func (l *Listing) Get(rel string) (*Entry, bool) { return l.idx.Get(rel) }

// Restat re-reads one file and replaces its entry. A file that no longer
// exists is removed from the listing.
func (l *Listing) Restat(ctx context.Context, rel string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	rel = path.Clean(filepath.ToSlash(rel))
	abs := filepath.Join(l.root, filepath.FromSlash(rel))

	info, err := os.Stat(abs)
	if errors.Is(err, fs.ErrNotExist) {
		l.idx.Remove(rel)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", rel, err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%s is not a regular file", rel)
	}

	hash, err := HashFile(l.algo, abs)
	if err != nil {
		return fmt.Errorf("%s: %w", rel, err)
	}

	l.idx.Add(&Entry{
		Path:    rel,
		Hash:    hash,
		ModTime: info.ModTime().UnixNano(),
		Size:    info.Size(),
	})
	return nil
}
