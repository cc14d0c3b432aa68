package manifest

import (
	"encoding/hex"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/zeebo/blake3"

	"github.com/albertocavalcante/appcache/cmd/appcache/internal/listing"
)

// SkipReason explains why a listed file is left out of the cache.
type SkipReason string

const (
	SkipNone     SkipReason = ""
	SkipManifest SkipReason = "manifest"
	SkipMeta     SkipReason = "metadata"
	SkipTooLarge SkipReason = "too large"
	SkipDataPath SkipReason = "data path"
	SkipExcluded SkipReason = "excluded"
)

// Filter decides which listed files belong in the cached set.
type Filter struct {
	ManifestPath string
	MetaPath     string
	MaxFileSize  int64
	DataPaths    []string // doublestar patterns
	Excludes     []string // path prefixes; a leading "/" is ignored
}

// Skip returns why e is not cached, or SkipNone.
func (f *Filter) Skip(e *listing.Entry) SkipReason {
	switch {
	case e.Path == f.ManifestPath:
		return SkipManifest
	case f.MetaPath != "" && e.Path == f.MetaPath:
		return SkipMeta
	case e.Size > f.MaxFileSize:
		return SkipTooLarge
	case f.isDataPath(e.Path):
		return SkipDataPath
	case f.isExcluded(e.Path):
		return SkipExcluded
	}
	return SkipNone
}

func (f *Filter) isDataPath(p string) bool {
	for _, pattern := range f.DataPaths {
		// Patterns are validated up front; a bad one simply never matches.
		if ok, _ := doublestar.Match(pattern, p); ok {
			return true
		}
	}
	return false
}

func (f *Filter) isExcluded(p string) bool {
	for _, prefix := range f.Excludes {
		if strings.HasPrefix(p, strings.TrimPrefix(prefix, "/")) {
			return true
		}
	}
	return false
}

// CachedSet is the sorted list of files declared cacheable.
type CachedSet struct {
	Entries    []*listing.Entry
	TotalBytes int64
}

// BuildCachedSet filters every entry of l.
func BuildCachedSet(l Listing, f *Filter) *CachedSet {
	set := &CachedSet{}
	for _, p := range l.Paths() {
		e, ok := l.Get(p)
		if !ok || f.Skip(e) != SkipNone {
			continue
		}
		set.Entries = append(set.Entries, e)
		set.TotalBytes += e.Size
	}
	return set
}

// Len returns the number of cached files.
func (s *CachedSet) Len() int { return len(s.Entries) }

// Paths returns the cached paths in order.
func (s *CachedSet) Paths() []string {
	paths := make([]string, len(s.Entries))
	for i, e := range s.Entries {
		paths[i] = e.Path
	}
	return paths
}

// Signature is the BLAKE3-256 hex digest of the "path=hash" lines joined
// by newlines. It changes iff membership or any member's content changes.
func (s *CachedSet) Signature() string {
	lines := make([]string, len(s.Entries))
	for i, e := range s.Entries {
		lines[i] = e.Path + "=" + e.Hash
	}
	sum := blake3.Sum256([]byte(strings.Join(lines, "\n")))
	return hex.EncodeToString(sum[:])
}
