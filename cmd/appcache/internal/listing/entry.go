// Package listing computes the local file listing of a workspace: every
// regular file's relative path, size and content hash.
package listing

// Entry represents a single file's metadata and content hash.
type Entry struct {
	Path    string `json:"path"`     // relative, forward slashes
	Hash    string `json:"hash"`     // lowercase hex digest of the raw bytes
	ModTime int64  `json:"mtime_ns"` // UnixNano
	Size    int64  `json:"size"`
}
