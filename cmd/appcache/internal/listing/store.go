package listing

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-json"

	"github.com/albertocavalcante/appcache/pkg/util"
)

const (
	// StateDir is the directory name for appcache state files.
	StateDir = ".appcache"

	// stateFile is the name of the state file.
	stateFile = "state.json"
)

// Store defines the interface for index persistence.
type Store interface {
	Load() (*Index, error)
	Save(idx *Index) error
	Exists() bool
	Clear() error
}

// JSONStore implements Store using JSON files.
type JSONStore struct {
	dir  string
	path string
}

// NewJSONStore creates a store at <workspaceRoot>/.appcache/state.json.
func NewJSONStore(workspaceRoot string) *JSONStore {
	dir := filepath.Join(workspaceRoot, StateDir)
	return &JSONStore{
		dir:  dir,
		path: filepath.Join(dir, stateFile),
	}
}

// Load reads the index from disk. If the state file doesn't exist, returns an empty index.
func (s *JSONStore) Load() (*Index, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return NewIndex(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read state file: %w", err)
	}

	var idx Index
	if err := json.Unmarshal(data, &idx); err != nil {
		return nil, fmt.Errorf("failed to parse state file: %w", err)
	}

	if idx.Version > IndexVersion {
		return nil, fmt.Errorf("state file version %d is newer than supported version %d", idx.Version, IndexVersion)
	}
	if idx.Entries == nil {
		idx.Entries = make(map[string]*Entry)
	}

	return &idx, nil
}

// Save writes the index to disk atomically.
func (s *JSONStore) Save(idx *Index) error {
	if idx == nil {
		return fmt.Errorf("cannot save nil index")
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	idx.UpdatedAt = time.Now()
	idx.Version = IndexVersion

	data, err := json.MarshalIndent(idx, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal index: %w", err)
	}

	if err := util.WriteFileAtomic(s.path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write state file: %w", err)
	}
	return nil
}

// Exists returns true if the state file exists.
func (s *JSONStore) Exists() bool {
	return util.FileExists(s.path)
}

// Clear removes the state file.
func (s *JSONStore) Clear() error {
	err := os.Remove(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}
