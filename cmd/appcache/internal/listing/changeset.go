package listing

import (
	"path"
	"slices"
)

// ChangeSet represents the differences between two indexes.
type ChangeSet struct {
	Added    []string `json:"added"`
	Modified []string `json:"modified"`
	Deleted  []string `json:"deleted"`
}

// NewChangeSet creates an empty ChangeSet.
func NewChangeSet() *ChangeSet {
	return &ChangeSet{
		Added:    []string{},
		Modified: []string{},
		Deleted:  []string{},
	}
}

// IsEmpty returns true if there are no changes.
func (cs *ChangeSet) IsEmpty() bool {
	if cs == nil {
		return true
	}
	return len(cs.Added) == 0 && len(cs.Modified) == 0 && len(cs.Deleted) == 0
}

// TotalChanges returns the total number of changed files.
func (cs *ChangeSet) TotalChanges() int {
	if cs == nil {
		return 0
	}
	return len(cs.Added) + len(cs.Modified) + len(cs.Deleted)
}

// Paths returns every changed path, sorted.
func (cs *ChangeSet) Paths() []string {
	if cs == nil {
		return nil
	}
	all := make([]string, 0, cs.TotalChanges())
	all = append(all, cs.Added...)
	all = append(all, cs.Modified...)
	all = append(all, cs.Deleted...)
	slices.Sort(all)
	return all
}

// AffectedDirs returns sorted unique directories containing changes.
func (cs *ChangeSet) AffectedDirs() []string {
	if cs == nil {
		return nil
	}

	dirs := make(map[string]struct{})
	for _, p := range cs.Paths() {
		dirs[path.Dir(p)] = struct{}{}
	}

	result := make([]string, 0, len(dirs))
	for dir := range dirs {
		result = append(result, dir)
	}
	slices.Sort(result)
	return result
}

// sort sorts all slices for deterministic output.
func (cs *ChangeSet) sort() {
	if cs == nil {
		return
	}
	slices.Sort(cs.Added)
	slices.Sort(cs.Modified)
	slices.Sort(cs.Deleted)
}
