package watch

import (
	"path"
	"slices"
	"strings"
)

// Router decides what a changed path triggers.
type Router struct {
	baseDirs []string
	outputs  map[string]bool
	manifest string
	ignored  func(rel string) bool
}

// NewRouter creates a router. outputs are bundle file names written into
// every base dir; ignored reports paths excluded from the listing.
func NewRouter(baseDirs, outputs []string, manifest string, ignored func(rel string) bool) *Router {
	r := &Router{
		outputs:  make(map[string]bool),
		manifest: path.Clean(manifest),
		ignored:  ignored,
	}
	for _, dir := range baseDirs {
		dir = path.Clean(dir)
		r.baseDirs = append(r.baseDirs, dir)
		for _, out := range outputs {
			r.outputs[path.Join(dir, out)] = true
		}
	}
	return r
}

// Relevant reports whether a change to rel should trigger any work. The
// tool's own outputs never do, so its writes cannot retrigger it.
func (r *Router) Relevant(rel string) bool {
	if rel == r.manifest || r.outputs[rel] {
		return false
	}
	if r.ignored != nil && r.ignored(rel) {
		return false
	}
	return true
}

// BaseDir returns the base dir whose bundle includes rel, if any.
func (r *Router) BaseDir(rel string) (string, bool) {
	if !r.Relevant(rel) {
		return "", false
	}
	name := path.Base(rel)
	if !strings.HasSuffix(name, ".js") && name != "includes.yaml" {
		return "", false
	}
	// The longest base dir wins so "js" and "rest/js" stay separate.
	best := ""
	for _, dir := range r.baseDirs {
		if (dir == "." || strings.HasPrefix(rel, dir+"/")) && len(dir) > len(best) {
			best = dir
		}
	}
	return best, best != ""
}

// Route splits a batch into the base dirs to rebuild, sorted, and whether
// the manifest needs synchronizing.
func (r *Router) Route(paths []string) (rebuild []string, sync bool) {
	seen := make(map[string]bool)
	for _, rel := range paths {
		if !r.Relevant(rel) {
			continue
		}
		sync = true
		if dir, ok := r.BaseDir(rel); ok && !seen[dir] {
			seen[dir] = true
			rebuild = append(rebuild, dir)
		}
	}
	slices.Sort(rebuild)
	return rebuild, sync
}
