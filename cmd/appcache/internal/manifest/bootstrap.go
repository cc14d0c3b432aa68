package manifest

import (
	"strings"

	"github.com/albertocavalcante/appcache/pkg/util"
)

// BootstrapResult reports what Bootstrap did.
type BootstrapResult struct {
	Path          string
	Created       bool
	AlreadyExists bool
	Content       string
}

// Boilerplate returns a new manifest listing assets above a NETWORK
// wildcard and an empty autogenerated section.
func Boilerplate(assets []string) string {
	var b strings.Builder
	b.WriteString("CACHE MANIFEST\n")
	b.WriteString("# Cache files for offline access - see http://diveintohtml5.org/offline.html\n")
	b.WriteString("\n")
	for _, a := range assets {
		b.WriteString(a)
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString("NETWORK:\n")
	b.WriteString("*\n\n")
	b.WriteString(AutogenLine)
	return b.String()
}

// Bootstrap writes the boilerplate manifest to path unless a file is
// already there and force is false. An existing file is not an error.
func Bootstrap(path string, force bool, assets []string) (*BootstrapResult, error) {
	res := &BootstrapResult{Path: path}
	if util.FileExists(path) && !force {
		res.AlreadyExists = true
		return res, nil
	}

	res.Content = Boilerplate(assets)
	if err := util.WriteFileAtomic(path, []byte(res.Content), 0o644); err != nil {
		return nil, ioError("write", path, err)
	}
	res.Created = true
	return res, nil
}
