package manifest

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
)

// Render produces the full manifest text for doc and set, ending in a
// single newline.
func Render(doc *Document, set *CachedSet) []byte {
	lines := make([]string, 0, 7+len(doc.Directives)+set.Len())
	lines = append(lines, doc.Header, AutogenLine, AutogenExplain)
	for _, d := range doc.Directives {
		lines = append(lines, d.Line)
	}
	lines = append(lines,
		fmt.Sprintf("# TOTAL FILES: %s (%s bytes)", humanize.Comma(int64(set.Len())), humanize.Comma(set.TotalBytes)),
		"# SIGNATURE: "+set.Signature(),
		CacheSection,
	)
	lines = append(lines, set.Paths()...)

	return []byte(strings.Join(lines, "\n") + "\n")
}
