package manifest

import "strings"

const (
	// AutogenLine separates the hand-written header from the generated section.
	AutogenLine = "# AUTOGENERATED - DO NOT EDIT BELOW THIS LINE"

	// AutogenExplain follows AutogenLine in every generated manifest.
	AutogenExplain = "# Lines below are regenerated on each sync; only #! directives are kept."

	// CacheSection opens the list of cached paths.
	CacheSection = "CACHE:"
)

// Document is a parsed manifest.
type Document struct {
	// Header is everything before the marker, byte for byte.
	Header string

	// Directives are the directive lines found after the marker.
	Directives []Directive

	// HasMarker is false when the file has no autogenerated section.
	HasMarker bool
}

// Parse splits manifest content at the first "\n" + AutogenLine. A marker
// on the very first line is not recognized since it has no header to follow.
func Parse(content string) (*Document, []*DirectiveWarning) {
	header, rest, found := strings.Cut(content, "\n"+AutogenLine)
	if !found {
		return &Document{Header: content}, nil
	}

	directives, warnings := ParseDirectives(rest)
	return &Document{
		Header:     header,
		Directives: directives,
		HasMarker:  true,
	}, warnings
}

// Excludes returns the prefixes of every EXCLUDE directive, in order.
func (d *Document) Excludes() []string {
	var prefixes []string
	for _, dir := range d.Directives {
		if dir.Kind == DirectiveExclude {
			prefixes = append(prefixes, dir.Prefixes...)
		}
	}
	return prefixes
}
