package manifest

import (
	"regexp"
	"strings"
)

// DirectiveKind distinguishes the directive variants.
type DirectiveKind int

const (
	// DirectiveOpaque is any directive line that is carried through
	// unchanged without affecting the cached set.
	DirectiveOpaque DirectiveKind = iota

	// DirectiveExclude removes paths with any of its prefixes from the cache.
	DirectiveExclude
)

func (k DirectiveKind) String() string {
	if k == DirectiveExclude {
		return "exclude"
	}
	return "opaque"
}

// Directive is one instruction line from the autogenerated section.
type Directive struct {
	Kind DirectiveKind

	// Line is the original text, re-emitted verbatim.
	Line string

	// Prefixes are the exclusion prefixes of a DirectiveExclude.
	Prefixes []string
}

// directivePrefixes are the accepted line openers. "#!" is canonical.
var directivePrefixes = []string{"#!", "# !"}

var (
	excludePattern = regexp.MustCompile(`^\s*EXCLUDE:\s*(.*?)\s*$`)
	keywordPattern = regexp.MustCompile(`^\s*([A-Za-z_]+)\s*:`)
	listSeparator  = regexp.MustCompile(`,\s*`)
)

// IsDirectiveLine reports whether line is a directive.
func IsDirectiveLine(line string) bool {
	_, ok := directiveBody(line)
	return ok
}

func directiveBody(line string) (string, bool) {
	for _, p := range directivePrefixes {
		if body, ok := strings.CutPrefix(line, p); ok {
			return strings.TrimSuffix(body, "\r"), true
		}
	}
	return "", false
}

// ParseDirective interprets one directive line. Lines that are not EXCLUDE
// directives, or are EXCLUDE directives without any prefix, come back as
// DirectiveOpaque together with a warning explaining why.
func ParseDirective(line string) (Directive, *DirectiveWarning) {
	d := Directive{Kind: DirectiveOpaque, Line: line}

	body, ok := directiveBody(line)
	if !ok {
		return d, &DirectiveWarning{Line: line, Reason: "not a directive line"}
	}

	m := excludePattern.FindStringSubmatch(body)
	if m == nil {
		reason := "unrecognized directive"
		if kw := keywordPattern.FindStringSubmatch(body); kw != nil {
			reason = "unrecognized directive " + strings.ToUpper(kw[1])
		}
		return d, &DirectiveWarning{Line: line, Reason: reason}
	}

	var prefixes []string
	for _, p := range listSeparator.Split(m[1], -1) {
		if p = strings.TrimSpace(p); p != "" {
			prefixes = append(prefixes, p)
		}
	}
	if len(prefixes) == 0 {
		return d, &DirectiveWarning{Line: line, Reason: "EXCLUDE has no path prefixes"}
	}

	d.Kind = DirectiveExclude
	d.Prefixes = prefixes
	return d, nil
}

// ParseDirectives extracts every directive line from text, in order.
func ParseDirectives(text string) ([]Directive, []*DirectiveWarning) {
	var (
		directives []Directive
		warnings   []*DirectiveWarning
	)
	for _, line := range strings.Split(text, "\n") {
		if !IsDirectiveLine(line) {
			continue
		}
		d, w := ParseDirective(line)
		directives = append(directives, d)
		if w != nil {
			warnings = append(warnings, w)
		}
	}
	return directives, warnings
}
