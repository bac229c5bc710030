package imports

import (
	"cmp"
	"regexp"
	"slices"
	"strings"
)

var (
	blockCommentRe = regexp.MustCompile(`(?s)/\*.*?\*/`)
	lineCommentRe  = regexp.MustCompile(`(?m)^[ \t]*//(?:[^/\n].*)?$`)

	specifierRes = []*regexp.Regexp{
		regexp.MustCompile(`\bfrom\s*["']([^"'\n]+)["']`),
		regexp.MustCompile(`\bimport\s*["']([^"'\n]+)["']`),
		regexp.MustCompile(`\b(?:import|require)\s*\(\s*["']([^"'\n]+)["']\s*\)`),
		regexp.MustCompile(`///\s*<reference\s+types\s*=\s*["']([^"'\n]+)["']`),
	}
)

type match struct {
	pos  int
	spec string
}

// Parse returns the package specifiers imported by source, deduplicated in
// order of first appearance.
func Parse(source string) []string {
	source = blockCommentRe.ReplaceAllStringFunc(source, blank)
	source = lineCommentRe.ReplaceAllStringFunc(source, blank)

	var found []match
	for _, re := range specifierRes {
		for _, m := range re.FindAllStringSubmatchIndex(source, -1) {
			found = append(found, match{pos: m[2], spec: source[m[2]:m[3]]})
		}
	}
	slices.SortStableFunc(found, func(a, b match) int { return cmp.Compare(a.pos, b.pos) })

	seen := make(map[string]bool, len(found))
	var out []string
	for _, m := range found {
		spec := strings.TrimSpace(m.spec)
		if !isPackage(spec) || seen[spec] {
			continue
		}
		seen[spec] = true
		out = append(out, spec)
	}
	return out
}

// blank replaces s with spaces of the same length, keeping byte offsets
// stable for ordering.
func blank(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '\n' {
			return r
		}
		return ' '
	}, s)
}

func isPackage(spec string) bool {
	switch {
	case spec == "", spec == ".", spec == "..":
		return false
	case strings.HasPrefix(spec, "./"), strings.HasPrefix(spec, "../"), strings.HasPrefix(spec, "/"):
		return false
	case strings.Contains(spec, "://"):
		return false
	}
	return true
}
