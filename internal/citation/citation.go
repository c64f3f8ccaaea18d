// Package citation implements the citation and rule-number grammars used
// across the Washington legal corpus. All source-specific representations
// (anchor query strings, anchor text, PDF filenames) funnel through here so
// the rest of the pipeline only ever sees canonical identifiers.
package citation

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Cite is a parsed dotted citation. Section carries the full canonical form;
// Chapter and Title are its prefixes.
type Cite struct {
	Title   string
	Chapter string
	Section string
}

var dottedRE = regexp.MustCompile(`^(\d+[A-Z]?)\.(\d+[A-Z]?)\.(\d+)$`)

// Canonical collapses source-variant separators to the dotted canonical
// form. Administrative-code listings encode citations with dashes
// ("246-01-001"); everything downstream sees only "246.01.001".
func Canonical(raw string) string {
	return strings.ReplaceAll(strings.TrimSpace(raw), "-", ".")
}

// Parse decomposes a citation "A.B.C" (or a dashed source variant) into
// title A, chapter A.B and section A.B.C. Numeric components may carry a
// single trailing uppercase letter (e.g. title 28B).
func Parse(raw string) (Cite, error) {
	s := Canonical(raw)
	m := dottedRE.FindStringSubmatch(s)
	if m == nil {
		return Cite{}, fmt.Errorf("malformed citation %q", raw)
	}
	return Cite{
		Title:   m[1],
		Chapter: m[1] + "." + m[2],
		Section: s,
	}, nil
}

// ParseChapter accepts a two-component chapter citation "A.B" or "A-B".
func ParseChapter(raw string) (Cite, error) {
	s := Canonical(raw)
	parts := strings.Split(s, ".")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return Cite{}, fmt.Errorf("malformed chapter citation %q", raw)
	}
	return Cite{Title: parts[0], Chapter: s}, nil
}

// ChapterOf truncates a dotted citation to its first two components. The
// empty string is returned for inputs with fewer than two components.
func ChapterOf(cite string) string {
	parts := strings.Split(cite, ".")
	if len(parts) < 2 {
		return ""
	}
	return parts[0] + "." + parts[1]
}

// TitleOf truncates a dotted citation to its first component.
func TitleOf(cite string) string {
	if i := strings.IndexByte(cite, '.'); i >= 0 {
		return cite[:i]
	}
	return cite
}

// segment is one dot-separated piece split into its leading integer and any
// non-numeric tail, so "15a" orders after "15" and before "16".
type segment struct {
	num  int
	tail string
}

func splitSegment(s string) segment {
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	n, err := strconv.Atoi(s[:i])
	if err != nil {
		// No leading digits; order purely on the tail.
		return segment{num: -1, tail: s}
	}
	return segment{num: n, tail: s[i:]}
}

// Compare orders two dotted identifiers by their parsed integer segments,
// falling back to the non-numeric tail within a segment. It is the single
// comparator behind crawl processing order and hierarchy listings, so "9"
// sorts before "46" and "3.2" before "3.2a".
func Compare(a, b string) int {
	as := strings.Split(a, ".")
	bs := strings.Split(b, ".")
	for i := 0; i < len(as) && i < len(bs); i++ {
		sa, sb := splitSegment(as[i]), splitSegment(bs[i])
		if sa.num != sb.num {
			if sa.num < sb.num {
				return -1
			}
			return 1
		}
		if sa.tail != sb.tail {
			return strings.Compare(sa.tail, sb.tail)
		}
	}
	switch {
	case len(as) < len(bs):
		return -1
	case len(as) > len(bs):
		return 1
	default:
		return 0
	}
}

// Less reports whether a sorts before b under Compare.
func Less(a, b string) bool {
	return Compare(a, b) < 0
}
