package corpus

import (
	"net/url"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/openlawwa/lexcrawler/internal/citation"
)

// Candidate is one discovered child unit: a canonical identifier plus the
// absolute URL of its detail page or PDF.
type Candidate struct {
	ID   string
	Name string
	URL  string
	PDF  bool
}

// CiteLinks extracts dotted-citation anchors (href carrying a cite= query
// parameter) from a listing page. Duplicates keep the first encountered; the
// result is returned in canonical numeric order. depth selects how many
// dot-separated components a candidate must have (2 for chapter listings,
// 3 for section listings) so stray anchors on the page are ignored.
func CiteLinks(doc *goquery.Document, base *url.URL, depth int) []Candidate {
	var out []Candidate
	seen := make(map[string]struct{})
	doc.Find(`a[href*="cite="]`).Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok {
			return
		}
		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		raw := strings.TrimSpace(ref.Query().Get("cite"))
		cite := citation.Canonical(raw)
		if cite == "" || len(strings.Split(cite, ".")) != depth {
			return
		}
		if _, dup := seen[cite]; dup {
			return
		}
		seen[cite] = struct{}{}
		out = append(out, Candidate{
			ID:   cite,
			Name: cleanAnchorName(sel.Text(), raw, cite),
			URL:  base.ResolveReference(ref).String(),
		})
	})
	sortCandidates(out)
	return out
}

// RuleCandidates extracts rule candidates from a rule-set listing page. HTML
// sets match "<TAG> <number> <name>" anchor text; PDF sets match .pdf hrefs
// whose filename stem encodes a (major, minor, sub) triple. First discovery
// wins on duplicates and the result is in canonical order.
func RuleCandidates(rs RuleSet, doc *goquery.Document, base *url.URL) []Candidate {
	var out []Candidate
	seen := make(map[string]struct{})
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok {
			return
		}
		cand, ok := ruleCandidate(rs, sel.Text(), href)
		if !ok {
			return
		}
		if _, dup := seen[cand.ID]; dup {
			return
		}
		seen[cand.ID] = struct{}{}
		if ref, err := url.Parse(href); err == nil {
			cand.URL = base.ResolveReference(ref).String()
		}
		out = append(out, cand)
	})
	sortCandidates(out)
	return out
}

func ruleCandidate(rs RuleSet, text, href string) (Candidate, bool) {
	if rs.PDF {
		if !strings.HasSuffix(strings.ToLower(href), ".pdf") {
			return Candidate{}, false
		}
		number, err := citation.RuleNumberFromFilename(href, rs.SubStyle)
		if err != nil {
			return Candidate{}, false
		}
		return Candidate{ID: number, Name: strings.TrimSpace(text), PDF: true}, true
	}
	number, name, err := citation.RuleFromAnchorText(text, rs.Tag)
	if err != nil {
		return Candidate{}, false
	}
	return Candidate{ID: number, Name: name}, true
}

func sortCandidates(cands []Candidate) {
	sort.SliceStable(cands, func(i, j int) bool {
		return citation.Less(cands[i].ID, cands[j].ID)
	})
}

// cleanAnchorName strips the citation echo the legislature puts in front of
// anchor text ("7.84 RCW Enforcement..." -> "Enforcement..."). echoes carries
// both the source spelling and the canonical spelling; the tag and number can
// appear in either order, so the prefixes are trimmed in two passes.
func cleanAnchorName(text string, echoes ...string) string {
	name := strings.Join(strings.Fields(text), " ")
	prefixes := append(echoes, "RCW", "WAC")
	for i := 0; i < 2; i++ {
		for _, prefix := range prefixes {
			if prefix == "" {
				continue
			}
			name = strings.TrimPrefix(name, prefix)
			name = strings.TrimLeft(name, " -—")
		}
	}
	return strings.TrimSpace(name)
}
