// Package extract turns fetched HTML pages and PDF byte streams into
// normalized plain text suitable for storage and indexing.
package extract

import (
	"fmt"
	"regexp"
	"strings"
)

// MinBodyLength is the threshold below which extracted text counts as
// near-empty. Near-empty output is a soft warning: the record is still
// stored so the citation does not silently drop out of the corpus.
const MinBodyLength = 40

var (
	spaceRunRE  = regexp.MustCompile(`[ \t\x{00a0}]+`)
	blankRunRE  = regexp.MustCompile(`\n{3,}`)
	lineTrimRE  = regexp.MustCompile(`(?m)^[ \t]+|[ \t]+$`)
	pageNumRE   = regexp.MustCompile(`(?m)^\s*(?:Page\s+)?\d{1,4}\s*$`)
	effectiveRE = regexp.MustCompile(`(?mi)^\s*\[?Effective\s+[A-Za-z0-9 ,./]+\]?\s*$`)
	reservedRE  = regexp.MustCompile(`\[\s*Reserved[.]?\s*\]`)

	effectiveDateRE = regexp.MustCompile(`(?i)\[\s*Effective\s+([A-Za-z0-9 ,./]+?)\s*\.?\s*\]`)
	amendedYearRE   = regexp.MustCompile(`\[\s*(\d{4})\s+c\s+\d+`)
)

// Site boilerplate that survives selector-based extraction on legislature
// pages. Matched case-insensitively, whole phrase.
var boilerplatePhrases = []string{
	"Washington State Legislature",
	"Search within these results",
	"Complete Chapter",
	"<< Previous Chapter",
	"Next Chapter >>",
	"RCW Dispositions",
	"Print Version",
}

// Normalize collapses whitespace runs to single spaces, converts CRLF to LF,
// trims line edges, and reduces three or more consecutive newlines to exactly
// one blank line.
func Normalize(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = spaceRunRE.ReplaceAllString(s, " ")
	s = lineTrimRE.ReplaceAllString(s, "")
	s = blankRunRE.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// CutToBodyStart discards everything before the first case-insensitive match
// of "<tag> <id>" when the match lies beyond position 0. With maxOffset > 0
// matches past that offset are ignored, guarding against table-of-contents
// echoes deep in a document.
func CutToBodyStart(text, tag, id string, maxOffset int) string {
	if tag == "" || id == "" {
		return text
	}
	// The trailing \b keeps the marker for "CR 8" from matching inside
	// "CR 80".
	pat := regexp.MustCompile(`(?i)` + regexp.QuoteMeta(tag) + `\s+` + regexp.QuoteMeta(id) + `\b`)
	loc := pat.FindStringIndex(text)
	if loc == nil || loc[0] == 0 {
		return text
	}
	if maxOffset > 0 && loc[0] > maxOffset {
		return text
	}
	return text[loc[0]:]
}

// StripBoilerplate removes known site banner and navigation phrases.
func StripBoilerplate(text string) string {
	for _, phrase := range boilerplatePhrases {
		re := regexp.MustCompile(`(?i)` + regexp.QuoteMeta(phrase))
		text = re.ReplaceAllString(text, "")
	}
	return Normalize(text)
}

// StripPDFArtifacts removes page-number lines, "Effective <date>" footers and
// bracketed [Reserved] placeholders left behind by page decoding.
func StripPDFArtifacts(text string) string {
	text = pageNumRE.ReplaceAllString(text, "")
	text = effectiveRE.ReplaceAllString(text, "")
	text = reservedRE.ReplaceAllString(text, "")
	return Normalize(text)
}

// EffectiveDate returns the date from the first bracketed
// "[Effective <date>]" annotation, or "" when the document has none.
func EffectiveDate(text string) string {
	m := effectiveDateRE.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}

// LastAmended returns the session-law year of the most recent amendment from
// a bracketed history note ("[2019 c 243 § 1; 1994 c 129 § 2.]" -> "2019").
// History notes list the newest session first.
func LastAmended(text string) string {
	m := amendedYearRE.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return m[1]
}

// NearEmpty reports whether normalized text falls below MinBodyLength.
func NearEmpty(text string) bool {
	return len(strings.TrimSpace(text)) < MinBodyLength
}

// ErrEmptyDocument is wrapped by extractors when a source yields no text at
// all (as opposed to near-empty text, which is stored with a warning).
var ErrEmptyDocument = fmt.Errorf("document contained no extractable text")
