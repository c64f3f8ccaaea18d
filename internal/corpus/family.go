// Package corpus describes the document families that make up the crawl:
// which listing pages exist, how child identifiers are encoded in them, and
// which extraction path applies per family. The orchestrator is generic over
// these descriptions.
package corpus

import (
	"github.com/openlawwa/lexcrawler/internal/citation"
)

// FamilyTag identifies one primary table and its search index.
type FamilyTag string

const (
	FamilyRCW   FamilyTag = "RCW"
	FamilyWAC   FamilyTag = "WAC"
	FamilyRules FamilyTag = "RULES"
)

// StatuteFamily describes a dotted-citation corpus (RCW or WAC).
type StatuteFamily struct {
	Tag      FamilyTag
	IndexURL string
}

// RuleSet describes one named family of court rules sharing a numbering
// scheme. PDF sets derive rule numbers from filenames; HTML sets from
// structured anchor text.
type RuleSet struct {
	Tag        string
	ListingURL string
	PDF        bool
	SubStyle   citation.SubStyle
}

// RuleSetTable is the fixed enumeration of supported rule sets. The sub-part
// style is fixed per set: CRLJ filenames map a nonzero sub field to a letter
// suffix, RALJ to a second decimal extension.
var RuleSetTable = []RuleSet{
	{Tag: "CR", PDF: false},
	{Tag: "ER", PDF: false},
	{Tag: "CRLJ", PDF: true, SubStyle: citation.SubLetter},
	{Tag: "RALJ", PDF: true, SubStyle: citation.SubDecimal},
}

// RuleSetByTag resolves a tag case-sensitively against the fixed table.
func RuleSetByTag(tag string) (RuleSet, bool) {
	for _, rs := range RuleSetTable {
		if rs.Tag == tag {
			return rs, true
		}
	}
	return RuleSet{}, false
}

// RuleSetTags returns the tags of the fixed table, in table order.
func RuleSetTags() []string {
	tags := make([]string, 0, len(RuleSetTable))
	for _, rs := range RuleSetTable {
		tags = append(tags, rs.Tag)
	}
	return tags
}
