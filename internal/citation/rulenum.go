package citation

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// SubStyle selects how the third filename field becomes part of a canonical
// rule number. The two styles exist side by side in the source corpus and are
// fixed per rule set, never guessed per document.
type SubStyle int

const (
	// SubLetter maps a nonzero sub-part to a letter suffix: (3, 2, 1) -> "3.2a".
	SubLetter SubStyle = iota
	// SubDecimal maps a nonzero sub-part to a second extension: (3, 2, 1) -> "3.2.1".
	SubDecimal
)

// pdfNameRE matches the fixed-width filename stems used by the PDF-only rule
// sets: an optional set prefix and three zero-padded two-digit fields.
var pdfNameRE = regexp.MustCompile(`(?i)^([a-z]*)(\d{2})(\d{2})(\d{2})$`)

// RuleNumberFromFilename derives a canonical rule number from a PDF filename
// such as "crlj010100.pdf". The base is "major.minor"; the sub field is
// appended per style only when nonzero, so equivalent filenames always
// converge on one representation.
func RuleNumberFromFilename(name string, style SubStyle) (string, error) {
	stem := name
	if i := strings.LastIndexByte(stem, '/'); i >= 0 {
		stem = stem[i+1:]
	}
	if i := strings.LastIndexByte(stem, '.'); i >= 0 {
		stem = stem[:i]
	}
	m := pdfNameRE.FindStringSubmatch(stem)
	if m == nil {
		return "", fmt.Errorf("filename %q does not encode a rule number", name)
	}
	major, _ := strconv.Atoi(m[2])
	minor, _ := strconv.Atoi(m[3])
	sub, _ := strconv.Atoi(m[4])
	return FormatRuleNumber(major, minor, sub, style)
}

// FormatRuleNumber builds the canonical rule number for a (major, minor, sub)
// triple under the given style.
func FormatRuleNumber(major, minor, sub int, style SubStyle) (string, error) {
	if major <= 0 || minor < 0 || sub < 0 {
		return "", fmt.Errorf("rule number fields out of range: %d %d %d", major, minor, sub)
	}
	base := fmt.Sprintf("%d.%d", major, minor)
	if sub == 0 {
		return base, nil
	}
	switch style {
	case SubLetter:
		if sub > 26 {
			return "", fmt.Errorf("sub-part %d exceeds letter range", sub)
		}
		return base + string(rune('a'+sub-1)), nil
	case SubDecimal:
		return fmt.Sprintf("%s.%d", base, sub), nil
	default:
		return "", fmt.Errorf("unknown sub style %d", style)
	}
}

// ruleAnchorRE captures "<SET> <number> <name>" anchor text, e.g.
// "CR 4.1 Process--Service of Summons". The number may already carry a
// fraction or letter suffix.
var ruleAnchorRE = regexp.MustCompile(`^([A-Za-z]+)\s+(\d+(?:\.\d+)*[a-z]?)\s+(.+)$`)

// RuleFromAnchorText parses a structured listing anchor. The set tag must
// match expected case-insensitively.
func RuleFromAnchorText(text, expected string) (number, name string, err error) {
	m := ruleAnchorRE.FindStringSubmatch(strings.TrimSpace(text))
	if m == nil {
		return "", "", fmt.Errorf("anchor text %q does not match rule pattern", text)
	}
	if !strings.EqualFold(m[1], expected) {
		return "", "", fmt.Errorf("anchor text %q is not a %s rule", text, expected)
	}
	return NormalizeRuleNumber(m[2]), strings.TrimSpace(m[3]), nil
}

// NormalizeRuleNumber strips leading zeros from each numeric run so that
// page-derived numbers ("04.1") and file-derived numbers ("4.1") agree.
func NormalizeRuleNumber(n string) string {
	parts := strings.Split(strings.TrimSpace(n), ".")
	for i, p := range parts {
		j := 0
		for j < len(p) && p[j] >= '0' && p[j] <= '9' {
			j++
		}
		if j == 0 {
			continue
		}
		v, err := strconv.Atoi(p[:j])
		if err != nil {
			continue
		}
		parts[i] = strconv.Itoa(v) + p[j:]
	}
	return strings.Join(parts, ".")
}

// HasSubPart reports whether a canonical rule number already carries a
// fractional component. Bare numbers like "8" get one zero-sub retry at
// lookup time.
func HasSubPart(n string) bool {
	return strings.ContainsRune(n, '.')
}
