package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeCollapsesWhitespace(t *testing.T) {
	t.Parallel()

	in := "Intent.\r\n\r\n\r\n\r\nThe  legislature\tfinds   that civil\n\n\ninfractions apply."
	want := "Intent.\n\nThe legislature finds that civil\n\ninfractions apply."
	assert.Equal(t, want, Normalize(in))
}

func TestCutToBodyStart(t *testing.T) {
	t.Parallel()

	text := "Home > Titles > Chapter 7.84\nRCW 7.84.100 Intent. The legislature finds..."
	got := CutToBodyStart(text, "RCW", "7.84.100", 0)
	assert.True(t, len(got) < len(text))
	assert.Equal(t, 0, indexOf(got, "RCW 7.84.100"))

	// Match at position 0 leaves the text alone.
	assert.Equal(t, got, CutToBodyStart(got, "RCW", "7.84.100", 0))

	// No match leaves the text alone.
	assert.Equal(t, text, CutToBodyStart(text, "RCW", "9.41.040", 0))

	// Case-insensitive.
	lower := "preamble rcw 7.84.100 body"
	assert.Equal(t, "rcw 7.84.100 body", CutToBodyStart(lower, "RCW", "7.84.100", 0))
}

func TestCutToBodyStartRequiresWholeIdentifier(t *testing.T) {
	t.Parallel()

	// The rule 80 heading must not satisfy the marker for rule 8.
	text := "Table: CR 80 Forms\nCR 8 General Rules of Pleading. A pleading shall contain..."
	got := CutToBodyStart(text, "CR", "8", 0)
	assert.Equal(t, 0, indexOf(got, "CR 8 General"))

	// A dotted id still matches its own heading.
	text = "CRLJ 8.0 intro CRLJ 8.1 body"
	assert.Equal(t, "CRLJ 8.1 body", CutToBodyStart(text, "CRLJ", "8.1", 0))
}

func TestCutToBodyStartBoundedOffset(t *testing.T) {
	t.Parallel()

	pad := make([]byte, 700)
	for i := range pad {
		pad[i] = 'x'
	}
	text := string(pad) + " CRLJ 4.1 body text here"
	// Match lies past the window: leave untouched.
	assert.Equal(t, text, CutToBodyStart(text, "CRLJ", "4.1", pdfBodyStartWindow))
	// Unbounded: cut.
	assert.Equal(t, "CRLJ 4.1 body text here", CutToBodyStart(text, "CRLJ", "4.1", 0))
}

func TestStripPDFArtifacts(t *testing.T) {
	t.Parallel()

	in := "CRLJ 4.1 Process\nService shall be made.\n12\nEffective September 1, 2016\n[Reserved.]\nPage 3"
	got := StripPDFArtifacts(in)
	assert.NotContains(t, got, "Effective September")
	assert.NotContains(t, got, "[Reserved")
	assert.NotContains(t, got, "\n12\n")
	assert.Contains(t, got, "Service shall be made.")
}

func TestEffectiveDateAnnotation(t *testing.T) {
	t.Parallel()

	text := "RCW 9.41.040 Unlawful possession. A person is guilty... [2019 c 243 § 1; 1994 c 129 § 2.] [Effective January 1, 2020.]"
	assert.Equal(t, "January 1, 2020", EffectiveDate(text))
	assert.Equal(t, "2019", LastAmended(text))

	assert.Equal(t, "", EffectiveDate("no annotations here"))
	assert.Equal(t, "", LastAmended("no annotations here"))
}

func TestNearEmpty(t *testing.T) {
	t.Parallel()

	assert.True(t, NearEmpty("  short  "))
	assert.False(t, NearEmpty("The legislature finds that the civil infraction process is appropriate."))
}

func indexOf(s, sub string) int {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return i
		}
	}
	return -1
}
