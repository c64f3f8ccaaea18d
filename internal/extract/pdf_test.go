package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPDFRejectsGarbage(t *testing.T) {
	t.Parallel()

	_, err := PDF([]byte("not a pdf at all"), "CRLJ", "1.1")
	require.Error(t, err)
}

func TestPDFRejectsEmpty(t *testing.T) {
	t.Parallel()

	_, err := PDF(nil, "CRLJ", "1.1")
	require.Error(t, err)
}

func TestPDFRecoversFromDecoderPanic(t *testing.T) {
	t.Parallel()

	// A plausible-looking header with a truncated body makes the decoder
	// panic internally; that must surface as an error, not a crash.
	data := []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\ntrailer\n<< /Root 1 0 R >>\n%%EOF")
	_, err := PDF(data, "RALJ", "2.1")
	assert.Error(t, err)
}
