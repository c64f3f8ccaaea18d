package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// pdfBodyStartWindow bounds how far into the decoded text a "<tag> <id>"
// marker is accepted. Rule PDFs repeat the rule number in running heads and
// tables of contents; a late match must not cut the real body.
const pdfBodyStartWindow = 600

// PDF decodes each page in order, concatenates its text runs with single
// spaces, and joins pages with newlines before applying the shared
// normalization and artifact stripping.
func PDF(data []byte, tag, id string) (text string, err error) {
	// The decoder panics on some malformed cross-reference tables; treat
	// that the same as a decode error so one bad file cannot end a run.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("decode pdf %s %s: %v", tag, id, r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf %s %s: %w", tag, id, err)
	}

	var pages []string
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		var runs []string
		for _, t := range page.Content().Text {
			if s := strings.TrimSpace(t.S); s != "" {
				runs = append(runs, s)
			}
		}
		if len(runs) > 0 {
			pages = append(pages, strings.Join(runs, " "))
		}
	}
	if len(pages) == 0 {
		return "", fmt.Errorf("extract %s %s: %w", tag, id, ErrEmptyDocument)
	}

	text = Normalize(strings.Join(pages, "\n"))
	text = CutToBodyStart(text, tag, id, pdfBodyStartWindow)
	return StripPDFArtifacts(text), nil
}
