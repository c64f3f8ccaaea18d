package extract

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Elements that never carry body text on source pages.
const chromeSelectors = "script, style, nav, header, footer, .breadcrumb, .navigation, #breadcrumb"

// contentSelectors is probed in order; the first selector yielding non-empty
// text wins. The page body is the final fallback so a layout change degrades
// to full-page extraction instead of failing.
var contentSelectors = []string{
	"#contentWrapper",
	"#divContent",
	"div.content",
	"main",
	"article",
	"body",
}

// HTML extracts normalized body text from a detail page. tag and id locate
// the start of true body text (e.g. "RCW", "7.84.100"); when the marker is
// found past position 0 the navigation prefix is discarded.
func HTML(page string, tag, id string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}
	doc.Find(chromeSelectors).Remove()

	var raw string
	for _, sel := range contentSelectors {
		if text := strings.TrimSpace(doc.Find(sel).First().Text()); text != "" {
			raw = text
			break
		}
	}
	if raw == "" {
		return "", fmt.Errorf("extract %s %s: %w", tag, id, ErrEmptyDocument)
	}

	text := Normalize(raw)
	text = CutToBodyStart(text, tag, id, 0)
	return StripBoilerplate(text), nil
}
