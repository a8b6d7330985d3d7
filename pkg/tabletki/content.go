package tabletki

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// PlainText renders the section markup as whitespace-collapsed text.
func (s HTMLSection) PlainText() (string, error) {
	return htmlText(s.HTML)
}

// Summary returns the first description section with any text, capped at
// limit runes (0 means no cap). Sections without text are skipped.
func (c ProductCard) Summary(limit int) (string, error) {
	for _, sec := range c.DescriptionByParts {
		txt, err := sec.PlainText()
		if err != nil {
			return "", err
		}
		if txt == "" {
			continue
		}
		return truncateRunes(txt, limit), nil
	}
	return "", nil
}

func htmlText(markup string) (string, error) {
	if strings.TrimSpace(markup) == "" {
		return "", nil
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}
	doc.Find("script, style").Remove()
	// block boundaries would otherwise glue adjacent words together
	doc.Find("p, div, li, br, tr, td, h1, h2, h3, h4, h5, h6").AfterHtml(" ")

	var parts []string
	doc.Find("body").Each(func(_ int, sel *goquery.Selection) {
		parts = append(parts, sel.Text())
	})
	return strings.Join(strings.Fields(strings.Join(parts, " ")), " "), nil
}

func truncateRunes(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return strings.TrimSpace(string(r[:limit])) + "…"
}
