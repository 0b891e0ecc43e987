// Package htmltext turns scraped HTML pages into plain text documents.
package htmltext

import (
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Elements whose content is never visible text
const hiddenSelector = "script, style, noscript, template, iframe, svg, head"

// Elements that end a line of text
const blockSelector = "p, div, br, li, tr, h1, h2, h3, h4, h5, h6, section, article, header, footer, blockquote, pre, dt, dd"

var (
	horizontalSpace = regexp.MustCompile(`[ \t\f\v\x{00a0}]+`)
	blankLines      = regexp.MustCompile(`\n{2,}`)
)

// Page is the visible content of an HTML page
type Page struct {
	Title string
	Text  string
}

// Extract reads HTML from r and returns its title and visible text with one line per block
func Extract(r io.Reader) (Page, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return Page{}, fmt.Errorf("parsing html: %w", err)
	}

	title := strings.TrimSpace(doc.Find("title").First().Text())
	if title == "" {
		if og, ok := doc.Find(`meta[property="og:title"]`).Attr("content"); ok {
			title = strings.TrimSpace(og)
		}
	}

	doc.Find(hiddenSelector).Remove()
	doc.Find(blockSelector).Each(func(_ int, s *goquery.Selection) {
		s.AfterHtml("\n")
	})

	return Page{Title: title, Text: normalize(doc.Text())}, nil
}

// ExtractString is Extract over an in-memory page
func ExtractString(html string) (Page, error) {
	return Extract(strings.NewReader(html))
}

func normalize(text string) string {
	lines := strings.Split(horizontalSpace.ReplaceAllString(text, " "), "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	joined := blankLines.ReplaceAllString(strings.Join(lines, "\n"), "\n")
	return strings.TrimSpace(joined)
}
