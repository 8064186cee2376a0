package util

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

const blockSelector = "p, h1, h2, h3, h4, h5, h6, li, blockquote, pre, dt, dd"

// PlainText extracts the visible text of an HTML fragment. Tags count as
// word breaks and whitespace is collapsed.
func PlainText(fragment string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return ""
	}
	doc.Find("script, style").Remove()

	var parts []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			parts = append(parts, n.Data)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range doc.Nodes {
		walk(n)
	}
	return strings.Join(strings.Fields(strings.Join(parts, " ")), " ")
}

// HTMLParagraphs returns the text of each innermost block element.
// Fragments without block markup come back as a single paragraph.
func HTMLParagraphs(html string) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}
	doc.Find("script, style").Remove()

	var out []string
	doc.Find(blockSelector).
		FilterFunction(func(_ int, s *goquery.Selection) bool {
			return s.Find(blockSelector).Length() == 0
		}).
		Each(func(_ int, s *goquery.Selection) {
			if text := strings.Join(strings.Fields(s.Text()), " "); text != "" {
				out = append(out, text)
			}
		})

	if len(out) == 0 {
		if text := strings.Join(strings.Fields(doc.Text()), " "); text != "" {
			out = append(out, text)
		}
	}
	return out
}

// Excerpt returns the first n characters of the fragment's plain text
func Excerpt(html string, n int) string {
	return Truncate(PlainText(html), n)
}
