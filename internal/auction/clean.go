package auction

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// htmlToText flattens markup and entities the provider sometimes embeds in
// names and places, collapsing whitespace.
func htmlToText(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return normalizeSpace(s)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return normalizeSpace(s)
	}
	return normalizeSpace(doc.Text())
}

func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
