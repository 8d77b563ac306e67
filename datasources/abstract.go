package datasources

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// CleanAbstract strips the HTML markup NSF embeds in abstract text
// (typically <br/> runs and entity escapes) and collapses the remaining
// whitespace. On parse failure the input is returned unchanged.
func CleanAbstract(text string) string {
	if !strings.ContainsAny(text, "<&") {
		return strings.Join(strings.Fields(text), " ")
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(text))
	if err != nil {
		return text
	}

	return strings.Join(strings.Fields(doc.Text()), " ")
}
