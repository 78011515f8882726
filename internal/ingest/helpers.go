package ingest

import (
	"encoding/json"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"
)

// cleanText collapses whitespace runs into single spaces and trims.
func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// TruncateText cuts text to at most maxLen bytes, appending an ellipsis
// when truncated. The cut lands on a rune boundary so accented text never
// turns into invalid UTF-8.
func TruncateText(text string, maxLen int) string {
	if len(text) <= maxLen {
		return text
	}
	if maxLen > 3 {
		return cutAtRune(text, maxLen-3) + "..."
	}
	return cutAtRune(text, maxLen)
}

// cutAtRune truncates to at most n bytes, walking back off a split rune.
func cutAtRune(s string, n int) string {
	if n >= len(s) {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// HTMLToText converts HTML to plain text, collapsing whitespace.
func HTMLToText(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return html
	}
	return cleanText(doc.Text())
}

var ugcPolicy = bluemonday.UGCPolicy()

// sanitizeText strips unsafe markup and invalid UTF-8 from scraped text.
func sanitizeText(s string) string {
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "")
	}
	return ugcPolicy.Sanitize(s)
}

func decodeJSON(r io.Reader, v interface{}) error {
	return json.NewDecoder(r).Decode(v)
}
