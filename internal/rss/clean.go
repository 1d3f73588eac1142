package rss

import (
	"html"
	"strings"
	"unicode"
)

// CleanText normalizes a feed field: control characters and replacement runes
// are stripped, HTML entities decoded, whitespace collapsed to single spaces.
func CleanText(text string) string {
	if text == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if r == '�' {
			continue
		}
		if r < 0x20 && r != '\t' && r != '\n' && r != '\r' {
			continue
		}
		if r == 0x7F {
			continue
		}
		b.WriteRune(r)
	}

	cleaned := html.UnescapeString(b.String())

	return strings.Join(strings.FieldsFunc(cleaned, unicode.IsSpace), " ")
}
