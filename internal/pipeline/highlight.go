package pipeline

import (
	"strings"
)

// HighlightKeywords wraps each case-insensitive keyword occurrence in the
// text with <mark> tags, preserving the original casing of the match. Purely
// cosmetic; the unhighlighted text stays untouched elsewhere.
func HighlightKeywords(text string, keywords []string) string {
	highlighted := text
	for _, kw := range keywords {
		kw = strings.TrimSpace(kw)
		if kw == "" {
			continue
		}
		highlighted = markOccurrences(highlighted, kw)
	}
	return highlighted
}

func markOccurrences(text, keyword string) string {
	lowerKeyword := strings.ToLower(keyword)
	var b strings.Builder
	b.Grow(len(text))

	rest := text
	for {
		idx := strings.Index(strings.ToLower(rest), lowerKeyword)
		if idx < 0 {
			b.WriteString(rest)
			return b.String()
		}
		b.WriteString(rest[:idx])
		b.WriteString("<mark>")
		b.WriteString(rest[idx : idx+len(keyword)])
		b.WriteString("</mark>")
		rest = rest[idx+len(keyword):]
	}
}
