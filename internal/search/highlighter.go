package search

import (
	"strings"
	"unicode"
)

// Highlight returns a window of at most maxLen runes from content, starting
// near the first query term it contains. Cut ends get "...".
func Highlight(content, query string, maxLen int) string {
	runes := []rune(content)
	if maxLen <= 0 || len(runes) <= maxLen {
		return content
	}

	start := 0
	lower := []rune(strings.ToLower(content))
	for _, term := range strings.Fields(strings.ToLower(query)) {
		if i := indexRunes(lower, []rune(term)); i >= 0 {
			start = i
			break
		}
	}
	// Back up to the previous word boundary, leaving some leading context.
	start -= maxLen / 4
	if start < 0 || start > len(runes) {
		start = 0
	}
	for start > 0 && !unicode.IsSpace(runes[start-1]) {
		start--
	}
	end := start + maxLen
	if end > len(runes) {
		end = len(runes)
		start = end - maxLen
	}

	snippet := strings.TrimSpace(string(runes[start:end]))
	if start > 0 {
		snippet = "..." + snippet
	}
	if end < len(runes) {
		snippet += "..."
	}
	return snippet
}

func indexRunes(s, sub []rune) int {
	if len(sub) == 0 {
		return -1
	}
outer:
	for i := 0; i+len(sub) <= len(s); i++ {
		for j := range sub {
			if s[i+j] != sub[j] {
				continue outer
			}
		}
		return i
	}
	return -1
}
