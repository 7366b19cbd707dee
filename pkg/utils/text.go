// Package utils provides shared text and logging helpers.
package utils

import (
	"strings"
	"unicode/utf8"
)

const (
	titleWords   = 12
	untitledText = "Untitled Summary"
)

// Truncate returns s cut to maxLen runes, with "..." appended if it was cut.
// If maxLen is 0 or negative, returns s unchanged.
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 || utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	return string([]rune(s)[:maxLen]) + "..."
}

// WordCount returns the number of whitespace-separated words in s.
func WordCount(s string) int {
	return len(strings.Fields(s))
}

// Title derives a title from the first twelve words of summary. "..." is
// appended unless the title already ends with a period.
func Title(summary string) string {
	words := strings.Fields(summary)
	if len(words) == 0 {
		return untitledText
	}
	if len(words) > titleWords {
		words = words[:titleWords]
	}
	title := strings.Join(words, " ")
	if strings.HasSuffix(title, ".") {
		return title
	}
	return title + "..."
}
