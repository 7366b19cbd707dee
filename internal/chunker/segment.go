package chunker

import (
	"regexp"
	"strings"
	"unicode"
)

var blankLine = regexp.MustCompile(`\n[ \t\f\v]*\n`)

// Paragraphs splits text on blank lines and collapses whitespace inside each
// paragraph. Empty paragraphs are dropped.
func Paragraphs(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	var out []string
	for _, p := range blankLine.Split(text, -1) {
		if p = collapseSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// collapseSpace trims s and replaces every whitespace run with one space.
func collapseSpace(s string) string {
	s = strings.TrimSpace(s)
	var b strings.Builder
	b.Grow(len(s))
	wasSpace := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			if !wasSpace {
				b.WriteRune(' ')
				wasSpace = true
			}
		} else {
			b.WriteRune(r)
			wasSpace = false
		}
	}
	return b.String()
}

// Sentences splits a collapsed paragraph after terminal punctuation that is
// followed by whitespace. Closing quotes and brackets stay with their sentence.
func Sentences(p string) []string {
	runes := []rune(p)
	var out []string
	start := 0
	for i := 0; i < len(runes); i++ {
		if !isTerminal(runes[i]) {
			continue
		}
		end := i + 1
		for end < len(runes) && isCloser(runes[end]) {
			end++
		}
		if end < len(runes) && !unicode.IsSpace(runes[end]) {
			continue
		}
		if s := strings.TrimSpace(string(runes[start:end])); s != "" {
			out = append(out, s)
		}
		start = end
		i = end - 1
	}
	if s := strings.TrimSpace(string(runes[start:])); s != "" {
		out = append(out, s)
	}
	return out
}

func isTerminal(r rune) bool {
	switch r {
	case '.', '!', '?', '…', '。', '！', '？':
		return true
	}
	return false
}

func isCloser(r rune) bool {
	switch r {
	case '"', '\'', ')', ']', '}', '”', '’', '»':
		return true
	}
	return false
}
