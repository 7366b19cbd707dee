package extract

import (
	"strings"
	"unicode/utf8"
)

// extractPlain returns content as a string with line endings normalized to
// "\n" and any byte order mark removed. Invalid UTF-8 sequences are replaced
// with the replacement character.
func extractPlain(content []byte) (string, error) {
	s := string(content)
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "\uFFFD")
	}
	s = strings.TrimPrefix(s, "\uFEFF")
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	return s, nil
}
