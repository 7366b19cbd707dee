package search

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestHighlight(t *testing.T) {
	if got := Highlight("short text", "text", 100); got != "short text" {
		t.Errorf("short content changed: %q", got)
	}
	if got := Highlight("anything", "x", 0); got != "anything" {
		t.Errorf("zero maxLen should return content, got %q", got)
	}

	long := strings.Repeat("filler words here ", 20) + "the eruption began at dawn " + strings.Repeat("more filler ", 20)
	got := Highlight(long, "eruption", 60)
	if !strings.Contains(got, "eruption") {
		t.Errorf("snippet should contain the term: %q", got)
	}
	if !strings.HasPrefix(got, "...") || !strings.HasSuffix(got, "...") {
		t.Errorf("cut ends should be marked: %q", got)
	}
	if n := utf8.RuneCountInString(strings.Trim(got, ".")); n > 60 {
		t.Errorf("snippet body has %d runes, want <= 60", n)
	}

	noMatch := Highlight(long, "absent", 30)
	if !strings.HasPrefix(noMatch, "filler") || !strings.HasSuffix(noMatch, "...") {
		t.Errorf("no match should start at the beginning: %q", noMatch)
	}
}
