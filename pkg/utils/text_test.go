package utils

import (
	"testing"
)

func TestTruncate(t *testing.T) {
	if Truncate("hello", 10) != "hello" {
		t.Error("short string unchanged")
	}
	if Truncate("hello world", 5) != "hello..." {
		t.Errorf("got %s", Truncate("hello world", 5))
	}
	if Truncate("x", 0) != "x" {
		t.Error("maxLen 0 returns as-is")
	}
	if got := Truncate("要約を作成する", 2); got != "要約..." {
		t.Errorf("multibyte: got %s", got)
	}
}

func TestWordCount(t *testing.T) {
	if n := WordCount("  one two\n\nthree\t"); n != 3 {
		t.Errorf("WordCount = %d, want 3", n)
	}
	if n := WordCount(""); n != 0 {
		t.Errorf("WordCount(empty) = %d", n)
	}
}

func TestTitle(t *testing.T) {
	tests := []struct {
		name    string
		summary string
		want    string
	}{
		{"empty", "   ", "Untitled Summary"},
		{"short with period", "Rates rose.", "Rates rose."},
		{"short without period", "Rates rose", "Rates rose..."},
		{"long", "one two three four five six seven eight nine ten eleven twelve thirteen fourteen",
			"one two three four five six seven eight nine ten eleven twelve..."},
		{"twelfth word ends sentence", "a b c d e f g h i j k end. more words",
			"a b c d e f g h i j k end."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Title(tt.summary); got != tt.want {
				t.Errorf("Title() = %q, want %q", got, tt.want)
			}
		})
	}
}
