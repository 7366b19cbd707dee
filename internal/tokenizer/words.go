package tokenizer

import (
	"context"
	"unicode"
)

// WordCounter counts whitespace-separated words. It stands in for a real
// tokenizer in tests and when no encoding can be loaded.
type WordCounter struct{}

// NewWordCounter returns a WordCounter.
func NewWordCounter() *WordCounter {
	return &WordCounter{}
}

// CountTokens returns the number of words in text.
func (c *WordCounter) CountTokens(ctx context.Context, text string) (int, error) {
	return CountWords(text), nil
}

// Name returns "words".
func (c *WordCounter) Name() string {
	return EncodingWords
}

// CountWords counts runs of non-space runes without allocating.
func CountWords(text string) int {
	n := 0
	inWord := false
	for _, r := range text {
		if unicode.IsSpace(r) {
			inWord = false
			continue
		}
		if !inWord {
			n++
			inWord = true
		}
	}
	return n
}
