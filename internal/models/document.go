// Package models defines core data structures for documents, chunks, summaries, and results.
package models

import (
	"fmt"
	"strings"
)

// LengthTableVersion identifies the word-range table below. Clients may rely on it.
const LengthTableVersion = "v1"

// LengthCategory is the requested size of a summary.
type LengthCategory string

const (
	LengthShort  LengthCategory = "short"
	LengthMedium LengthCategory = "medium"
	LengthLong   LengthCategory = "long"
)

// Mode selects the generation preset passed to the model.
type Mode string

const (
	// ModeReliable uses deterministic beam search.
	ModeReliable Mode = "reliable"
	// ModeCreative samples with higher variance.
	ModeCreative Mode = "creative"
)

// LengthSpec is a target summary size in words.
type LengthSpec struct {
	Category LengthCategory `json:"category"`
	MinWords int            `json:"min_words"`
	MaxWords int            `json:"max_words"`
}

var lengthTable = map[LengthCategory]LengthSpec{
	LengthShort:  {Category: LengthShort, MinWords: 15, MaxWords: 30},
	LengthMedium: {Category: LengthMedium, MinWords: 50, MaxWords: 100},
	LengthLong:   {Category: LengthLong, MinWords: 100, MaxWords: 180},
}

// ParseLength validates s as a length category. Empty means medium.
func ParseLength(s string) (LengthCategory, error) {
	c := LengthCategory(strings.ToLower(strings.TrimSpace(s)))
	if c == "" {
		return LengthMedium, nil
	}
	if _, ok := lengthTable[c]; !ok {
		return "", fmt.Errorf("invalid length %q: must be one of short, medium, long", s)
	}
	return c, nil
}

// ParseMode validates s as a mode. Empty means reliable.
func ParseMode(s string) (Mode, error) {
	m := Mode(strings.ToLower(strings.TrimSpace(s)))
	switch m {
	case "":
		return ModeReliable, nil
	case ModeReliable, ModeCreative:
		return m, nil
	default:
		return "", fmt.Errorf("invalid mode %q: must be one of reliable, creative", s)
	}
}

// Spec returns the word range for c. Unknown categories fall back to medium.
func (c LengthCategory) Spec() LengthSpec {
	if s, ok := lengthTable[c]; ok {
		return s
	}
	return lengthTable[LengthMedium]
}

// CategoryForWords returns the smallest category whose upper bound covers maxWords.
func CategoryForWords(maxWords int) LengthCategory {
	switch {
	case maxWords <= lengthTable[LengthShort].MaxWords:
		return LengthShort
	case maxWords <= lengthTable[LengthMedium].MaxWords:
		return LengthMedium
	default:
		return LengthLong
	}
}

// ChunkBudget derives the per-chunk target when n chunk summaries will later be
// combined into target. The result is roughly target/n, never below floor words
// and never above target. A positive ceiling caps it at half the ceiling, and the
// floor yields to that cap, so every combine level at least halves its input.
func ChunkBudget(target LengthSpec, n, floor, ceiling int) LengthSpec {
	if n <= 1 {
		return target
	}
	if floor <= 0 {
		floor = 1
	}
	maxWords := target.MaxWords / n
	if maxWords < floor {
		maxWords = floor
	}
	if maxWords > target.MaxWords {
		maxWords = target.MaxWords
	}
	if ceiling > 0 {
		maxWords = min(maxWords, max(ceiling/2, 1))
	}
	minWords := target.MinWords / n
	if minWords < floor {
		minWords = floor
	}
	if minWords > maxWords {
		minWords = maxWords
	}
	return LengthSpec{
		Category: CategoryForWords(maxWords),
		MinWords: minWords,
		MaxWords: maxWords,
	}
}

// Document is one summarization request's input. It is not modified after creation.
type Document struct {
	ID     string
	Text   string
	Length LengthCategory
	Mode   Mode
}

// NewDocument validates length and mode at the boundary and returns a Document.
func NewDocument(id, text, length, mode string) (*Document, error) {
	l, err := ParseLength(length)
	if err != nil {
		return nil, err
	}
	m, err := ParseMode(mode)
	if err != nil {
		return nil, err
	}
	return &Document{ID: id, Text: text, Length: l, Mode: m}, nil
}

// Chunk is a contiguous slice of a document (or of a combined intermediate text)
// whose token count does not exceed the ceiling it was cut for.
type Chunk struct {
	Index  int    `json:"index"`
	Text   string `json:"text"`
	Tokens int    `json:"tokens"`
	// Truncated is set when a single sentence exceeded the ceiling and was cut.
	Truncated bool `json:"truncated,omitempty"`
}
