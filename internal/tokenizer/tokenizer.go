// Package tokenizer wraps token counting behind a small interface.
package tokenizer

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// EncodingWords selects the whitespace word counter.
const EncodingWords = "words"

// Counter counts tokens the way the summarization model will.
// Implementations must be deterministic and safe for concurrent use.
type Counter interface {
	CountTokens(ctx context.Context, text string) (int, error)
	Name() string
}

// Error reports that the counting capability is unavailable.
type Error struct {
	Encoding string
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("tokenizer %s unavailable: %v", e.Encoding, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Count calls c and wraps any failure in *Error.
func Count(ctx context.Context, c Counter, text string) (int, error) {
	n, err := c.CountTokens(ctx, text)
	if err != nil {
		var tokErr *Error
		if errors.As(err, &tokErr) {
			return 0, err
		}
		return 0, &Error{Encoding: c.Name(), Err: err}
	}
	return n, nil
}

// New returns a counter for encoding. "words" gives the word counter; anything
// else is treated as a tiktoken encoding or model name.
func New(encoding string) (Counter, error) {
	if strings.EqualFold(encoding, EncodingWords) {
		return NewWordCounter(), nil
	}
	return NewTiktokenCounter(encoding)
}
