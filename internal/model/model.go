// Package model wraps the external summarization backends behind one interface.
package model

import (
	"context"
	"errors"
	"fmt"

	"github.com/hyperjump/youyaku/internal/models"
)

// Summarizer produces a summary of text within the target word range, using
// the generation parameters in preset.
type Summarizer interface {
	Summarize(ctx context.Context, text string, target models.LengthSpec, preset models.Preset) (string, error)
	Name() string
	Close() error
}

// Error is returned when a backend rejects a request or cannot serve it.
type Error struct {
	Provider string
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("model %s: %v", e.Provider, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// wrap converts err into *Error unless it is nil, already an *Error or a
// context error.
func wrap(provider string, err error) error {
	if err == nil {
		return nil
	}
	var me *Error
	if errors.As(err, &me) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return &Error{Provider: provider, Err: err}
}

// errEmptyOutput is reported when a backend answers with no summary text.
var errEmptyOutput = errors.New("empty summary")

// instruction builds the prompt used by chat-style backends.
func instruction(text string, target models.LengthSpec) string {
	return fmt.Sprintf(
		"Summarize the following text in %d to %d words. Return only the summary.\n\n%s",
		target.MinWords, target.MaxWords, text)
}

// maxOutputTokens estimates the token allowance for a summary of maxWords words.
func maxOutputTokens(maxWords int) int {
	return maxWords*2 + 16
}
