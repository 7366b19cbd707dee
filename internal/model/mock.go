package model

import (
	"context"
	"errors"
	"strings"

	"github.com/hyperjump/youyaku/internal/models"
)

// MockSummarizer is a deterministic summarizer for tests and offline use. It
// returns the leading target.MaxWords words of the input.
type MockSummarizer struct{}

// NewMockSummarizer returns a summarizer that truncates its input.
func NewMockSummarizer() *MockSummarizer {
	return &MockSummarizer{}
}

// Summarize returns the first target.MaxWords words of text.
func (m *MockSummarizer) Summarize(ctx context.Context, text string, target models.LengthSpec, _ models.Preset) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	words := strings.Fields(text)
	if len(words) == 0 {
		return "", &Error{Provider: m.Name(), Err: errors.New("empty input")}
	}
	if target.MaxWords > 0 && len(words) > target.MaxWords {
		words = words[:target.MaxWords]
	}
	return strings.Join(words, " "), nil
}

// Name returns "mock".
func (m *MockSummarizer) Name() string { return "mock" }

// Close is a no-op for MockSummarizer.
func (m *MockSummarizer) Close() error { return nil }
