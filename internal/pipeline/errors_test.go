package pipeline

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/hyperjump/youyaku/internal/model"
	"github.com/hyperjump/youyaku/internal/models"
	"github.com/hyperjump/youyaku/internal/tokenizer"
)

func TestKindOf(t *testing.T) {
	modelErr := &model.Error{Provider: "x", Err: errors.New("boom")}
	tests := []struct {
		name string
		err  error
		want models.FailureKind
	}{
		{"nil", nil, ""},
		{"empty", ErrEmptyInput, models.FailureEmptyInput},
		{"invalid wrapped", fmt.Errorf("%w: bad mode", ErrInvalidRequest), models.FailureInvalidRequest},
		{"canceled", context.Canceled, models.FailureCanceled},
		{"deadline", fmt.Errorf("call: %w", context.DeadlineExceeded), models.FailureCanceled},
		{"tokenizer", &tokenizer.Error{Encoding: "cl100k_base", Err: errors.New("x")}, models.FailureTokenizer},
		{"chunk wins over model", &ChunkSummarizationError{ChunkIndex: 2, Err: modelErr}, models.FailureChunkSummarization},
		{"recursion", &RecursionLimitError{Depth: 3, MaxDepth: 3}, models.FailureRecursionLimit},
		{"no progress", &NoProgressError{Depth: 1}, models.FailureNoProgress},
		{"model", modelErr, models.FailureModel},
		{"other", errors.New("disk full"), models.FailureInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFailureFrom(t *testing.T) {
	if FailureFrom(nil) != nil {
		t.Error("nil error should give nil failure")
	}
	f := FailureFrom(&RecursionLimitError{Depth: 3, MaxDepth: 3, Tokens: 2000})
	if f.Kind != models.FailureRecursionLimit || f.Depth == nil || *f.Depth != 3 || f.ChunkIndex != nil {
		t.Errorf("failure = %+v", f)
	}
	if f.Message == "" {
		t.Error("message should be set")
	}
}

func TestNewResult(t *testing.T) {
	ok := NewResult("done", models.RunStats{Tokens: 5}, nil)
	if !ok.OK() || ok.Summary != "done" || ok.Stats.Tokens != 5 {
		t.Errorf("success result = %+v", ok)
	}
	failed := NewResult("", models.RunStats{}, ErrEmptyInput)
	if failed.OK() || failed.Failure.Kind != models.FailureEmptyInput {
		t.Errorf("failure result = %+v", failed)
	}
}
