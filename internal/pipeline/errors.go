package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/hyperjump/youyaku/internal/model"
	"github.com/hyperjump/youyaku/internal/models"
	"github.com/hyperjump/youyaku/internal/tokenizer"
)

var (
	// ErrEmptyInput is returned before any model call when the document has no text.
	ErrEmptyInput = errors.New("empty input: no text supplied")
	// ErrInvalidRequest marks request validation failures at the boundary.
	ErrInvalidRequest = errors.New("invalid request")
)

// ChunkSummarizationError reports a chunk that failed both its first attempt
// and the halved retry.
type ChunkSummarizationError struct {
	ChunkIndex int
	Depth      int
	Err        error
}

func (e *ChunkSummarizationError) Error() string {
	return fmt.Sprintf("chunk %d at depth %d failed after retry: %v", e.ChunkIndex, e.Depth, e.Err)
}

func (e *ChunkSummarizationError) Unwrap() error { return e.Err }

// RecursionLimitError reports that combined text still exceeded the ceiling
// at the maximum depth.
type RecursionLimitError struct {
	Depth    int
	MaxDepth int
	Tokens   int
}

func (e *RecursionLimitError) Error() string {
	return fmt.Sprintf("combined text still has %d tokens at depth %d (max depth %d)", e.Tokens, e.Depth, e.MaxDepth)
}

// NoProgressError reports a combine level whose text did not shrink.
type NoProgressError struct {
	Depth    int
	Previous int
	Current  int
}

func (e *NoProgressError) Error() string {
	return fmt.Sprintf("combine level %d did not shrink: %d tokens, previous level %d", e.Depth, e.Current, e.Previous)
}

// KindOf classifies err into a failure kind. It returns "" for nil.
func KindOf(err error) models.FailureKind {
	var (
		chunkErr *ChunkSummarizationError
		limitErr *RecursionLimitError
		stuckErr *NoProgressError
		tokErr   *tokenizer.Error
		modelErr *model.Error
	)
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrEmptyInput):
		return models.FailureEmptyInput
	case errors.Is(err, ErrInvalidRequest):
		return models.FailureInvalidRequest
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return models.FailureCanceled
	case errors.As(err, &chunkErr):
		return models.FailureChunkSummarization
	case errors.As(err, &limitErr):
		return models.FailureRecursionLimit
	case errors.As(err, &stuckErr):
		return models.FailureNoProgress
	case errors.As(err, &tokErr):
		return models.FailureTokenizer
	case errors.As(err, &modelErr):
		return models.FailureModel
	default:
		return models.FailureInternal
	}
}

// FailureFrom converts err into the failure variant of a result, carrying
// chunk index and depth when the error has them.
func FailureFrom(err error) *models.Failure {
	if err == nil {
		return nil
	}
	f := &models.Failure{Kind: KindOf(err), Message: err.Error()}
	var (
		chunkErr *ChunkSummarizationError
		limitErr *RecursionLimitError
		stuckErr *NoProgressError
	)
	switch {
	case errors.As(err, &chunkErr):
		idx, depth := chunkErr.ChunkIndex, chunkErr.Depth
		f.ChunkIndex, f.Depth = &idx, &depth
	case errors.As(err, &limitErr):
		depth := limitErr.Depth
		f.Depth = &depth
	case errors.As(err, &stuckErr):
		depth := stuckErr.Depth
		f.Depth = &depth
	}
	return f
}

// NewResult builds the tagged result for a finished run.
func NewResult(summary string, stats models.RunStats, err error) *models.PipelineResult {
	if err != nil {
		return &models.PipelineResult{Failure: FailureFrom(err), Stats: stats}
	}
	return &models.PipelineResult{Summary: summary, Stats: stats}
}
