package pipeline

import (
	"context"
	"errors"
	"strings"

	"github.com/sethvargo/go-retry"
	"golang.org/x/sync/errgroup"

	"github.com/hyperjump/youyaku/internal/model"
	"github.com/hyperjump/youyaku/internal/models"
)

// summarizeAll summarizes chunks with at most maxConcurrency calls in flight.
// Results are stored by chunk index, so output order matches input order. The
// first failure cancels the remaining calls.
func (r *run) summarizeAll(ctx context.Context, chunks []models.Chunk, depth int) ([]string, error) {
	budget := models.ChunkBudget(r.target, len(chunks), r.p.minChunkWords, r.p.maxTokens)
	out := make([]string, len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.p.maxConcurrency)
	for i, ch := range chunks {
		g.Go(func() error {
			s, err := r.summarizeChunk(gctx, ch, budget, depth)
			if err != nil {
				return err
			}
			out[i] = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, err
	}
	return out, nil
}

// summarizeChunk makes one call for ch. If the model fails, it retries once by
// splitting ch in half and summarizing the halves in order.
func (r *run) summarizeChunk(ctx context.Context, ch models.Chunk, budget models.LengthSpec, depth int) (string, error) {
	preset := models.PresetFor(r.doc.Mode, models.StageChunk)
	backoff := retry.WithMaxRetries(1, retry.NewConstant(r.p.retryDelay))

	var (
		summary string
		attempt int
	)
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		var err error
		if attempt == 1 {
			summary, err = r.call(ctx, ch.Text, budget, preset)
		} else {
			summary, err = r.summarizeHalves(ctx, ch, budget, preset)
		}
		var modelErr *model.Error
		if errors.As(err, &modelErr) {
			if attempt == 1 {
				r.retries.Add(1)
				r.p.emit(Event{
					Type:       EventRetry,
					RequestID:  r.doc.ID,
					ChunkIndex: ch.Index,
					Depth:      depth,
					Err:        err.Error(),
				})
			}
			return retry.RetryableError(err)
		}
		return err
	})
	if err == nil {
		return summary, nil
	}
	var modelErr *model.Error
	if errors.As(err, &modelErr) && ctx.Err() == nil {
		return "", &ChunkSummarizationError{ChunkIndex: ch.Index, Depth: depth, Err: err}
	}
	return "", err
}

// summarizeHalves re-chunks ch into halves and joins the summaries of the
// pieces in order.
func (r *run) summarizeHalves(ctx context.Context, ch models.Chunk, budget models.LengthSpec, preset models.Preset) (string, error) {
	pieces, err := r.p.chunker.Halve(ctx, ch.Text, ch.Tokens)
	if err != nil {
		return "", err
	}
	pieceBudget := models.ChunkBudget(budget, len(pieces), r.p.minChunkWords, r.p.maxTokens)
	parts := make([]string, 0, len(pieces))
	for _, piece := range pieces {
		s, err := r.call(ctx, piece.Text, pieceBudget, preset)
		if err != nil {
			return "", err
		}
		parts = append(parts, s)
	}
	return strings.Join(parts, " "), nil
}
