package pipeline

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/youyaku/internal/models"
	"github.com/hyperjump/youyaku/internal/tokenizer"
)

const combineSep = "\n\n"

// combine joins summaries and either makes the final call or, when the joined
// text is still over the ceiling, re-chunks it and recurses one level deeper.
// previous is the token count of the level before, or 0 at depth 0.
func (r *run) combine(ctx context.Context, summaries []string, depth, previous int) (string, error) {
	combined := strings.Join(summaries, combineSep)
	tokens, err := tokenizer.Count(ctx, r.p.counter, combined)
	if err != nil {
		return "", err
	}
	if depth > r.depth {
		r.depth = depth
	}
	r.p.emit(Event{
		Type:      EventLevelCombined,
		RequestID: r.doc.ID,
		Tokens:    tokens,
		Chunks:    len(summaries),
		Depth:     depth,
	})

	if tokens <= r.p.maxTokens {
		return r.call(ctx, combined, r.target, models.PresetFor(r.doc.Mode, models.StageCombine))
	}
	if depth > 0 && tokens >= previous {
		return "", &NoProgressError{Depth: depth, Previous: previous, Current: tokens}
	}
	if depth >= r.p.maxDepth {
		return "", &RecursionLimitError{Depth: depth, MaxDepth: r.p.maxDepth, Tokens: tokens}
	}

	chunks, err := r.p.chunker.Split(ctx, combined, r.p.maxTokens)
	if err != nil {
		return "", err
	}
	r.p.logger.Debug("Combined text over ceiling, re-chunking",
		zap.String("request_id", r.doc.ID),
		zap.Int("depth", depth),
		zap.Int("tokens", tokens),
		zap.Int("chunks", len(chunks)))
	r.p.emit(Event{Type: EventChunked, RequestID: r.doc.ID, Tokens: tokens, Chunks: len(chunks), Depth: depth + 1})

	next, err := r.summarizeAll(ctx, chunks, depth+1)
	if err != nil {
		return "", err
	}
	return r.combine(ctx, next, depth+1, tokens)
}
