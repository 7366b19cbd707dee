// Package pipeline summarizes documents of any length under a fixed token
// ceiling by chunking, summarizing chunks, and recursively combining them.
package pipeline

import (
	"context"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/youyaku/internal/chunker"
	"github.com/hyperjump/youyaku/internal/config"
	"github.com/hyperjump/youyaku/internal/model"
	"github.com/hyperjump/youyaku/internal/models"
	"github.com/hyperjump/youyaku/internal/tokenizer"
)

// Pipeline is safe for concurrent use. Each Run keeps its own state.
type Pipeline struct {
	counter        tokenizer.Counter
	model          model.Summarizer
	chunker        *chunker.Chunker
	maxTokens      int
	maxDepth       int
	maxConcurrency int
	minChunkWords  int
	retryDelay     time.Duration
	sink           EventSink
	logger         *zap.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets a logger for debug output.
func WithLogger(l *zap.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// WithSink sets the event sink. Events are dropped when unset.
func WithSink(s EventSink) Option {
	return func(p *Pipeline) { p.sink = s }
}

// New creates a pipeline. Zero values in cfg fall back to the defaults in
// config.ApplyDefaults.
func New(counter tokenizer.Counter, summarizer model.Summarizer, cfg config.PipelineConfig, opts ...Option) *Pipeline {
	defaults := config.Config{Pipeline: cfg}
	config.ApplyDefaults(&defaults)
	cfg = defaults.Pipeline

	p := &Pipeline{
		counter:        counter,
		model:          summarizer,
		chunker:        chunker.NewChunker(counter),
		maxTokens:      cfg.MaxTokens,
		maxDepth:       cfg.MaxDepth,
		maxConcurrency: cfg.MaxConcurrency,
		minChunkWords:  cfg.MinChunkWords,
		retryDelay:     cfg.RetryDelay,
		sink:           nopSink{},
		logger:         zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.sink == nil {
		p.sink = nopSink{}
	}
	if p.logger == nil {
		p.logger = zap.NewNop()
	}
	if p.retryDelay <= 0 {
		p.retryDelay = time.Millisecond
	}
	if p.maxConcurrency <= 0 {
		p.maxConcurrency = 1
	}
	return p
}

// MaxTokens returns the token ceiling.
func (p *Pipeline) MaxTokens() int { return p.maxTokens }

// Run summarizes doc and returns a tagged result. It never returns nil.
func (p *Pipeline) Run(ctx context.Context, doc *models.Document) *models.PipelineResult {
	summary, stats, err := p.Summarize(ctx, doc)
	return NewResult(summary, stats, err)
}

// Summarize summarizes doc. Errors are one of ErrEmptyInput, *tokenizer.Error,
// *ChunkSummarizationError, *RecursionLimitError, *NoProgressError,
// *model.Error, or the context's error.
func (p *Pipeline) Summarize(ctx context.Context, doc *models.Document) (string, models.RunStats, error) {
	start := time.Now()
	r := &run{p: p, doc: doc, target: doc.Length.Spec()}
	p.emit(Event{Type: EventRequestStarted, RequestID: doc.ID})

	summary, err := r.execute(ctx)
	stats := r.stats(time.Since(start))
	if err != nil {
		p.emit(Event{
			Type:      EventFailed,
			RequestID: doc.ID,
			Tokens:    stats.Tokens,
			Chunks:    stats.Chunks,
			Depth:     stats.Depth,
			Duration:  stats.Duration,
			Kind:      KindOf(err),
			Err:       err.Error(),
		})
		return "", stats, err
	}
	p.emit(Event{
		Type:      EventCompleted,
		RequestID: doc.ID,
		Tokens:    stats.Tokens,
		Chunks:    stats.Chunks,
		Depth:     stats.Depth,
		Duration:  stats.Duration,
	})
	return summary, stats, nil
}

func (p *Pipeline) emit(e Event) {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	p.sink.Emit(e)
}

// run holds the private state of one invocation.
type run struct {
	p      *Pipeline
	doc    *models.Document
	target models.LengthSpec

	tokens int
	chunks int
	depth  int

	calls   atomic.Int64
	retries atomic.Int64
}

func (r *run) execute(ctx context.Context) (string, error) {
	if strings.TrimSpace(r.doc.Text) == "" {
		return "", ErrEmptyInput
	}
	tokens, err := tokenizer.Count(ctx, r.p.counter, r.doc.Text)
	if err != nil {
		return "", err
	}
	r.tokens = tokens

	if tokens <= r.p.maxTokens {
		r.p.logger.Debug("Input fits ceiling, summarizing directly",
			zap.String("request_id", r.doc.ID), zap.Int("tokens", tokens))
		return r.call(ctx, r.doc.Text, r.target, models.PresetFor(r.doc.Mode, models.StageDirect))
	}

	chunks, err := r.p.chunker.Split(ctx, r.doc.Text, r.p.maxTokens)
	if err != nil {
		return "", err
	}
	if len(chunks) == 0 {
		return "", ErrEmptyInput
	}
	r.chunks = len(chunks)
	r.p.emit(Event{Type: EventChunked, RequestID: r.doc.ID, Tokens: tokens, Chunks: len(chunks)})

	summaries, err := r.summarizeAll(ctx, chunks, 0)
	if err != nil {
		return "", err
	}
	return r.combine(ctx, summaries, 0, 0)
}

// call invokes the model once and counts the call.
func (r *run) call(ctx context.Context, text string, target models.LengthSpec, preset models.Preset) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	r.calls.Add(1)
	return r.p.model.Summarize(ctx, text, target, preset)
}

func (r *run) stats(d time.Duration) models.RunStats {
	return models.RunStats{
		Tokens:     r.tokens,
		Chunks:     r.chunks,
		Depth:      r.depth,
		ModelCalls: int(r.calls.Load()),
		Retries:    int(r.retries.Load()),
		Duration:   d,
	}
}
