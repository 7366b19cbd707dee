// Package engine turns transport-level summarize requests into pipeline runs
// and archives every finished run.
package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/youyaku/internal/config"
	"github.com/hyperjump/youyaku/internal/models"
	"github.com/hyperjump/youyaku/internal/pipeline"
	"github.com/hyperjump/youyaku/pkg/utils"
)

// Recorder receives a record for every request that reached the pipeline.
// Submit must not block.
type Recorder interface {
	Submit(rec *models.SummaryRecord) bool
}

// Summarizer runs one document through the pipeline.
type Summarizer interface {
	Summarize(ctx context.Context, doc *models.Document) (string, models.RunStats, error)
}

// Engine validates requests, runs the pipeline and builds responses.
type Engine struct {
	pipeline        Summarizer
	recorder        Recorder
	shortInputWords int
	logger          *zap.Logger
	now             func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the request logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithRecorder sets where finished requests are archived.
func WithRecorder(r Recorder) Option {
	return func(e *Engine) { e.recorder = r }
}

// NewEngine creates an engine around p.
func NewEngine(p Summarizer, cfg *config.PipelineConfig, opts ...Option) *Engine {
	e := &Engine{
		pipeline: p,
		logger:   zap.NewNop(),
		now:      time.Now,
	}
	if cfg != nil {
		e.shortInputWords = cfg.ShortInputWords
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Summarize validates req, summarizes its text and archives the outcome.
// Validation failures wrap pipeline.ErrInvalidRequest; empty text returns
// pipeline.ErrEmptyInput. Neither is archived. Pipeline failures are archived
// and returned unchanged, so pipeline.KindOf classifies them.
func (e *Engine) Summarize(ctx context.Context, req *models.SummarizeRequest) (*models.SummarizeResponse, error) {
	if req == nil {
		return nil, fmt.Errorf("%w: missing request body", pipeline.ErrInvalidRequest)
	}
	id := uuid.NewString()
	doc, err := models.NewDocument(id, req.Text, req.Length, req.Mode)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", pipeline.ErrInvalidRequest, err)
	}
	if strings.TrimSpace(doc.Text) == "" {
		e.logger.Warn("No input text provided", zap.String("request_id", id))
		return nil, pipeline.ErrEmptyInput
	}

	words := utils.WordCount(doc.Text)
	log := e.logger.With(zap.String("request_id", id))
	log.Info("Summarization request initiated",
		zap.String("length", string(doc.Length)),
		zap.String("mode", string(doc.Mode)),
		zap.Int("words", words),
		zap.String("source", req.Source))
	if words < e.shortInputWords {
		log.Warn("Short input received, the summary might not be accurate", zap.Int("words", words))
	}

	summary, stats, err := e.pipeline.Summarize(ctx, doc)
	rec := &models.SummaryRecord{
		ID:         id,
		Text:       doc.Text,
		Length:     doc.Length,
		Mode:       doc.Mode,
		Source:     req.Source,
		TokenCount: stats.Tokens,
		CreatedAt:  e.now().UTC(),
	}
	if err != nil {
		kind := pipeline.KindOf(err)
		log.Error("Summarization failed",
			zap.String("kind", string(kind)),
			zap.Int("tokens", stats.Tokens),
			zap.Int("model_calls", stats.ModelCalls),
			zap.Error(err))
		rec.Error = err.Error()
		rec.ErrorKind = kind
		e.record(rec)
		return nil, err
	}

	title := utils.Title(summary)
	rec.Title = title
	rec.Summary = summary
	rec.Success = true
	e.record(rec)

	log.Info("Summary generated",
		zap.Int("tokens", stats.Tokens),
		zap.Int("chunks", stats.Chunks),
		zap.Int("depth", stats.Depth),
		zap.Int("model_calls", stats.ModelCalls),
		zap.Int("retries", stats.Retries),
		zap.Duration("duration", stats.Duration))

	return &models.SummarizeResponse{
		OK:             true,
		ID:             id,
		Title:          title,
		Summary:        summary,
		OriginalLength: words,
		SummaryLength:  utils.WordCount(summary),
		TokenCount:     stats.Tokens,
		Chunks:         stats.Chunks,
		Depth:          stats.Depth,
		DurationMS:     stats.Duration.Milliseconds(),
	}, nil
}

func (e *Engine) record(rec *models.SummaryRecord) {
	if e.recorder == nil {
		return
	}
	if !e.recorder.Submit(rec) {
		e.logger.Warn("Summary record not archived", zap.String("request_id", rec.ID))
	}
}
