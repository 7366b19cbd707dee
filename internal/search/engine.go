// Package search answers full-text queries over archived summaries.
package search

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/youyaku/internal/config"
	"github.com/hyperjump/youyaku/internal/keyword"
	"github.com/hyperjump/youyaku/internal/models"
	"github.com/hyperjump/youyaku/internal/storage"
)

// Engine runs history searches: keyword hits from the index, hydrated from storage.
type Engine struct {
	storage storage.Storage
	index   keyword.SummaryIndex
	config  *config.SearchConfig
	speller *keyword.SpellChecker
	logger  *zap.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets a logger for stale index entries.
func WithLogger(l *zap.Logger) EngineOption {
	return func(e *Engine) { e.logger = l }
}

// WithSpellChecker enables "Did you mean?" suggestions.
func WithSpellChecker(s *keyword.SpellChecker) EngineOption {
	return func(e *Engine) { e.speller = s }
}

// NewEngine creates a history search engine with the given dependencies.
func NewEngine(store storage.Storage, index keyword.SummaryIndex, cfg *config.SearchConfig, opts ...EngineOption) *Engine {
	e := &Engine{
		storage: store,
		index:   index,
		config:  cfg,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Search validates query and returns a page of matching summaries.
func (e *Engine) Search(ctx context.Context, query *models.HistoryQuery) (*models.HistoryResponse, error) {
	startTime := time.Now()
	if err := ProcessQuery(query, e.config); err != nil {
		return nil, err
	}

	candidates := e.config.TopKCandidates
	if need := query.Offset + query.Limit; candidates < need {
		candidates = need
	}
	hits, err := e.index.Search(ctx, query.Query, candidates, &keyword.SearchOptions{
		TitleBoost: e.config.TitleBoost,
		Fuzzy:      query.FuzzyEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("keyword search failed: %w", err)
	}

	scored := FilterByMinScore(NormalizeScores(hits), query.MinScore)

	start := query.Offset
	end := query.Offset + query.Limit
	if start > len(scored) {
		start = len(scored)
	}
	if end > len(scored) {
		end = len(scored)
	}
	paged := scored[start:end]

	response := &models.HistoryResponse{
		Results: make([]*models.HistoryHit, 0, len(paged)),
		Total:   len(scored),
		Query:   query.Query,
	}
	for i, hit := range paged {
		rec, err := e.storage.GetRecord(ctx, hit.ID)
		if errors.Is(err, storage.ErrNotFound) {
			e.logger.Debug("Index entry has no stored record", zap.String("id", hit.ID))
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to load summary %s: %w", hit.ID, err)
		}
		response.Results = append(response.Results, &models.HistoryHit{
			Record:  rec,
			Score:   hit.Score,
			Rank:    start + i + 1,
			Snippet: Highlight(rec.Summary, query.Query, e.config.SnippetLength),
		})
	}
	if e.speller != nil && (query.FuzzyEnabled || len(scored) == 0) {
		corrected, changed, err := e.speller.Check(query.Query)
		if err != nil {
			e.logger.Debug("Spell check failed", zap.Error(err))
		} else if changed {
			response.Suggestions = []string{corrected}
		}
	}
	response.QueryTime = time.Since(startTime).Milliseconds()
	return response, nil
}

// Forget removes a summary from storage and the index.
func (e *Engine) Forget(ctx context.Context, id string) error {
	if err := e.storage.DeleteRecord(ctx, id); err != nil {
		return err
	}
	if err := e.index.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to remove %s from index: %w", id, err)
	}
	return nil
}
