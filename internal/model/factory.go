package model

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/youyaku/internal/config"
)

// New builds the summarizer selected by cfg.Provider, wrapped in a cache when
// cfg.CacheSize is positive.
func New(ctx context.Context, cfg config.ModelConfig, logger *zap.Logger) (Summarizer, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var (
		s   Summarizer
		err error
	)
	switch strings.ToLower(cfg.Provider) {
	case "", "mock":
		s = NewMockSummarizer()
	case "http":
		s, err = NewHTTPSummarizer(cfg.BaseURL, cfg.APIKey, cfg.Timeout)
	case "openai":
		s, err = NewOpenAISummarizer(cfg.Name, cfg.APIKey, cfg.BaseURL)
	case "vertex":
		s, err = NewVertexSummarizer(ctx, cfg.ProjectID, cfg.Region, cfg.Name)
	default:
		return nil, fmt.Errorf("unknown model provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}
	logger.Info("Summarization model ready", zap.String("provider", s.Name()), zap.String("name", cfg.Name))
	if cfg.CacheSize <= 0 {
		return s, nil
	}
	cached, err := NewCachingSummarizer(s, cfg.CacheSize)
	if err != nil {
		s.Close()
		return nil, err
	}
	return cached, nil
}
