package model

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/hyperjump/youyaku/internal/models"
)

// CachingSummarizer memoizes deterministic summaries. Sampling presets always
// reach the backend so creative output stays varied.
type CachingSummarizer struct {
	next  Summarizer
	cache *lru.Cache[string, string]
}

// NewCachingSummarizer wraps next with an LRU cache holding up to size entries.
func NewCachingSummarizer(next Summarizer, size int) (*CachingSummarizer, error) {
	cache, err := lru.New[string, string](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create summary cache: %w", err)
	}
	return &CachingSummarizer{next: next, cache: cache}, nil
}

// Summarize returns a cached summary when one exists for the same text, word
// range and preset.
func (c *CachingSummarizer) Summarize(ctx context.Context, text string, target models.LengthSpec, preset models.Preset) (string, error) {
	if preset.DoSample {
		return c.next.Summarize(ctx, text, target, preset)
	}
	key := cacheKey(text, target, preset)
	if out, ok := c.cache.Get(key); ok {
		return out, nil
	}
	out, err := c.next.Summarize(ctx, text, target, preset)
	if err != nil {
		return "", err
	}
	c.cache.Add(key, out)
	return out, nil
}

// Len returns the number of cached summaries.
func (c *CachingSummarizer) Len() int { return c.cache.Len() }

// Name reports the wrapped backend's name.
func (c *CachingSummarizer) Name() string { return c.next.Name() }

// Close closes the wrapped backend.
func (c *CachingSummarizer) Close() error { return c.next.Close() }

func cacheKey(text string, target models.LengthSpec, preset models.Preset) string {
	h := sha256.Sum256([]byte(text))
	return fmt.Sprintf("%s:%d-%d:%d", hex.EncodeToString(h[:]), target.MinWords, target.MaxWords, preset.NumBeams)
}
