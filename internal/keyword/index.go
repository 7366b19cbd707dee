// Package keyword provides full-text search over summary history.
package keyword

import (
	"context"

	"github.com/hyperjump/youyaku/internal/models"
)

// SearchOptions are optional parameters for a history search. Nil means defaults.
type SearchOptions struct {
	// TitleBoost multiplies the score contribution of title matches. Values <= 1 disable it.
	TitleBoost float64
	// Fuzzy enables typo-tolerant matching with edit distance Fuzziness (default 1).
	Fuzzy     bool
	Fuzziness int
}

// SummaryIndex indexes successful summaries for search.
type SummaryIndex interface {
	Index(ctx context.Context, rec *models.SummaryRecord) error
	Search(ctx context.Context, query string, limit int, opts *SearchOptions) ([]*Result, error)
	Delete(ctx context.Context, id string) error
	DocCount() (uint64, error)
	Close() error
}

// Result is a single search hit.
type Result struct {
	ID    string
	Score float64
}
