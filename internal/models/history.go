package models

import (
	"fmt"
	"strings"
)

// HistoryQuery is a full-text search over archived summaries.
type HistoryQuery struct {
	Query        string  `json:"query"`
	Limit        int     `json:"limit,omitempty"`
	Offset       int     `json:"offset,omitempty"`
	FuzzyEnabled bool    `json:"fuzzy_enabled,omitempty"` // typo tolerant matching
	MinScore     float64 `json:"min_score,omitempty"`     // normalized, 0..1
}

// Validate trims the query, rejects empty ones, and clamps limit and offset.
func (q *HistoryQuery) Validate(defaultLimit, maxLimit int) error {
	q.Query = strings.TrimSpace(q.Query)
	if q.Query == "" {
		return fmt.Errorf("query cannot be empty")
	}
	if defaultLimit <= 0 {
		defaultLimit = 10
	}
	if maxLimit < defaultLimit {
		maxLimit = defaultLimit
	}
	if q.Limit <= 0 {
		q.Limit = defaultLimit
	}
	if q.Limit > maxLimit {
		q.Limit = maxLimit
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	if q.MinScore < 0 || q.MinScore > 1 {
		return fmt.Errorf("min_score must be between 0 and 1, got %v", q.MinScore)
	}
	return nil
}

// HistoryHit is one archived summary matching a history query.
type HistoryHit struct {
	Record  *SummaryRecord `json:"record"`
	Score   float64        `json:"score"`
	Rank    int            `json:"rank"`
	Snippet string         `json:"snippet,omitempty"`
}

// HistoryResponse is a page of history search results.
type HistoryResponse struct {
	Results   []*HistoryHit `json:"results"`
	Total     int           `json:"total"`
	QueryTime int64         `json:"query_time_ms"`
	Query     string        `json:"query"`
	// Suggestions holds "Did you mean?" corrections built from archived terms.
	// Only filled when nothing matched or fuzzy matching was on.
	Suggestions []string `json:"suggestions,omitempty"`
}
