package search

import "github.com/hyperjump/youyaku/internal/keyword"

// ScoredResult is a keyword hit with its score normalized to [0,1].
type ScoredResult struct {
	ID       string
	Score    float64
	RawScore float64
}

// NormalizeScores divides every score by the best one. Input order is kept,
// so results from the index stay sorted.
func NormalizeScores(results []*keyword.Result) []*ScoredResult {
	out := make([]*ScoredResult, 0, len(results))
	if len(results) == 0 {
		return out
	}
	maxScore := results[0].Score
	for _, r := range results {
		if r.Score > maxScore {
			maxScore = r.Score
		}
	}
	for _, r := range results {
		s := 0.0
		if maxScore > 0 {
			s = r.Score / maxScore
		}
		out = append(out, &ScoredResult{ID: r.ID, Score: s, RawScore: r.Score})
	}
	return out
}

// FilterByMinScore drops results below minScore. A zero minScore keeps everything.
func FilterByMinScore(results []*ScoredResult, minScore float64) []*ScoredResult {
	if minScore <= 0 {
		return results
	}
	filtered := results[:0]
	for _, r := range results {
		if r.Score >= minScore {
			filtered = append(filtered, r)
		}
	}
	return filtered
}
