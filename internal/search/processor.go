package search

import (
	"github.com/hyperjump/youyaku/internal/config"
	"github.com/hyperjump/youyaku/internal/models"
)

// ProcessQuery validates the query and applies the configured limits.
func ProcessQuery(query *models.HistoryQuery, cfg *config.SearchConfig) error {
	return query.Validate(cfg.DefaultLimit, cfg.MaxLimit)
}
