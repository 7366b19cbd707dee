// Package storage persists summary records.
package storage

import (
	"context"
	"errors"

	"github.com/hyperjump/youyaku/internal/models"
)

// ErrNotFound is returned when no record has the requested id.
var ErrNotFound = errors.New("summary record not found")

// Storage defines summary record persistence operations.
type Storage interface {
	SaveRecord(ctx context.Context, rec *models.SummaryRecord) error
	GetRecord(ctx context.Context, id string) (*models.SummaryRecord, error)
	// ListRecords returns records newest first.
	ListRecords(ctx context.Context, offset, limit int) ([]*models.SummaryRecord, error)
	DeleteRecord(ctx context.Context, id string) error
	CountRecords(ctx context.Context) (int64, error)

	Close() error
}
