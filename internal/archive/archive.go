// Package archive stores finished summary records off the request path.
package archive

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/youyaku/internal/keyword"
	"github.com/hyperjump/youyaku/internal/models"
	"github.com/hyperjump/youyaku/internal/storage"
)

// Archiver persists records from a bounded queue in a background worker.
// Successful records are also indexed for search.
type Archiver struct {
	storage storage.Storage
	index   keyword.SummaryIndex
	logger  *zap.Logger
	timeout time.Duration

	queue   chan *models.SummaryRecord
	dropped atomic.Uint64
	wg      sync.WaitGroup
	mu      sync.RWMutex
	closed  bool
}

// Option configures an Archiver.
type Option func(*Archiver)

// WithLogger sets a logger for write failures and drops.
func WithLogger(l *zap.Logger) Option {
	return func(a *Archiver) { a.logger = l }
}

// WithWriteTimeout bounds each storage and index write.
func WithWriteTimeout(d time.Duration) Option {
	return func(a *Archiver) { a.timeout = d }
}

// New starts an archiver with a queue of size buffer. index may be nil.
func New(store storage.Storage, index keyword.SummaryIndex, buffer int, opts ...Option) *Archiver {
	if buffer <= 0 {
		buffer = 1
	}
	a := &Archiver{
		storage: store,
		index:   index,
		logger:  zap.NewNop(),
		timeout: 10 * time.Second,
		queue:   make(chan *models.SummaryRecord, buffer),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.wg.Add(1)
	go a.worker()
	return a
}

// Submit queues rec without blocking. It reports false when the record was
// dropped because the queue is full or the archiver is closed.
func (a *Archiver) Submit(rec *models.SummaryRecord) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return false
	}
	select {
	case a.queue <- rec:
		return true
	default:
		a.dropped.Add(1)
		a.logger.Warn("Archive queue full, dropping record", zap.String("id", rec.ID))
		return false
	}
}

// Dropped returns the number of records that could not be queued.
func (a *Archiver) Dropped() uint64 {
	return a.dropped.Load()
}

// Close stops accepting records and waits for queued ones to be written.
func (a *Archiver) Close() error {
	a.mu.Lock()
	if !a.closed {
		a.closed = true
		close(a.queue)
	}
	a.mu.Unlock()
	a.wg.Wait()
	return nil
}

func (a *Archiver) worker() {
	defer a.wg.Done()
	for rec := range a.queue {
		a.write(rec)
	}
}

func (a *Archiver) write(rec *models.SummaryRecord) {
	ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
	defer cancel()

	if err := a.storage.SaveRecord(ctx, rec); err != nil {
		a.logger.Error("Failed to save summary record", zap.String("id", rec.ID), zap.Error(err))
		return
	}
	if a.index == nil || !rec.Success {
		return
	}
	if err := a.index.Index(ctx, rec); err != nil {
		a.logger.Warn("Failed to index summary", zap.String("id", rec.ID), zap.Error(err))
	}
}
