package pipeline

import (
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/youyaku/internal/models"
)

// EventType names a pipeline lifecycle event.
type EventType string

const (
	EventRequestStarted EventType = "request_started"
	EventChunked        EventType = "chunked"
	EventLevelCombined  EventType = "level_combined"
	EventRetry          EventType = "retry"
	EventCompleted      EventType = "completed"
	EventFailed         EventType = "failed"
)

// Event is a structured record of one step of a run.
type Event struct {
	Type       EventType
	RequestID  string
	Time       time.Time
	Tokens     int
	Chunks     int
	Depth      int
	ChunkIndex int
	Duration   time.Duration
	Kind       models.FailureKind
	Err        string
}

// EventSink receives pipeline events. Emit must not block.
type EventSink interface {
	Emit(Event)
}

type nopSink struct{}

func (nopSink) Emit(Event) {}

// MultiSink fans events out to every sink in order.
type MultiSink []EventSink

// Emit forwards e to each sink.
func (m MultiSink) Emit(e Event) {
	for _, s := range m {
		if s != nil {
			s.Emit(e)
		}
	}
}

// LogSink writes events to a zap logger from a background goroutine. Events
// that arrive while the buffer is full are dropped and counted.
type LogSink struct {
	logger  *zap.Logger
	events  chan Event
	dropped atomic.Uint64
	onDrop  func()
	done    chan struct{}
	once    sync.Once
	mu      sync.RWMutex
	closed  bool
}

// LogSinkOption configures a LogSink.
type LogSinkOption func(*LogSink)

// WithDropHook registers fn to be called for every dropped event.
func WithDropHook(fn func()) LogSinkOption {
	return func(s *LogSink) { s.onDrop = fn }
}

// NewLogSink starts a sink with room for buffer pending events.
func NewLogSink(logger *zap.Logger, buffer int, opts ...LogSinkOption) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	if buffer <= 0 {
		buffer = 1
	}
	s := &LogSink{
		logger: logger,
		events: make(chan Event, buffer),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	go s.loop()
	return s
}

// Emit queues e without blocking.
func (s *LogSink) Emit(e Event) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return
	}
	select {
	case s.events <- e:
	default:
		s.dropped.Add(1)
		if s.onDrop != nil {
			s.onDrop()
		}
	}
}

// Dropped returns how many events were discarded because the buffer was full.
func (s *LogSink) Dropped() uint64 {
	return s.dropped.Load()
}

// Close stops accepting events and waits until queued ones are written.
func (s *LogSink) Close() error {
	s.once.Do(func() {
		s.mu.Lock()
		s.closed = true
		close(s.events)
		s.mu.Unlock()
	})
	<-s.done
	return nil
}

func (s *LogSink) loop() {
	defer close(s.done)
	for e := range s.events {
		s.write(e)
	}
}

func (s *LogSink) write(e Event) {
	fields := []zap.Field{
		zap.String("event", string(e.Type)),
		zap.String("request_id", e.RequestID),
	}
	switch e.Type {
	case EventRequestStarted:
		s.logger.Debug("Summarization started", fields...)
	case EventChunked:
		s.logger.Info("Input chunked", append(fields,
			zap.Int("tokens", e.Tokens), zap.Int("chunks", e.Chunks), zap.Int("depth", e.Depth))...)
	case EventLevelCombined:
		s.logger.Debug("Chunk summaries combined", append(fields,
			zap.Int("tokens", e.Tokens), zap.Int("chunks", e.Chunks), zap.Int("depth", e.Depth))...)
	case EventRetry:
		s.logger.Warn("Retrying chunk with halved size", append(fields,
			zap.Int("chunk_index", e.ChunkIndex), zap.Int("depth", e.Depth), zap.String("error", e.Err))...)
	case EventCompleted:
		s.logger.Info("Summarization completed", append(fields,
			zap.Int("tokens", e.Tokens), zap.Int("chunks", e.Chunks), zap.Int("depth", e.Depth),
			zap.Duration("duration", e.Duration))...)
	case EventFailed:
		s.logger.Error("Summarization failed", append(fields,
			zap.String("kind", string(e.Kind)), zap.String("error", e.Err),
			zap.Int("depth", e.Depth), zap.Duration("duration", e.Duration))...)
	default:
		s.logger.Debug("Pipeline event", fields...)
	}
}
