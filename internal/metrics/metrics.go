// Package metrics exposes pipeline activity as Prometheus metrics.
package metrics

import (
	"net/http"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hyperjump/youyaku/internal/pipeline"
)

// Sink records pipeline events into its own registry.
type Sink struct {
	registry      *prom.Registry
	requests      *prom.CounterVec
	duration      prom.Histogram
	chunks        prom.Histogram
	depth         prom.Histogram
	retries       prom.Counter
	eventsDropped prom.Counter
}

// NewSink creates a sink with a fresh registry that also carries the Go and
// process collectors.
func NewSink() *Sink {
	s := &Sink{
		registry: prom.NewRegistry(),
		requests: prom.NewCounterVec(prom.CounterOpts{
			Name: "youyaku_requests_total",
			Help: "Summarization requests by outcome.",
		}, []string{"outcome"}),
		duration: prom.NewHistogram(prom.HistogramOpts{
			Name:    "youyaku_request_duration_seconds",
			Help:    "Wall-clock time of summarization requests.",
			Buckets: prom.ExponentialBuckets(0.05, 2, 12),
		}),
		chunks: prom.NewHistogram(prom.HistogramOpts{
			Name:    "youyaku_chunks_per_request",
			Help:    "Number of first-level chunks per request.",
			Buckets: []float64{0, 1, 2, 4, 8, 16, 32, 64},
		}),
		depth: prom.NewHistogram(prom.HistogramOpts{
			Name:    "youyaku_recursion_depth",
			Help:    "Deepest combine level reached per request.",
			Buckets: []float64{0, 1, 2, 3, 4, 5},
		}),
		retries: prom.NewCounter(prom.CounterOpts{
			Name: "youyaku_chunk_retries_total",
			Help: "Chunks retried with halved size.",
		}),
		eventsDropped: prom.NewCounter(prom.CounterOpts{
			Name: "youyaku_events_dropped_total",
			Help: "Log events dropped because the sink buffer was full.",
		}),
	}
	s.registry.MustRegister(
		s.requests, s.duration, s.chunks, s.depth, s.retries, s.eventsDropped,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return s
}

// Emit implements pipeline.EventSink.
func (s *Sink) Emit(e pipeline.Event) {
	switch e.Type {
	case pipeline.EventCompleted:
		s.requests.WithLabelValues("success").Inc()
		s.observeRun(e)
	case pipeline.EventFailed:
		s.requests.WithLabelValues(string(e.Kind)).Inc()
		s.observeRun(e)
	case pipeline.EventRetry:
		s.retries.Inc()
	}
}

func (s *Sink) observeRun(e pipeline.Event) {
	s.duration.Observe(e.Duration.Seconds())
	s.chunks.Observe(float64(e.Chunks))
	s.depth.Observe(float64(e.Depth))
}

// EventDropped counts one dropped log event. Pass it to pipeline.WithDropHook.
func (s *Sink) EventDropped() {
	s.eventsDropped.Inc()
}

// Registry returns the underlying registry.
func (s *Sink) Registry() *prom.Registry {
	return s.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (s *Sink) Handler() http.Handler {
	return promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})
}
