// Package server provides the HTTP API for Youyaku.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/ulule/limiter/v3"
	limitmw "github.com/ulule/limiter/v3/drivers/middleware/stdlib"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	"go.uber.org/zap"

	"github.com/hyperjump/youyaku/internal/config"
	"github.com/hyperjump/youyaku/internal/models"
	"github.com/hyperjump/youyaku/internal/storage"
)

// maxBodyBytes caps summarize request bodies.
const maxBodyBytes = 16 << 20

// Summarizer handles summarize requests.
type Summarizer interface {
	Summarize(ctx context.Context, req *models.SummarizeRequest) (*models.SummarizeResponse, error)
}

// HistoryService searches and deletes archived summaries.
type HistoryService interface {
	Search(ctx context.Context, query *models.HistoryQuery) (*models.HistoryResponse, error)
	Forget(ctx context.Context, id string) error
}

// DocCounter reports how many summaries are searchable.
type DocCounter interface {
	DocCount() (uint64, error)
}

// InboxService lists watched inbox directories.
type InboxService interface {
	Directories() []string
}

// Server is the HTTP server for the Youyaku API.
type Server struct {
	engine  Summarizer
	history HistoryService
	storage storage.Storage
	config  *config.Config
	logger  *zap.Logger

	index   DocCounter
	inbox   InboxService
	metrics http.Handler

	server *http.Server
}

// Option configures optional server dependencies.
type Option func(*Server)

// WithIndex reports the search index size in /api/v1/status.
func WithIndex(idx DocCounter) Option {
	return func(s *Server) { s.index = idx }
}

// WithInbox lists watched directories in /api/v1/status.
func WithInbox(in InboxService) Option {
	return func(s *Server) { s.inbox = in }
}

// WithMetrics mounts h at /metrics.
func WithMetrics(h http.Handler) Option {
	return func(s *Server) { s.metrics = h }
}

// NewServer creates a server with the given dependencies.
func NewServer(
	engine Summarizer,
	history HistoryService,
	store storage.Storage,
	cfg *config.Config,
	logger *zap.Logger,
	opts ...Option,
) *Server {
	s := &Server{
		engine:  engine,
		history: history,
		storage: store,
		config:  cfg,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	return s
}

// Routes builds the router.
func (s *Server) Routes() http.Handler {
	cfg := s.config.Server

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", s.handleHealth)
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics)
	}

	r.Group(func(r chi.Router) {
		if cfg.RequestTimeout > 0 {
			r.Use(middleware.Timeout(cfg.RequestTimeout))
		}
		r.Use(middleware.Compress(5))

		r.Group(func(r chi.Router) {
			r.Use(s.rateLimit())
			r.Post("/summarize", s.handleSummarize)
			r.Post("/api/v1/summarize", s.handleSummarize)
		})

		r.Get("/api/v1/summaries", s.handleListSummaries)
		r.Get("/api/v1/summaries/search", s.handleSearchSummaries)
		r.Get("/api/v1/summaries/{id}", s.handleGetSummary)
		r.Delete("/api/v1/summaries/{id}", s.handleDeleteSummary)
		r.Get("/api/v1/status", s.handleStatus)
	})
	return r
}

// rateLimit limits summarize requests per client IP with an in-memory store.
func (s *Server) rateLimit() func(http.Handler) http.Handler {
	rl := s.config.Server.RateLimit
	if rl.Requests <= 0 || rl.Period <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	instance := limiter.New(memory.NewStore(), limiter.Rate{Period: rl.Period, Limit: rl.Requests})
	mw := limitmw.NewMiddleware(instance,
		limitmw.WithLimitReachedHandler(func(w http.ResponseWriter, r *http.Request) {
			s.logger.Warn("Rate limit reached", zap.String("remote", r.RemoteAddr))
			s.respondJSON(w, http.StatusTooManyRequests, errorResponse{
				Error: fmt.Sprintf("rate limit exceeded: %d requests per %s", rl.Requests, rl.Period),
				Kind:  "rate_limited",
			})
		}),
	)
	return mw.Handler
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
