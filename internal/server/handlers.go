package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hyperjump/youyaku/internal/models"
	"github.com/hyperjump/youyaku/internal/pipeline"
	"github.com/hyperjump/youyaku/internal/storage"
)

// errorResponse is the body of every non-2xx response.
type errorResponse struct {
	OK         bool   `json:"ok"`
	Error      string `json:"error"`
	Kind       string `json:"kind,omitempty"`
	ChunkIndex *int   `json:"chunk_index,omitempty"`
	Depth      *int   `json:"depth,omitempty"`
}

func (s *Server) handleSummarize(w http.ResponseWriter, r *http.Request) {
	var req models.SummarizeRequest
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Source == "" {
		req.Source = "api"
	}

	resp, err := s.engine.Summarize(r.Context(), &req)
	if err != nil {
		s.respondFailure(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListSummaries(w http.ResponseWriter, r *http.Request) {
	offset := queryInt(r, "offset", 0)
	limit := queryInt(r, "limit", s.config.Search.DefaultLimit)
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 || limit > s.config.Search.MaxLimit {
		limit = s.config.Search.MaxLimit
	}

	ctx := r.Context()
	records, err := s.storage.ListRecords(ctx, offset, limit)
	if err != nil {
		s.logger.Error("list summaries failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	total, err := s.storage.CountRecords(ctx)
	if err != nil {
		s.logger.Error("count summaries failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if records == nil {
		records = []*models.SummaryRecord{}
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"summaries": records,
		"total":     total,
		"offset":    offset,
		"limit":     limit,
	})
}

func (s *Server) handleSearchSummaries(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := &models.HistoryQuery{
		Query:        q.Get("q"),
		Limit:        queryInt(r, "limit", 0),
		Offset:       queryInt(r, "offset", 0),
		FuzzyEnabled: q.Get("fuzzy") == "true" || q.Get("fuzzy") == "1",
	}
	if v := q.Get("min_score"); v != "" {
		score, err := strconv.ParseFloat(v, 64)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "min_score must be a number")
			return
		}
		query.MinScore = score
	}
	if err := query.Validate(s.config.Search.DefaultLimit, s.config.Search.MaxLimit); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.logger.Debug("history search request", zap.String("query", query.Query), zap.Int("limit", query.Limit))
	resp, err := s.history.Search(r.Context(), query)
	if err != nil {
		s.logger.Error("history search failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetSummary(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	rec, err := s.storage.GetRecord(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		s.respondError(w, http.StatusNotFound, "summary not found")
		return
	}
	if err != nil {
		s.logger.Error("get summary failed", zap.String("id", id), zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, rec)
}

func (s *Server) handleDeleteSummary(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.logger.Debug("delete summary request", zap.String("id", id))
	err := s.history.Forget(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		s.respondError(w, http.StatusNotFound, "summary not found")
		return
	}
	if err != nil {
		s.logger.Error("delete summary failed", zap.String("id", id), zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"id": id, "status": "deleted"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	count, err := s.storage.CountRecords(r.Context())
	if err != nil {
		s.logger.Error("status: count summaries failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	cfg := s.config
	resp := &models.StatusResponse{
		Summaries:          count,
		LengthTableVersion: models.LengthTableVersion,
		Config: &models.StatusConfig{
			ModelProvider:  cfg.Model.Provider,
			ModelName:      cfg.Model.Name,
			Encoding:       cfg.Tokenizer.Encoding,
			MaxTokens:      cfg.Pipeline.MaxTokens,
			MaxDepth:       cfg.Pipeline.MaxDepth,
			MaxConcurrency: cfg.Pipeline.MaxConcurrency,
			DatabasePath:   cfg.Storage.DatabasePath,
			BleveIndexPath: cfg.Storage.BleveIndexPath,
		},
	}
	if s.index != nil {
		if n, err := s.index.DocCount(); err == nil {
			resp.IndexSize = &n
		}
	}
	if s.inbox != nil {
		resp.InboxDirectories = s.inbox.Directories()
	}
	if usage, err := storage.DiskUsage(cfg.Storage.DatabasePath, cfg.Storage.BleveIndexPath); err == nil {
		total := usage.Total()
		resp.DiskUsageBytes = &total
	}
	s.respondJSON(w, http.StatusOK, resp)
}

// respondFailure maps a summarize error to a status code and a tagged body.
func (s *Server) respondFailure(w http.ResponseWriter, err error) {
	f := pipeline.FailureFrom(err)
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("summarize failed", zap.String("kind", string(f.Kind)), zap.Error(err))
	}
	s.respondJSON(w, status, errorResponse{
		Error:      f.Message,
		Kind:       string(f.Kind),
		ChunkIndex: f.ChunkIndex,
		Depth:      f.Depth,
	})
}

// statusFor maps failure kinds to HTTP status codes.
func statusFor(err error) int {
	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout
	}
	switch pipeline.KindOf(err) {
	case models.FailureEmptyInput, models.FailureInvalidRequest:
		return http.StatusBadRequest
	case models.FailureModel, models.FailureChunkSummarization:
		return http.StatusBadGateway
	case models.FailureRecursionLimit, models.FailureNoProgress:
		return http.StatusUnprocessableEntity
	case models.FailureTokenizer, models.FailureCanceled:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func queryInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, errorResponse{Error: message})
}
