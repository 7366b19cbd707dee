package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/youyaku/internal/config"
	"github.com/hyperjump/youyaku/internal/engine"
	"github.com/hyperjump/youyaku/internal/keyword"
	"github.com/hyperjump/youyaku/internal/metrics"
	"github.com/hyperjump/youyaku/internal/model"
	"github.com/hyperjump/youyaku/internal/models"
	"github.com/hyperjump/youyaku/internal/pipeline"
	"github.com/hyperjump/youyaku/internal/search"
	"github.com/hyperjump/youyaku/internal/storage"
	"github.com/hyperjump/youyaku/internal/tokenizer"
)

type syncRecorder struct {
	store storage.Storage
	index keyword.SummaryIndex
}

// Submit writes synchronously so tests can read back immediately.
func (r *syncRecorder) Submit(rec *models.SummaryRecord) bool {
	ctx := context.Background()
	if err := r.store.SaveRecord(ctx, rec); err != nil {
		return false
	}
	if rec.Success {
		_ = r.index.Index(ctx, rec)
	}
	return true
}

type fixture struct {
	srv     *Server
	handler http.Handler
	store   storage.Storage
	index   keyword.SummaryIndex
}

func newFixture(t *testing.T, mutate func(*config.Config), opts ...Option) *fixture {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.Config{}
	cfg.Storage.DatabasePath = filepath.Join(dir, "summaries.db")
	cfg.Storage.BleveIndexPath = filepath.Join(dir, "bleve")
	if mutate != nil {
		mutate(cfg)
	}
	config.ApplyDefaults(cfg)

	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	idx, err := keyword.NewMemoryBleveIndex()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { idx.Close() })

	p := pipeline.New(tokenizer.NewWordCounter(), model.NewMockSummarizer(), cfg.Pipeline)
	eng := engine.NewEngine(p, &cfg.Pipeline, engine.WithRecorder(&syncRecorder{store: store, index: idx}))
	history := search.NewEngine(store, idx, &cfg.Search)

	opts = append([]Option{WithIndex(idx)}, opts...)
	srv := NewServer(eng, history, store, cfg, zap.NewNop(), opts...)
	return &fixture{srv: srv, handler: srv.Routes(), store: store, index: idx}
}

func (f *fixture) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	r := httptest.NewRequest(method, path, &buf)
	r.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.handler.ServeHTTP(w, r)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
}

func TestHandleSummarize(t *testing.T) {
	f := newFixture(t, nil)
	text := "Rivers in the north flooded after a week of rain. Farmers lost crops and roads closed across the valley."

	for _, path := range []string{"/api/v1/summarize", "/summarize"} {
		w := f.do(t, http.MethodPost, path, map[string]string{"text": text, "length": "short"})
		if w.Code != http.StatusOK {
			t.Fatalf("%s: status %d body %s", path, w.Code, w.Body.String())
		}
		var resp models.SummarizeResponse
		decode(t, w, &resp)
		if !resp.OK || resp.ID == "" || resp.Summary == "" {
			t.Errorf("%s: bad response %+v", path, resp)
		}
		if resp.OriginalLength != 19 || resp.TokenCount != 19 {
			t.Errorf("%s: original_length=%d token_count=%d", path, resp.OriginalLength, resp.TokenCount)
		}
		if !strings.HasSuffix(resp.Title, "...") {
			t.Errorf("%s: title %q", path, resp.Title)
		}

		rec, err := f.store.GetRecord(context.Background(), resp.ID)
		if err != nil {
			t.Fatalf("%s: record not archived: %v", path, err)
		}
		if rec.Source != "api" || !rec.Success {
			t.Errorf("%s: archived record %+v", path, rec)
		}
	}
}

func TestHandleSummarize_BadRequests(t *testing.T) {
	f := newFixture(t, nil)
	tests := []struct {
		name string
		body interface{}
		kind string
	}{
		{"empty text", map[string]string{"text": ""}, "empty_input"},
		{"invalid length", map[string]string{"text": "hello", "length": "epic"}, "invalid_request"},
		{"invalid mode", map[string]string{"text": "hello", "mode": "random"}, "invalid_request"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := f.do(t, http.MethodPost, "/api/v1/summarize", tt.body)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("status %d, want 400", w.Code)
			}
			var resp errorResponse
			decode(t, w, &resp)
			if resp.OK || resp.Kind != tt.kind || resp.Error == "" {
				t.Errorf("body %+v, want kind %s", resp, tt.kind)
			}
		})
	}

	r := httptest.NewRequest(http.MethodPost, "/api/v1/summarize", strings.NewReader("{not json"))
	w := httptest.NewRecorder()
	f.handler.ServeHTTP(w, r)
	if w.Code != http.StatusBadRequest {
		t.Errorf("malformed body: status %d", w.Code)
	}
}

type errSummarizer struct{ err error }

func (e errSummarizer) Summarize(context.Context, *models.SummarizeRequest) (*models.SummarizeResponse, error) {
	return nil, e.err
}

func TestHandleSummarize_FailureStatus(t *testing.T) {
	modelErr := &model.Error{Provider: "http", Err: errors.New("upstream 500")}
	tests := []struct {
		err    error
		status int
		kind   string
	}{
		{modelErr, http.StatusBadGateway, "model"},
		{&pipeline.ChunkSummarizationError{ChunkIndex: 3, Depth: 1, Err: modelErr}, http.StatusBadGateway, "chunk_summarization"},
		{&pipeline.RecursionLimitError{Depth: 3, MaxDepth: 3, Tokens: 2000}, http.StatusUnprocessableEntity, "recursion_limit"},
		{&pipeline.NoProgressError{Depth: 1, Previous: 900, Current: 950}, http.StatusUnprocessableEntity, "no_progress"},
		{&tokenizer.Error{Encoding: "cl100k_base", Err: errors.New("bad")}, http.StatusServiceUnavailable, "tokenizer"},
		{context.Canceled, http.StatusServiceUnavailable, "canceled"},
		{context.DeadlineExceeded, http.StatusGatewayTimeout, "canceled"},
		{errors.New("boom"), http.StatusInternalServerError, "internal"},
	}
	for _, tt := range tests {
		t.Run(tt.kind+"_"+fmt.Sprint(tt.status), func(t *testing.T) {
			cfg := &config.Config{}
			config.ApplyDefaults(cfg)
			srv := NewServer(errSummarizer{tt.err}, nil, nil, cfg, zap.NewNop())
			r := httptest.NewRequest(http.MethodPost, "/api/v1/summarize", strings.NewReader(`{"text":"x"}`))
			w := httptest.NewRecorder()
			srv.handleSummarize(w, r)
			if w.Code != tt.status {
				t.Errorf("status %d, want %d", w.Code, tt.status)
			}
			var resp errorResponse
			decode(t, w, &resp)
			if resp.Kind != tt.kind {
				t.Errorf("kind %q, want %q", resp.Kind, tt.kind)
			}
		})
	}
}

func TestHandleSummarize_ChunkFailureCarriesIndex(t *testing.T) {
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	err := &pipeline.ChunkSummarizationError{ChunkIndex: 4, Depth: 0, Err: &model.Error{Provider: "x", Err: errors.New("down")}}
	srv := NewServer(errSummarizer{err}, nil, nil, cfg, zap.NewNop())
	w := httptest.NewRecorder()
	srv.handleSummarize(w, httptest.NewRequest(http.MethodPost, "/summarize", strings.NewReader(`{"text":"x"}`)))
	var resp errorResponse
	decode(t, w, &resp)
	if resp.ChunkIndex == nil || *resp.ChunkIndex != 4 || resp.Depth == nil || *resp.Depth != 0 {
		t.Errorf("chunk index/depth missing: %+v", resp)
	}
}

func TestSummaries_ListGetDelete(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, id := range []string{"old", "mid", "new"} {
		rec := &models.SummaryRecord{ID: id, Title: "Title " + id, Summary: "summary about tides " + id, Success: true, CreatedAt: base.Add(time.Duration(i) * time.Hour)}
		if err := f.store.SaveRecord(ctx, rec); err != nil {
			t.Fatal(err)
		}
		if err := f.index.Index(ctx, rec); err != nil {
			t.Fatal(err)
		}
	}

	w := f.do(t, http.MethodGet, "/api/v1/summaries?limit=2", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list status %d", w.Code)
	}
	var list struct {
		Summaries []models.SummaryRecord `json:"summaries"`
		Total     int                    `json:"total"`
	}
	decode(t, w, &list)
	if list.Total != 3 || len(list.Summaries) != 2 || list.Summaries[0].ID != "new" {
		t.Errorf("list = %+v", list)
	}

	w = f.do(t, http.MethodGet, "/api/v1/summaries/mid", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get status %d", w.Code)
	}
	var rec models.SummaryRecord
	decode(t, w, &rec)
	if rec.ID != "mid" || rec.Title != "Title mid" {
		t.Errorf("get = %+v", rec)
	}

	if w := f.do(t, http.MethodGet, "/api/v1/summaries/missing", nil); w.Code != http.StatusNotFound {
		t.Errorf("missing: status %d", w.Code)
	}

	if w := f.do(t, http.MethodDelete, "/api/v1/summaries/mid", nil); w.Code != http.StatusOK {
		t.Errorf("delete: status %d", w.Code)
	}
	if w := f.do(t, http.MethodDelete, "/api/v1/summaries/mid", nil); w.Code != http.StatusNotFound {
		t.Errorf("second delete: status %d", w.Code)
	}
	if n, _ := f.index.DocCount(); n != 2 {
		t.Errorf("index has %d docs after delete, want 2", n)
	}
}

func TestSummaries_Search(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	rec := &models.SummaryRecord{ID: "s1", Title: "Harvest report", Summary: "The harvest was late.", Success: true, CreatedAt: time.Now()}
	if err := f.store.SaveRecord(ctx, rec); err != nil {
		t.Fatal(err)
	}
	if err := f.index.Index(ctx, rec); err != nil {
		t.Fatal(err)
	}

	w := f.do(t, http.MethodGet, "/api/v1/summaries/search?q=harvest", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status %d body %s", w.Code, w.Body.String())
	}
	var resp models.HistoryResponse
	decode(t, w, &resp)
	if len(resp.Results) != 1 || resp.Results[0].Record.ID != "s1" {
		t.Errorf("search = %+v", resp)
	}

	if w := f.do(t, http.MethodGet, "/api/v1/summaries/search", nil); w.Code != http.StatusBadRequest {
		t.Errorf("missing q: status %d", w.Code)
	}
	if w := f.do(t, http.MethodGet, "/api/v1/summaries/search?q=x&min_score=abc", nil); w.Code != http.StatusBadRequest {
		t.Errorf("bad min_score: status %d", w.Code)
	}
}

type fakeInbox struct{ dirs []string }

func (f fakeInbox) Directories() []string { return f.dirs }

func TestHandleStatus(t *testing.T) {
	f := newFixture(t, func(c *config.Config) { c.Model.Name = "bart-large-cnn" }, WithInbox(fakeInbox{dirs: []string{"/inbox"}}))
	w := f.do(t, http.MethodGet, "/api/v1/status", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status %d", w.Code)
	}
	var resp map[string]interface{}
	decode(t, w, &resp)
	if resp["summaries"] != float64(0) || resp["index_size"] != float64(0) {
		t.Errorf("counts: %+v", resp)
	}
	if resp["length_table_version"] != models.LengthTableVersion {
		t.Errorf("length table version: %v", resp["length_table_version"])
	}
	cfg, _ := resp["config"].(map[string]interface{})
	if cfg["model_provider"] != "mock" || cfg["model_name"] != "bart-large-cnn" || cfg["max_tokens"] != float64(1024) {
		t.Errorf("config echo: %+v", cfg)
	}
	if dirs, _ := resp["inbox_directories"].([]interface{}); len(dirs) != 1 {
		t.Errorf("inbox directories: %v", resp["inbox_directories"])
	}
	if _, ok := resp["disk_usage_bytes"]; !ok {
		t.Error("expected disk usage")
	}
}

func TestHealthAndMetrics(t *testing.T) {
	sink := metrics.NewSink()
	f := newFixture(t, nil, WithMetrics(sink.Handler()))
	if w := f.do(t, http.MethodGet, "/health", nil); w.Code != http.StatusOK {
		t.Errorf("health: status %d", w.Code)
	}
	sink.Emit(pipeline.Event{Type: pipeline.EventCompleted, Chunks: 2})
	w := f.do(t, http.MethodGet, "/metrics", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("metrics: status %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "youyaku_requests_total") {
		t.Error("metrics output missing youyaku_requests_total")
	}
}

func TestRateLimit(t *testing.T) {
	f := newFixture(t, func(c *config.Config) {
		c.Server.RateLimit = config.RateLimitConfig{Requests: 2, Period: time.Minute}
	})
	body := map[string]string{"text": "A short note about the weather today in the hills."}
	for i := 0; i < 2; i++ {
		if w := f.do(t, http.MethodPost, "/api/v1/summarize", body); w.Code != http.StatusOK {
			t.Fatalf("request %d: status %d", i, w.Code)
		}
	}
	w := f.do(t, http.MethodPost, "/api/v1/summarize", body)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("third request: status %d, want 429", w.Code)
	}
	var resp errorResponse
	decode(t, w, &resp)
	if resp.Kind != "rate_limited" {
		t.Errorf("kind = %q", resp.Kind)
	}
	if w := f.do(t, http.MethodGet, "/api/v1/summaries", nil); w.Code != http.StatusOK {
		t.Errorf("history routes are not rate limited: status %d", w.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	f := newFixture(t, nil)
	r := httptest.NewRequest(http.MethodOptions, "/api/v1/summarize", nil)
	r.Header.Set("Origin", "http://localhost:3000")
	r.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	f.handler.ServeHTTP(w, r)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("allow origin = %q", got)
	}
	if got := w.Header().Get("Access-Control-Allow-Credentials"); got != "true" {
		t.Errorf("allow credentials = %q", got)
	}

	r = httptest.NewRequest(http.MethodOptions, "/api/v1/summarize", nil)
	r.Header.Set("Origin", "http://evil.example")
	r.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w = httptest.NewRecorder()
	f.handler.ServeHTTP(w, r)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("unknown origin allowed: %q", got)
	}
}
