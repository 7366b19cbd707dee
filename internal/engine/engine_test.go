package engine

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/hyperjump/youyaku/internal/config"
	"github.com/hyperjump/youyaku/internal/model"
	"github.com/hyperjump/youyaku/internal/models"
	"github.com/hyperjump/youyaku/internal/pipeline"
	"github.com/hyperjump/youyaku/internal/tokenizer"
)

type memRecorder struct {
	mu      sync.Mutex
	records []*models.SummaryRecord
	reject  bool
}

func (r *memRecorder) Submit(rec *models.SummaryRecord) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.reject {
		return false
	}
	r.records = append(r.records, rec)
	return true
}

func (r *memRecorder) Records() []*models.SummaryRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*models.SummaryRecord(nil), r.records...)
}

type stubPipeline struct {
	summary string
	stats   models.RunStats
	err     error
	docs    []*models.Document
}

func (s *stubPipeline) Summarize(_ context.Context, doc *models.Document) (string, models.RunStats, error) {
	s.docs = append(s.docs, doc)
	return s.summary, s.stats, s.err
}

func words(n int) string {
	w := make([]string, n)
	for i := range w {
		w[i] = "word"
	}
	return strings.Join(w, " ")
}

func TestEngine_Summarize(t *testing.T) {
	cfg := config.PipelineConfig{MaxTokens: 1024, ShortInputWords: 10}
	p := pipeline.New(tokenizer.NewWordCounter(), model.NewMockSummarizer(), cfg)
	rec := &memRecorder{}
	e := NewEngine(p, &cfg, WithRecorder(rec))

	text := "The committee met on Tuesday to review the budget. " + words(40) + "."
	resp, err := e.Summarize(context.Background(), &models.SummarizeRequest{Text: text, Length: "short", Source: "api"})
	if err != nil {
		t.Fatal(err)
	}
	if !resp.OK || resp.ID == "" {
		t.Errorf("response not ok: %+v", resp)
	}
	if resp.SummaryLength != 30 {
		t.Errorf("summary length = %d, want 30 (short max)", resp.SummaryLength)
	}
	if resp.OriginalLength != 49 || resp.TokenCount != 49 {
		t.Errorf("original_length=%d token_count=%d, want 49", resp.OriginalLength, resp.TokenCount)
	}
	if !strings.HasPrefix(resp.Title, "The committee met on Tuesday to review the budget. word word word") {
		t.Errorf("title = %q", resp.Title)
	}
	if !strings.HasSuffix(resp.Title, "...") {
		t.Errorf("title should end with ellipsis: %q", resp.Title)
	}

	got := rec.Records()
	if len(got) != 1 {
		t.Fatalf("recorded %d, want 1", len(got))
	}
	r := got[0]
	if r.ID != resp.ID || !r.Success || r.Summary != resp.Summary || r.Title != resp.Title {
		t.Errorf("record does not match response: %+v", r)
	}
	if r.Length != models.LengthShort || r.Mode != models.ModeReliable || r.Source != "api" {
		t.Errorf("record request fields: %+v", r)
	}
	if r.CreatedAt.IsZero() {
		t.Error("record missing created_at")
	}
}

func TestEngine_Summarize_InvalidRequest(t *testing.T) {
	stub := &stubPipeline{}
	rec := &memRecorder{}
	e := NewEngine(stub, nil, WithRecorder(rec))

	for _, req := range []*models.SummarizeRequest{
		nil,
		{Text: "hello", Length: "huge"},
		{Text: "hello", Mode: "wild"},
	} {
		_, err := e.Summarize(context.Background(), req)
		if !errors.Is(err, pipeline.ErrInvalidRequest) {
			t.Errorf("request %+v: got %v, want ErrInvalidRequest", req, err)
		}
		if pipeline.KindOf(err) != models.FailureInvalidRequest {
			t.Errorf("kind = %s", pipeline.KindOf(err))
		}
	}
	if len(stub.docs) != 0 || len(rec.Records()) != 0 {
		t.Error("invalid requests must not reach the pipeline or the archive")
	}
}

func TestEngine_Summarize_EmptyInput(t *testing.T) {
	stub := &stubPipeline{}
	rec := &memRecorder{}
	e := NewEngine(stub, nil, WithRecorder(rec))

	_, err := e.Summarize(context.Background(), &models.SummarizeRequest{Text: " \n\t"})
	if !errors.Is(err, pipeline.ErrEmptyInput) {
		t.Errorf("got %v, want ErrEmptyInput", err)
	}
	if len(stub.docs) != 0 || len(rec.Records()) != 0 {
		t.Error("empty input must not reach the pipeline or the archive")
	}
}

func TestEngine_Summarize_FailureIsRecorded(t *testing.T) {
	failure := &pipeline.ChunkSummarizationError{ChunkIndex: 2, Err: &model.Error{Provider: "fake", Err: errors.New("boom")}}
	stub := &stubPipeline{err: failure, stats: models.RunStats{Tokens: 5000}}
	rec := &memRecorder{}
	e := NewEngine(stub, nil, WithRecorder(rec))

	resp, err := e.Summarize(context.Background(), &models.SummarizeRequest{Text: "some long text", Mode: "creative"})
	if resp != nil {
		t.Errorf("expected nil response, got %+v", resp)
	}
	if !errors.Is(err, failure) {
		t.Errorf("pipeline error should be returned unchanged, got %v", err)
	}
	got := rec.Records()
	if len(got) != 1 {
		t.Fatalf("recorded %d, want 1", len(got))
	}
	r := got[0]
	if r.Success || r.ErrorKind != models.FailureChunkSummarization || r.Error == "" {
		t.Errorf("failure record: %+v", r)
	}
	if r.TokenCount != 5000 || r.Mode != models.ModeCreative {
		t.Errorf("failure record fields: %+v", r)
	}
}

func TestEngine_Summarize_ShortInputWarning(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	stub := &stubPipeline{summary: "Tiny.", stats: models.RunStats{Tokens: 3}}
	e := NewEngine(stub, &config.PipelineConfig{ShortInputWords: 10}, WithLogger(zap.New(core)))

	resp, err := e.Summarize(context.Background(), &models.SummarizeRequest{Text: "only three words"})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Title != "Tiny." {
		t.Errorf("title ending in a period keeps no ellipsis, got %q", resp.Title)
	}
	if logs.FilterMessageSnippet("Short input").Len() != 1 {
		t.Errorf("expected one short input warning, got %v", logs.All())
	}
}

func TestEngine_Summarize_RecorderFull(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	stub := &stubPipeline{summary: "A summary of the input text.", stats: models.RunStats{Tokens: 20}}
	e := NewEngine(stub, nil, WithRecorder(&memRecorder{reject: true}), WithLogger(zap.New(core)))

	if _, err := e.Summarize(context.Background(), &models.SummarizeRequest{Text: words(20)}); err != nil {
		t.Fatalf("a full archive must not fail the request: %v", err)
	}
	if logs.FilterMessage("Summary record not archived").Len() != 1 {
		t.Error("expected a warning for the dropped record")
	}
}
