package models

import "time"

// FailureKind tags a failed pipeline run.
type FailureKind string

const (
	FailureEmptyInput         FailureKind = "empty_input"
	FailureInvalidRequest     FailureKind = "invalid_request"
	FailureTokenizer          FailureKind = "tokenizer"
	FailureChunkSummarization FailureKind = "chunk_summarization"
	FailureRecursionLimit     FailureKind = "recursion_limit"
	FailureNoProgress         FailureKind = "no_progress"
	FailureModel              FailureKind = "model"
	FailureCanceled           FailureKind = "canceled"
	FailureInternal           FailureKind = "internal"
)

// Failure describes why a run produced no summary.
type Failure struct {
	Kind       FailureKind `json:"kind"`
	Message    string      `json:"message"`
	ChunkIndex *int        `json:"chunk_index,omitempty"`
	Depth      *int        `json:"depth,omitempty"`
}

// PipelineResult is either a summary or a failure. It is never mutated after it is built.
type PipelineResult struct {
	Summary string   `json:"summary,omitempty"`
	Failure *Failure `json:"failure,omitempty"`
	Stats   RunStats `json:"stats"`
}

// OK reports whether the run produced a summary.
func (r *PipelineResult) OK() bool {
	return r != nil && r.Failure == nil
}

// RunStats is bookkeeping collected by the orchestrator.
type RunStats struct {
	Tokens     int           `json:"tokens"`
	Chunks     int           `json:"chunks"`
	Depth      int           `json:"depth"`
	ModelCalls int           `json:"model_calls"`
	Retries    int           `json:"retries"`
	Duration   time.Duration `json:"duration"`
}

// SummarizeRequest is the transport-level request body.
type SummarizeRequest struct {
	Text   string `json:"text"`
	Length string `json:"length,omitempty"`
	Mode   string `json:"mode,omitempty"`
	// Source identifies where the text came from (file id, "api", "cli").
	Source string `json:"source,omitempty"`
}

// SummarizeResponse is returned for a successful request.
type SummarizeResponse struct {
	OK             bool   `json:"ok"`
	ID             string `json:"id"`
	Title          string `json:"title"`
	Summary        string `json:"summary"`
	OriginalLength int    `json:"original_length"`
	SummaryLength  int    `json:"summary_length"`
	TokenCount     int    `json:"token_count"`
	Chunks         int    `json:"chunks"`
	Depth          int    `json:"depth"`
	DurationMS     int64  `json:"duration_ms"`
}

// SummaryRecord is what the persistence sink stores for every completed request.
type SummaryRecord struct {
	ID         string         `json:"id" db:"id"`
	Title      string         `json:"title" db:"title"`
	Text       string         `json:"text" db:"text"`
	Summary    string         `json:"summary" db:"summary"`
	Success    bool           `json:"success" db:"success"`
	Error      string         `json:"error,omitempty" db:"error"`
	ErrorKind  FailureKind    `json:"error_kind,omitempty" db:"error_kind"`
	Length     LengthCategory `json:"length" db:"length"`
	Mode       Mode           `json:"mode" db:"mode"`
	Source     string         `json:"source,omitempty" db:"source"`
	TokenCount int            `json:"token_count" db:"token_count"`
	CreatedAt  time.Time      `json:"created_at" db:"created_at"`
}

// StatusResponse describes the archive, index and active configuration.
type StatusResponse struct {
	Summaries          int64         `json:"summaries"`
	IndexSize          *uint64       `json:"index_size,omitempty"`
	LengthTableVersion string        `json:"length_table_version"`
	InboxDirectories   []string      `json:"inbox_directories,omitempty"`
	DiskUsageBytes     *int64        `json:"disk_usage_bytes,omitempty"`
	Config             *StatusConfig `json:"config,omitempty"`
}

// StatusConfig echoes the settings that shape summaries.
type StatusConfig struct {
	ModelProvider  string `json:"model_provider"`
	ModelName      string `json:"model_name,omitempty"`
	Encoding       string `json:"encoding"`
	MaxTokens      int    `json:"max_tokens"`
	MaxDepth       int    `json:"max_depth"`
	MaxConcurrency int    `json:"max_concurrency"`
	DatabasePath   string `json:"database_path,omitempty"`
	BleveIndexPath string `json:"bleve_index_path,omitempty"`
}
