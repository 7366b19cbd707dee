package model

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/hyperjump/youyaku/internal/models"
)

// HTTPSummarizer calls a summarization endpoint that speaks the Hugging Face
// inference format: {"inputs", "parameters"} in, [{"summary_text"}] out.
type HTTPSummarizer struct {
	client *resty.Client
	path   string
}

type hfParameters struct {
	MinLength   int     `json:"min_length"`
	MaxLength   int     `json:"max_length"`
	DoSample    bool    `json:"do_sample"`
	NumBeams    int     `json:"num_beams,omitempty"`
	Temperature float64 `json:"temperature,omitempty"`
	TopK        int     `json:"top_k,omitempty"`
	TopP        float64 `json:"top_p,omitempty"`
}

type hfRequest struct {
	Inputs     string       `json:"inputs"`
	Parameters hfParameters `json:"parameters"`
}

type hfSummary struct {
	SummaryText string `json:"summary_text"`
}

type hfError struct {
	Error string `json:"error"`
}

// NewHTTPSummarizer creates a client for the endpoint at baseURL. An empty
// apiKey sends no Authorization header.
func NewHTTPSummarizer(baseURL, apiKey string, timeout time.Duration) (*HTTPSummarizer, error) {
	if baseURL == "" {
		return nil, errors.New("http summarizer requires a base URL")
	}
	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	if apiKey != "" {
		client.SetAuthToken(apiKey)
	}
	return &HTTPSummarizer{client: client, path: "/"}, nil
}

// Summarize posts text to the endpoint. Word bounds are sent as min_length and
// max_length, the way the endpoint's generate call expects them.
func (h *HTTPSummarizer) Summarize(ctx context.Context, text string, target models.LengthSpec, preset models.Preset) (string, error) {
	body := hfRequest{
		Inputs: text,
		Parameters: hfParameters{
			MinLength:   target.MinWords,
			MaxLength:   target.MaxWords,
			DoSample:    preset.DoSample,
			NumBeams:    preset.NumBeams,
			Temperature: preset.Temperature,
			TopK:        preset.TopK,
			TopP:        preset.TopP,
		},
	}
	var out []hfSummary
	resp, err := h.client.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&out).
		SetError(&hfError{}).
		Post(h.path)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		return "", wrap(h.Name(), err)
	}
	if resp.IsError() {
		if e, ok := resp.Error().(*hfError); ok && e.Error != "" {
			return "", wrap(h.Name(), fmt.Errorf("status %d: %s", resp.StatusCode(), e.Error))
		}
		return "", wrap(h.Name(), fmt.Errorf("status %d", resp.StatusCode()))
	}
	if len(out) == 0 || strings.TrimSpace(out[0].SummaryText) == "" {
		return "", wrap(h.Name(), errEmptyOutput)
	}
	return strings.TrimSpace(out[0].SummaryText), nil
}

// Name returns "http".
func (h *HTTPSummarizer) Name() string { return "http" }

// Close is a no-op; the underlying client holds no resources that need release.
func (h *HTTPSummarizer) Close() error { return nil }
