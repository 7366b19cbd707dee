package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/hyperjump/youyaku/internal/models"
)

// apiClient talks to a running youyaku server so the CLI does not fight it for
// the SQLite and Bleve locks.
type apiClient struct {
	http *resty.Client
}

// apiError is the body the server sends with non-2xx responses.
type apiError struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

// historyPage is the body of GET /api/v1/summaries.
type historyPage struct {
	Summaries []*models.SummaryRecord `json:"summaries"`
	Total     int64                   `json:"total"`
	Offset    int                     `json:"offset"`
	Limit     int                     `json:"limit"`
}

func newAPIClient(serverURL string, timeout time.Duration) *apiClient {
	c := resty.New().
		SetBaseURL(strings.TrimRight(serverURL, "/")).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")
	return &apiClient{http: c}
}

// reachable reports whether the server answers /health within a short window.
func (c *apiClient) reachable(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	resp, err := c.http.R().SetContext(ctx).Get("/health")
	return err == nil && resp.IsSuccess()
}

func (c *apiClient) summarize(ctx context.Context, req *models.SummarizeRequest) (*models.SummarizeResponse, error) {
	var out models.SummarizeResponse
	var apiErr apiError
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&out).
		SetError(&apiErr).
		Post("/api/v1/summarize")
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	if resp.IsError() {
		return nil, serverError(resp.StatusCode(), &apiErr)
	}
	return &out, nil
}

func (c *apiClient) history(ctx context.Context, offset, limit int) (*historyPage, error) {
	var out historyPage
	var apiErr apiError
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"offset": strconv.Itoa(offset),
			"limit":  strconv.Itoa(limit),
		}).
		SetResult(&out).
		SetError(&apiErr).
		Get("/api/v1/summaries")
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	if resp.IsError() {
		return nil, serverError(resp.StatusCode(), &apiErr)
	}
	return &out, nil
}

func (c *apiClient) search(ctx context.Context, q *models.HistoryQuery) (*models.HistoryResponse, error) {
	var out models.HistoryResponse
	var apiErr apiError
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"q":         q.Query,
			"limit":     strconv.Itoa(q.Limit),
			"offset":    strconv.Itoa(q.Offset),
			"fuzzy":     strconv.FormatBool(q.FuzzyEnabled),
			"min_score": strconv.FormatFloat(q.MinScore, 'f', -1, 64),
		}).
		SetResult(&out).
		SetError(&apiErr).
		Get("/api/v1/summaries/search")
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	if resp.IsError() {
		return nil, serverError(resp.StatusCode(), &apiErr)
	}
	return &out, nil
}

func (c *apiClient) status(ctx context.Context) (*models.StatusResponse, error) {
	var out models.StatusResponse
	var apiErr apiError
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&out).
		SetError(&apiErr).
		Get("/api/v1/status")
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	if resp.IsError() {
		return nil, serverError(resp.StatusCode(), &apiErr)
	}
	return &out, nil
}

func serverError(code int, e *apiError) error {
	if e == nil || e.Error == "" {
		return fmt.Errorf("server returned %d", code)
	}
	if e.Kind != "" {
		return fmt.Errorf("server returned %d: %s (%s)", code, e.Error, e.Kind)
	}
	return fmt.Errorf("server returned %d: %s", code, e.Error)
}
