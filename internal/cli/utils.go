// Package cli formats Youyaku results for the terminal.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/hyperjump/youyaku/internal/models"
	"github.com/hyperjump/youyaku/pkg/utils"
)

// OutputFormat selects text or JSON output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseOutputFormat accepts "text", "json", or "" (text).
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(strings.ToLower(s)) {
	case "", OutputText:
		return OutputText, nil
	case OutputJSON:
		return OutputJSON, nil
	default:
		return "", fmt.Errorf("unknown output format %q: use text or json", s)
	}
}

const rule = "─────────────────────────────────────────────────────────"

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteSummary writes one summarize response.
func WriteSummary(w io.Writer, resp *models.SummarizeResponse, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, resp)
	}
	fmt.Fprintf(w, "%s\n%s\n\n", resp.Title, rule)
	fmt.Fprintf(w, "%s\n\n", resp.Summary)
	fmt.Fprintf(w, "%d → %d words | %d tokens | %d chunks | depth %d | %dms\n",
		resp.OriginalLength, resp.SummaryLength, resp.TokenCount, resp.Chunks, resp.Depth, resp.DurationMS)
	if resp.ID != "" {
		fmt.Fprintf(w, "ID: %s\n", resp.ID)
	}
	return nil
}

// WriteHistory writes archived summaries, newest first.
func WriteHistory(w io.Writer, records []*models.SummaryRecord, format OutputFormat) error {
	if format == OutputJSON {
		if records == nil {
			records = []*models.SummaryRecord{}
		}
		return writeJSON(w, records)
	}
	if len(records) == 0 {
		fmt.Fprintln(w, "No summaries yet.")
		return nil
	}
	for _, rec := range records {
		writeRecord(w, rec)
	}
	return nil
}

func writeRecord(w io.Writer, rec *models.SummaryRecord) {
	fmt.Fprintln(w, rule)
	status := "ok"
	if !rec.Success {
		status = "failed: " + string(rec.ErrorKind)
	}
	fmt.Fprintf(w, "%s  %s  [%s/%s] %s\n",
		rec.CreatedAt.Local().Format("2006-01-02 15:04"), rec.ID, rec.Length, rec.Mode, status)
	if rec.Success {
		fmt.Fprintf(w, "Title: %s\n", rec.Title)
		fmt.Fprintf(w, "\n%s\n\n", TruncateWords(rec.Summary, 40))
	} else if rec.Error != "" {
		fmt.Fprintf(w, "Error: %s\n\n", rec.Error)
	}
}

// WriteSearchResults writes a history search response.
func WriteSearchResults(w io.Writer, response *models.HistoryResponse, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, response)
	}
	fmt.Fprintf(w, "\nFound %d results for %q in %dms\n\n", response.Total, response.Query, response.QueryTime)
	if len(response.Suggestions) > 0 {
		fmt.Fprintf(w, "Did you mean: %s?\n\n", strings.Join(response.Suggestions, ", "))
	}
	for _, hit := range response.Results {
		fmt.Fprintln(w, rule)
		fmt.Fprintf(w, "Rank: %d | Score: %.4f | ID: %s\n", hit.Rank, hit.Score, hit.Record.ID)
		fmt.Fprintf(w, "Title: %s\n", hit.Record.Title)
		snippet := hit.Snippet
		if snippet == "" {
			snippet = utils.Truncate(hit.Record.Summary, 200)
		}
		fmt.Fprintf(w, "\n%s\n\n", snippet)
	}
	return nil
}

// WriteStatus writes archive, index and configuration status.
func WriteStatus(w io.Writer, status *models.StatusResponse, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, status)
	}
	fmt.Fprintf(w, "Summaries:      %d\n", status.Summaries)
	if status.IndexSize != nil {
		fmt.Fprintf(w, "Indexed:        %d\n", *status.IndexSize)
	}
	fmt.Fprintf(w, "Length table:   %s\n", status.LengthTableVersion)
	if status.DiskUsageBytes != nil {
		fmt.Fprintf(w, "Disk usage:     %s\n", formatBytes(*status.DiskUsageBytes))
	}
	for _, dir := range status.InboxDirectories {
		fmt.Fprintf(w, "Inbox:          %s\n", dir)
	}
	if c := status.Config; c != nil {
		model := c.ModelProvider
		if c.ModelName != "" {
			model += " (" + c.ModelName + ")"
		}
		fmt.Fprintf(w, "Model:          %s\n", model)
		fmt.Fprintf(w, "Tokenizer:      %s\n", c.Encoding)
		fmt.Fprintf(w, "Max tokens:     %d\n", c.MaxTokens)
		fmt.Fprintf(w, "Max depth:      %d\n", c.MaxDepth)
		fmt.Fprintf(w, "Concurrency:    %d\n", c.MaxConcurrency)
		if c.DatabasePath != "" {
			fmt.Fprintf(w, "Database:       %s\n", c.DatabasePath)
		}
		if c.BleveIndexPath != "" {
			fmt.Fprintf(w, "Search index:   %s\n", c.BleveIndexPath)
		}
	}
	return nil
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

// TruncateWords returns up to maxWords from the space-separated string.
func TruncateWords(s string, maxWords int) string {
	words := strings.Fields(s)
	if len(words) <= maxWords {
		return s
	}
	return strings.Join(words[:maxWords], " ") + "..."
}
