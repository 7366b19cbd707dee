package model

import (
	"context"
	"errors"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/hyperjump/youyaku/internal/models"
)

// OpenAISummarizer prompts an OpenAI-compatible chat model for summaries.
type OpenAISummarizer struct {
	llm llms.Model
}

// NewOpenAISummarizer creates a summarizer for the given model name. baseURL
// may point at any OpenAI-compatible server; empty uses the public API.
func NewOpenAISummarizer(name, apiKey, baseURL string) (*OpenAISummarizer, error) {
	if apiKey == "" {
		return nil, errors.New("openai summarizer requires an API key")
	}
	opts := []openai.Option{
		openai.WithToken(apiKey),
	}
	if name != "" {
		opts = append(opts, openai.WithModel(name))
	}
	if baseURL != "" {
		opts = append(opts, openai.WithBaseURL(baseURL))
	}
	llm, err := openai.New(opts...)
	if err != nil {
		return nil, &Error{Provider: "openai", Err: err}
	}
	return &OpenAISummarizer{llm: llm}, nil
}

// Summarize sends a single-prompt completion. Sampling options are only set
// for presets that sample; otherwise temperature is pinned to zero.
func (o *OpenAISummarizer) Summarize(ctx context.Context, text string, target models.LengthSpec, preset models.Preset) (string, error) {
	opts := []llms.CallOption{llms.WithMaxTokens(maxOutputTokens(target.MaxWords))}
	if preset.DoSample {
		opts = append(opts,
			llms.WithTemperature(preset.Temperature),
			llms.WithTopP(preset.TopP),
		)
	} else {
		opts = append(opts, llms.WithTemperature(0))
	}
	out, err := llms.GenerateFromSinglePrompt(ctx, o.llm, instruction(text, target), opts...)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		return "", wrap(o.Name(), err)
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return "", wrap(o.Name(), errEmptyOutput)
	}
	return out, nil
}

// Name returns "openai".
func (o *OpenAISummarizer) Name() string { return "openai" }

// Close is a no-op for OpenAISummarizer.
func (o *OpenAISummarizer) Close() error { return nil }
