package model

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/vertexai/genai"

	"github.com/hyperjump/youyaku/internal/models"
)

const defaultVertexModel = "gemini-1.5-flash"

// VertexSummarizer prompts a Gemini model on Vertex AI.
type VertexSummarizer struct {
	client    *genai.Client
	modelName string
}

// NewVertexSummarizer connects to Vertex AI in projectID and region.
func NewVertexSummarizer(ctx context.Context, projectID, region, name string) (*VertexSummarizer, error) {
	if projectID == "" || region == "" {
		return nil, errors.New("vertex summarizer requires project_id and region")
	}
	client, err := genai.NewClient(ctx, projectID, region)
	if err != nil {
		return nil, &Error{Provider: "vertex", Err: fmt.Errorf("genai.NewClient: %w", err)}
	}
	if name == "" {
		name = defaultVertexModel
	}
	return &VertexSummarizer{client: client, modelName: name}, nil
}

// Summarize configures a model handle for this call and generates the summary.
// Handles are cheap, and per-call handles keep concurrent calls from sharing
// generation settings.
func (v *VertexSummarizer) Summarize(ctx context.Context, text string, target models.LengthSpec, preset models.Preset) (string, error) {
	m := v.client.GenerativeModel(v.modelName)
	m.GenerationConfig = generationConfig(target, preset)

	resp, err := m.GenerateContent(ctx, genai.Text(instruction(text, target)))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		return "", wrap(v.Name(), err)
	}
	out := responseText(resp)
	if out == "" {
		return "", wrap(v.Name(), errEmptyOutput)
	}
	return out, nil
}

// Name returns "vertex".
func (v *VertexSummarizer) Name() string { return "vertex" }

// Close releases the Vertex AI client.
func (v *VertexSummarizer) Close() error {
	if v.client != nil {
		return v.client.Close()
	}
	return nil
}

func generationConfig(target models.LengthSpec, preset models.Preset) genai.GenerationConfig {
	cfg := genai.GenerationConfig{
		MaxOutputTokens: genai.Ptr(int32(maxOutputTokens(target.MaxWords))),
		Temperature:     genai.Ptr[float32](0),
	}
	if preset.DoSample {
		cfg.Temperature = genai.Ptr(float32(preset.Temperature))
		cfg.TopK = genai.Ptr(int32(preset.TopK))
		cfg.TopP = genai.Ptr(float32(preset.TopP))
	}
	return cfg
}

// responseText joins the text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	return strings.TrimSpace(b.String())
}
