package providers

import (
	"context"
	"time"

	genai "google.golang.org/genai"

	"github.com/modelmux/modelmux/src/models"
)

// GeminiAdapter wraps the official genai client for the Gemini API.
type GeminiAdapter struct {
	id  string
	cfg models.ModelConfig
	cli *genai.Client
}

func NewGeminiAdapter(ctx context.Context, id string, cfg models.ModelConfig) (*GeminiAdapter, error) {
	cli, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, err
	}

	return &GeminiAdapter{id: id, cfg: cfg, cli: cli}, nil
}

func (a *GeminiAdapter) Call(ctx context.Context, req *models.QueryRequest) (*models.QueryResult, error) {
	start := time.Now()

	temp := temperature(req, a.cfg)
	config := &genai.GenerateContentConfig{
		Temperature:     &temp,
		MaxOutputTokens: int32(maxTokens(req, a.cfg)),
	}

	resp, err := a.cli.Models.GenerateContent(ctx, a.cfg.ModelName,
		[]*genai.Content{{Parts: []*genai.Part{{Text: buildPrompt(req.Query, req.Context)}}}},
		config,
	)
	if err != nil {
		return nil, Normalize("google", a.id, err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, &models.ProviderError{
			Code: models.CodeAPIError, Provider: "google", Model: a.id,
			Message: "empty response from Gemini",
		}
	}

	var usage models.TokenUsage
	if meta := resp.UsageMetadata; meta != nil {
		usage = NormalizeUsage(models.TokenUsage{
			InputTokens:     int(meta.PromptTokenCount),
			OutputTokens:    int(meta.CandidatesTokenCount),
			TotalTokens:     int(meta.TotalTokenCount),
			ReasoningTokens: int(meta.ThoughtsTokenCount),
		})
	}

	return &models.QueryResult{
		Response:   resp.Candidates[0].Content.Parts[0].Text,
		Model:      a.id,
		Usage:      usage,
		Cost:       Cost(usage, a.cfg.CostPer1KTokens),
		DurationMs: time.Since(start).Milliseconds(),
		Timestamp:  time.Now().UTC(),
	}, nil
}

// CheckAvailability issues a minimal one-token generation as a probe; the
// Gemini API has no cheap unauthenticated liveness endpoint.
func (a *GeminiAdapter) CheckAvailability(ctx context.Context) models.Availability {
	_, err := a.cli.Models.GenerateContent(ctx, a.cfg.ModelName,
		[]*genai.Content{{Parts: []*genai.Part{{Text: "ping"}}}},
		&genai.GenerateContentConfig{MaxOutputTokens: 1},
	)
	if err != nil {
		return models.Availability{Available: false, Message: err.Error()}
	}
	return models.Availability{Available: true, Message: "ok"}
}

func (a *GeminiAdapter) Info() models.ModelInfo {
	return modelInfo(a.id, a.cfg)
}
