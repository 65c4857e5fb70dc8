package providers

import (
	"context"
	"fmt"
	"time"

	"github.com/tmc/langchaingo/llms"
	lcopenai "github.com/tmc/langchaingo/llms/openai"

	"github.com/modelmux/modelmux/src/models"
)

// GroqAdapter serves Groq and any other OpenAI-compatible endpoint through
// langchaingo. These endpoints do not report token usage on this path, so
// usage is estimated from the text.
type GroqAdapter struct {
	id  string
	cfg models.ModelConfig
	llm llms.Model
}

func NewGroqAdapter(id string, cfg models.ModelConfig) (*GroqAdapter, error) {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = "https://api.groq.com/openai/v1"
	}

	llm, err := lcopenai.New(
		lcopenai.WithBaseURL(endpoint),
		lcopenai.WithToken(cfg.APIKey),
		lcopenai.WithModel(cfg.ModelName),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create client for model %s: %w", id, err)
	}

	return &GroqAdapter{id: id, cfg: cfg, llm: llm}, nil
}

func (a *GroqAdapter) Call(ctx context.Context, req *models.QueryRequest) (*models.QueryResult, error) {
	start := time.Now()

	prompt := buildPrompt(req.Query, req.Context)

	callOptions := []llms.CallOption{
		llms.WithTemperature(float64(temperature(req, a.cfg))),
	}
	if mt := maxTokens(req, a.cfg); mt > 0 {
		callOptions = append(callOptions, llms.WithMaxTokens(mt))
	}

	response, err := llms.GenerateFromSinglePrompt(ctx, a.llm, prompt, callOptions...)
	if err != nil {
		return nil, Normalize("groq", a.id, err)
	}

	usage := NormalizeUsage(models.TokenUsage{
		InputTokens:  EstimateTokens(prompt),
		OutputTokens: EstimateTokens(response),
	})

	return &models.QueryResult{
		Response:   response,
		Model:      a.id,
		Usage:      usage,
		Cost:       Cost(usage, a.cfg.CostPer1KTokens),
		DurationMs: time.Since(start).Milliseconds(),
		Timestamp:  time.Now().UTC(),
	}, nil
}

// CheckAvailability issues a minimal one-token generation as a probe.
func (a *GroqAdapter) CheckAvailability(ctx context.Context) models.Availability {
	_, err := llms.GenerateFromSinglePrompt(ctx, a.llm, "ping", llms.WithMaxTokens(1))
	if err != nil {
		return models.Availability{Available: false, Message: err.Error()}
	}
	return models.Availability{Available: true, Message: "ok"}
}

func (a *GroqAdapter) Info() models.ModelInfo {
	return modelInfo(a.id, a.cfg)
}
