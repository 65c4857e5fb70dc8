package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/modelmux/modelmux/src/models"
)

const (
	anthropicBaseURL = "https://api.anthropic.com/v1"
	anthropicVersion = "2023-06-01"
)

// AnthropicAdapter speaks the Anthropic Messages API directly over HTTP.
type AnthropicAdapter struct {
	id         string
	cfg        models.ModelConfig
	baseURL    string
	httpClient *http.Client
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	Messages    []anthropicMessage `json:"messages"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature *float32           `json:"temperature,omitempty"`
}

type anthropicResponse struct {
	ID      string `json:"id"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Model string `json:"model"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

func NewAnthropicAdapter(id string, cfg models.ModelConfig) *AnthropicAdapter {
	timeout := 60 * time.Second
	if cfg.TimeoutMs > 0 {
		timeout = time.Duration(cfg.TimeoutMs) * time.Millisecond
	}

	baseURL := anthropicBaseURL
	if cfg.Endpoint != "" {
		baseURL = strings.TrimRight(cfg.Endpoint, "/")
	}

	return &AnthropicAdapter{
		id:         id,
		cfg:        cfg,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (a *AnthropicAdapter) Call(ctx context.Context, req *models.QueryRequest) (*models.QueryResult, error) {
	start := time.Now()

	maxTok := maxTokens(req, a.cfg)
	if maxTok <= 0 {
		maxTok = 1024
	}
	temp := temperature(req, a.cfg)

	body, err := json.Marshal(anthropicRequest{
		Model:       a.cfg.ModelName,
		Messages:    []anthropicMessage{{Role: "user", Content: buildPrompt(req.Query, req.Context)}},
		MaxTokens:   maxTok,
		Temperature: &temp,
	})
	if err != nil {
		return nil, Normalize("anthropic", a.id, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/messages", bytes.NewReader(body))
	if err != nil {
		return nil, Normalize("anthropic", a.id, err)
	}
	a.setHeaders(httpReq)

	httpResp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return nil, Normalize("anthropic", a.id, err)
	}
	defer httpResp.Body.Close()

	respBody, _ := io.ReadAll(httpResp.Body)
	if httpResp.StatusCode != http.StatusOK {
		err := fmt.Errorf("anthropic API error (status %d): %s", httpResp.StatusCode, string(respBody))
		code := classifyStatus(httpResp.StatusCode, string(respBody))
		if code == "" {
			code = classifyMessage(string(respBody))
		}
		return nil, &models.ProviderError{
			Code: code, Provider: "anthropic", Model: a.id,
			Message: err.Error(), Err: err,
		}
	}

	var parsed anthropicResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, Normalize("anthropic", a.id, fmt.Errorf("failed to parse response: %w", err))
	}

	var text strings.Builder
	for _, block := range parsed.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	usage := NormalizeUsage(models.TokenUsage{
		InputTokens:  parsed.Usage.InputTokens,
		OutputTokens: parsed.Usage.OutputTokens,
	})

	return &models.QueryResult{
		Response:   text.String(),
		Model:      a.id,
		Usage:      usage,
		Cost:       Cost(usage, a.cfg.CostPer1KTokens),
		DurationMs: time.Since(start).Milliseconds(),
		Timestamp:  time.Now().UTC(),
	}, nil
}

func (a *AnthropicAdapter) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", a.cfg.APIKey)
	req.Header.Set("anthropic-version", anthropicVersion)
}

// CheckAvailability probes the models listing endpoint.
func (a *AnthropicAdapter) CheckAvailability(ctx context.Context) models.Availability {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"/models", nil)
	if err != nil {
		return models.Availability{Available: false, Message: err.Error()}
	}
	a.setHeaders(httpReq)

	resp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return models.Availability{Available: false, Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return models.Availability{Available: false, Message: fmt.Sprintf("status %d", resp.StatusCode)}
	}
	return models.Availability{Available: true, Message: "ok"}
}

func (a *AnthropicAdapter) Info() models.ModelInfo {
	return modelInfo(a.id, a.cfg)
}
