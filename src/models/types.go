package models

import "time"

// AnonymousClientID is the rate-limit bucket shared by all callers that
// do not identify themselves. Unauthenticated traffic competes for one
// window; the usage endpoints expose it like any other client.
const AnonymousClientID = "anonymous"

// ModelConfig describes one routable model. The set is loaded once at
// startup and stays immutable for the process lifetime.
type ModelConfig struct {
	Provider        string            `mapstructure:"provider" json:"provider"`
	ModelName       string            `mapstructure:"model_name" json:"model_name"`
	Name            string            `mapstructure:"name" json:"name"`
	Capabilities    []string          `mapstructure:"capabilities" json:"capabilities"`
	CostPer1KTokens float64           `mapstructure:"cost_per_1k_tokens" json:"cost_per_1k_tokens"`
	ContextWindow   int               `mapstructure:"context_window" json:"context_window"`
	MaxTokens       int               `mapstructure:"max_tokens" json:"max_tokens"`
	Temperature     float32           `mapstructure:"temperature" json:"temperature"`
	DefaultParams   map[string]string `mapstructure:"default_params" json:"default_params,omitempty"`
	RateLimit       int               `mapstructure:"rate_limit" json:"rate_limit,omitempty"`
	TimeoutMs       int               `mapstructure:"timeout_ms" json:"timeout_ms,omitempty"`
	Enabled         bool              `mapstructure:"enabled" json:"enabled"`
	Endpoint        string            `mapstructure:"endpoint" json:"-"`
	APIKey          string            `mapstructure:"api_key" json:"-"`
}

type Preferences struct {
	Model      string `json:"model,omitempty"`
	Prioritize string `json:"prioritize,omitempty"`
}

type QueryRequest struct {
	Query           string       `json:"query" binding:"required"`
	Context         string       `json:"context,omitempty"`
	Model           string       `json:"model,omitempty"`
	Preferences     *Preferences `json:"preferences,omitempty"`
	ClientID        string       `json:"client_id,omitempty"`
	MaxTokens       int          `json:"max_tokens,omitempty"`
	Temperature     float32      `json:"temperature,omitempty"`
	EnableFunctions bool         `json:"enable_functions,omitempty"`
}

// TokenUsage is the normalized token accounting across vendors. Providers
// report counts under different field names; adapters map them here before
// costing.
type TokenUsage struct {
	InputTokens     int `json:"input_tokens"`
	OutputTokens    int `json:"output_tokens"`
	TotalTokens     int `json:"total_tokens"`
	ReasoningTokens int `json:"reasoning_tokens"`
}

type QueryResult struct {
	Response   string     `json:"response"`
	Model      string     `json:"model"`
	Usage      TokenUsage `json:"usage"`
	Cost       float64    `json:"cost"`
	DurationMs int64      `json:"duration_ms"`
	CacheHit   bool       `json:"cache_hit,omitempty"`
	Timestamp  time.Time  `json:"timestamp"`
}

// Availability is the result of an adapter liveness probe.
type Availability struct {
	Available bool   `json:"available"`
	Message   string `json:"message"`
}

// ModelInfo is an adapter's static self-description.
type ModelInfo struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	Provider        string   `json:"provider"`
	Capabilities    []string `json:"capabilities"`
	CostPer1KTokens float64  `json:"cost_per_1k_tokens"`
	ContextWindow   int      `json:"context_window"`
}

// Recommendation is one ranked entry from the selector.
type Recommendation struct {
	Model     string   `json:"model"`
	Score     float64  `json:"score"`
	Strengths []string `json:"strengths"`
	Reasoning string   `json:"reasoning"`
}
