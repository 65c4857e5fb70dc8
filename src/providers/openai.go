package providers

import (
	"context"
	"encoding/json"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/modelmux/modelmux/src/models"
)

// maxToolIterations caps the function-calling loop so a misbehaving model
// cannot keep the adapter in a tool round-trip forever.
const maxToolIterations = 10

// OpenAIAdapter translates the uniform adapter contract onto the OpenAI
// chat completions API. It is the only adapter that supports the injected
// file-system tool bridge.
type OpenAIAdapter struct {
	id     string
	cfg    models.ModelConfig
	client *openai.Client
	tools  models.ToolBridge
}

func NewOpenAIAdapter(id string, cfg models.ModelConfig, tools models.ToolBridge) *OpenAIAdapter {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.Endpoint != "" {
		clientCfg.BaseURL = cfg.Endpoint
	}

	return &OpenAIAdapter{
		id:     id,
		cfg:    cfg,
		client: openai.NewClientWithConfig(clientCfg),
		tools:  tools,
	}
}

func (a *OpenAIAdapter) Call(ctx context.Context, req *models.QueryRequest) (*models.QueryResult, error) {
	start := time.Now()

	chatReq := openai.ChatCompletionRequest{
		Model: a.cfg.ModelName,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: buildPrompt(req.Query, req.Context)},
		},
		Temperature: temperature(req, a.cfg),
		MaxTokens:   maxTokens(req, a.cfg),
	}
	if req.EnableFunctions && a.tools != nil {
		chatReq.Tools = toolDefinitions()
	}

	var usage models.TokenUsage
	for i := 0; i < maxToolIterations; i++ {
		resp, err := a.client.CreateChatCompletion(ctx, chatReq)
		if err != nil {
			return nil, Normalize("openai", a.id, err)
		}

		usage.InputTokens += resp.Usage.PromptTokens
		usage.OutputTokens += resp.Usage.CompletionTokens
		usage.TotalTokens += resp.Usage.TotalTokens
		if resp.Usage.CompletionTokensDetails != nil {
			usage.ReasoningTokens += resp.Usage.CompletionTokensDetails.ReasoningTokens
		}

		if len(resp.Choices) == 0 {
			return nil, &models.ProviderError{
				Code: models.CodeAPIError, Provider: "openai", Model: a.id,
				Message: "empty response from OpenAI",
			}
		}

		msg := resp.Choices[0].Message
		if len(msg.ToolCalls) == 0 {
			usage = NormalizeUsage(usage)
			return &models.QueryResult{
				Response:   msg.Content,
				Model:      a.id,
				Usage:      usage,
				Cost:       Cost(usage, a.cfg.CostPer1KTokens),
				DurationMs: time.Since(start).Milliseconds(),
				Timestamp:  time.Now().UTC(),
			}, nil
		}

		chatReq.Messages = append(chatReq.Messages, msg)
		for _, tc := range msg.ToolCalls {
			chatReq.Messages = append(chatReq.Messages, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				Content:    a.executeTool(tc),
				ToolCallID: tc.ID,
			})
		}
	}

	return nil, &models.MaxIterationsError{Limit: maxToolIterations}
}

// executeTool runs one bridge call. Tool failures are reported back to the
// model as text instead of failing the query; the model decides what to do
// with them.
func (a *OpenAIAdapter) executeTool(tc openai.ToolCall) string {
	var args struct {
		Path       string `json:"path"`
		Pattern    string `json:"pattern"`
		BasePath   string `json:"base_path"`
		MaxMatches int    `json:"max_matches"`
	}
	if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
		return "error: invalid tool arguments: " + err.Error()
	}

	var out string
	var err error
	switch tc.Function.Name {
	case "read_file":
		out, err = a.tools.ReadFile(args.Path)
	case "list_directory":
		out, err = a.tools.ListDirectory(args.Path)
	case "grep":
		out, err = a.tools.Grep(args.Pattern, models.GrepOptions{Path: args.Path, MaxMatches: args.MaxMatches})
	case "glob":
		out, err = a.tools.Glob(args.Pattern, args.BasePath)
	default:
		return "error: unknown tool " + tc.Function.Name
	}
	if err != nil {
		return "error: " + err.Error()
	}
	return out
}

func toolDefinitions() []openai.Tool {
	pathSchema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"path": map[string]any{"type": "string"},
		},
		"required": []string{"path"},
	}

	return []openai.Tool{
		{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        "read_file",
				Description: "Read a file and return its contents",
				Parameters:  pathSchema,
			},
		},
		{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        "list_directory",
				Description: "List the entries of a directory",
				Parameters:  pathSchema,
			},
		},
		{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        "grep",
				Description: "Search file contents for a regular expression",
				Parameters: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"pattern":     map[string]any{"type": "string"},
						"path":        map[string]any{"type": "string"},
						"max_matches": map[string]any{"type": "integer"},
					},
					"required": []string{"pattern"},
				},
			},
		},
		{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        "glob",
				Description: "Find files matching a glob pattern",
				Parameters: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"pattern":   map[string]any{"type": "string"},
						"base_path": map[string]any{"type": "string"},
					},
					"required": []string{"pattern"},
				},
			},
		},
	}
}

func (a *OpenAIAdapter) CheckAvailability(ctx context.Context) models.Availability {
	if _, err := a.client.ListModels(ctx); err != nil {
		return models.Availability{Available: false, Message: err.Error()}
	}
	return models.Availability{Available: true, Message: "ok"}
}

func (a *OpenAIAdapter) Info() models.ModelInfo {
	return modelInfo(a.id, a.cfg)
}

func temperature(req *models.QueryRequest, cfg models.ModelConfig) float32 {
	if req.Temperature != 0 {
		return req.Temperature
	}
	if cfg.Temperature != 0 {
		return cfg.Temperature
	}
	return 0.7
}

func maxTokens(req *models.QueryRequest, cfg models.ModelConfig) int {
	if req.MaxTokens > 0 {
		return req.MaxTokens
	}
	return cfg.MaxTokens
}

func modelInfo(id string, cfg models.ModelConfig) models.ModelInfo {
	return models.ModelInfo{
		ID:              id,
		Name:            cfg.Name,
		Provider:        cfg.Provider,
		Capabilities:    cfg.Capabilities,
		CostPer1KTokens: cfg.CostPer1KTokens,
		ContextWindow:   cfg.ContextWindow,
	}
}
