package providers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modelmux/modelmux/src/models"
)

// stubBridge is a trivial in-memory ToolBridge.
type stubBridge struct {
	reads int
}

func (b *stubBridge) ReadFile(path string) (string, error) {
	b.reads++
	return "contents of " + path, nil
}
func (b *stubBridge) ListDirectory(path string) (string, error) { return "dir " + path, nil }
func (b *stubBridge) Grep(pattern string, opts models.GrepOptions) (string, error) {
	return "matches for " + pattern, nil
}
func (b *stubBridge) Glob(pattern, base string) (string, error) { return "globbed " + pattern, nil }

func chatResponse(content string, toolCalls []map[string]any) map[string]any {
	message := map[string]any{"role": "assistant", "content": content}
	if toolCalls != nil {
		message["tool_calls"] = toolCalls
	}
	return map[string]any{
		"id":      "chatcmpl-1",
		"object":  "chat.completion",
		"model":   "gpt-4o",
		"choices": []map[string]any{{"index": 0, "message": message, "finish_reason": "stop"}},
		"usage":   map[string]any{"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15},
	}
}

func TestOpenAIAdapter_Call(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(chatResponse("routed answer", nil))
	}))
	defer srv.Close()

	adapter := NewOpenAIAdapter("gpt-4o", models.ModelConfig{
		Provider: "openai", ModelName: "gpt-4o", APIKey: "k",
		CostPer1KTokens: 0.01, Endpoint: srv.URL,
	}, nil)

	result, err := adapter.Call(context.Background(), &models.QueryRequest{Query: "route me"})
	require.NoError(t, err)

	assert.Equal(t, "routed answer", result.Response)
	assert.Equal(t, 15, result.Usage.TotalTokens)
	assert.InDelta(t, 0.00015, result.Cost, 1e-9)
}

func TestOpenAIAdapter_ToolLoop(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			json.NewEncoder(w).Encode(chatResponse("", []map[string]any{{
				"id":   "call_1",
				"type": "function",
				"function": map[string]any{
					"name":      "read_file",
					"arguments": `{"path":"main.go"}`,
				},
			}}))
			return
		}

		// The second round must carry the tool result back.
		var req struct {
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		last := req.Messages[len(req.Messages)-1]
		assert.Equal(t, "tool", last.Role)
		assert.Equal(t, "contents of main.go", last.Content)

		json.NewEncoder(w).Encode(chatResponse("file summarized", nil))
	}))
	defer srv.Close()

	bridge := &stubBridge{}
	adapter := NewOpenAIAdapter("gpt-4o", models.ModelConfig{
		Provider: "openai", ModelName: "gpt-4o", APIKey: "k", Endpoint: srv.URL,
	}, bridge)

	result, err := adapter.Call(context.Background(), &models.QueryRequest{
		Query:           "summarize main.go",
		EnableFunctions: true,
	})
	require.NoError(t, err)

	assert.Equal(t, "file summarized", result.Response)
	assert.Equal(t, 1, bridge.reads)
	assert.Equal(t, 30, result.Usage.TotalTokens, "usage accumulated across iterations")
}

func TestOpenAIAdapter_ToolLoopCapped(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Always demand another tool call; the adapter must bail out.
		json.NewEncoder(w).Encode(chatResponse("", []map[string]any{{
			"id":   "call_n",
			"type": "function",
			"function": map[string]any{
				"name":      "list_directory",
				"arguments": `{"path":"."}`,
			},
		}}))
	}))
	defer srv.Close()

	adapter := NewOpenAIAdapter("gpt-4o", models.ModelConfig{
		Provider: "openai", ModelName: "gpt-4o", APIKey: "k", Endpoint: srv.URL,
	}, &stubBridge{})

	_, err := adapter.Call(context.Background(), &models.QueryRequest{
		Query:           "loop forever",
		EnableFunctions: true,
	})
	require.Error(t, err)

	var maxErr *models.MaxIterationsError
	require.True(t, errors.As(err, &maxErr))
	assert.Equal(t, maxToolIterations, maxErr.Limit)
}

func TestOpenAIAdapter_FunctionsDisabledSendsNoTools(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		json.NewDecoder(r.Body).Decode(&req)
		_, hasTools := req["tools"]
		assert.False(t, hasTools)
		json.NewEncoder(w).Encode(chatResponse("plain", nil))
	}))
	defer srv.Close()

	adapter := NewOpenAIAdapter("gpt-4o", models.ModelConfig{
		Provider: "openai", ModelName: "gpt-4o", APIKey: "k", Endpoint: srv.URL,
	}, &stubBridge{})

	_, err := adapter.Call(context.Background(), &models.QueryRequest{Query: "no tools"})
	assert.NoError(t, err)
}
