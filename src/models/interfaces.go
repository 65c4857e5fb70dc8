package models

import (
	"context"
)

// ProviderAdapter is the uniform contract over heterogeneous vendor APIs.
// One variant exists per provider, chosen once at startup.
type ProviderAdapter interface {
	// Call dispatches the request to the vendor. Failures are returned as
	// *ProviderError with a normalized code.
	Call(ctx context.Context, req *QueryRequest) (*QueryResult, error)
	// CheckAvailability is a lightweight liveness probe.
	CheckAvailability(ctx context.Context) Availability
	// Info returns the adapter's static self-description.
	Info() ModelInfo
}

// GrepOptions narrows a ToolBridge grep call.
type GrepOptions struct {
	Path          string
	CaseSensitive bool
	MaxMatches    int
}

// ToolBridge is the injected file-system capability used by adapters when a
// request enables function calling. Implementations return textual
// summaries suitable for feeding back into a model.
type ToolBridge interface {
	ReadFile(path string) (string, error)
	ListDirectory(path string) (string, error)
	Grep(pattern string, opts GrepOptions) (string, error)
	Glob(pattern, basePath string) (string, error)
}

// CacheStore defines the interface for response cache operations.
type CacheStore interface {
	Get(ctx context.Context, key string) (*QueryResult, error)
	Set(ctx context.Context, key string, result *QueryResult) error
	Delete(ctx context.Context, key string) error
	Close() error
}
