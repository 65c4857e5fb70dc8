package models

import (
	"fmt"
	"strings"
)

// ErrorCode is the closed set of normalized provider failure codes. The
// router's fallback policy keys off these, so adapters must map every
// vendor failure onto one of them.
type ErrorCode string

const (
	CodeRateLimitExceeded    ErrorCode = "RATE_LIMIT_EXCEEDED"
	CodeAuthenticationFailed ErrorCode = "AUTHENTICATION_FAILED"
	CodeQuotaExceeded        ErrorCode = "QUOTA_EXCEEDED"
	CodeTimeout              ErrorCode = "TIMEOUT"
	CodeAPIError             ErrorCode = "API_ERROR"
)

// ProviderError is a vendor failure normalized to an ErrorCode. Message
// keeps the original vendor text so callers can see what actually happened.
type ProviderError struct {
	Code     ErrorCode
	Provider string
	Model    string
	Message  string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Provider, e.Code, e.Message)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// RateLimitScope distinguishes the two admission windows.
type RateLimitScope string

const (
	ScopeBurst     RateLimitScope = "burst"
	ScopeSustained RateLimitScope = "sustained"
)

// RateLimitError is returned by the admission limiter. Sustained failures
// carry a machine-readable code and RetryAfter for programmatic backoff.
type RateLimitError struct {
	Scope      RateLimitScope
	Code       ErrorCode
	Limit      int
	RetryAfter int // seconds until the window resets
}

func (e *RateLimitError) Error() string {
	if e.Scope == ScopeBurst {
		return fmt.Sprintf("burst limit exceeded: max %d requests per 10 seconds, retry in %d seconds", e.Limit, e.RetryAfter)
	}
	return fmt.Sprintf("rate limit exceeded: max %d requests per minute, retry in %d seconds", e.Limit, e.RetryAfter)
}

// ModelNotAvailableError reports an unknown or disabled model id along with
// the ids that are actually configured.
type ModelNotAvailableError struct {
	Model     string
	Available []string
}

func (e *ModelNotAvailableError) Error() string {
	return fmt.Sprintf("model %q is not available; configured models: %s", e.Model, strings.Join(e.Available, ", "))
}

// MissingFieldError is a request validation failure.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("missing required field: %s", e.Field)
}

// MaxIterationsError is the tool-calling loop safety valve.
type MaxIterationsError struct {
	Limit int
}

func (e *MaxIterationsError) Error() string {
	return fmt.Sprintf("tool calling exceeded maximum of %d iterations", e.Limit)
}

// BudgetExceededError is returned when the configured spend ceiling has
// been reached; further dispatch is refused until the process restarts.
type BudgetExceededError struct {
	SpentUSD float64
	LimitUSD float64
}

func (e *BudgetExceededError) Error() string {
	return fmt.Sprintf("budget exceeded: spent $%.4f of $%.4f limit", e.SpentUSD, e.LimitUSD)
}
