package providers

import (
	"context"
	"errors"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/modelmux/modelmux/src/models"
)

// Normalize maps a raw vendor failure onto the closed ErrorCode set so the
// router can apply a uniform fallback policy across vendors. Already
// normalized errors pass through unchanged.
func Normalize(provider, model string, err error) *models.ProviderError {
	var pErr *models.ProviderError
	if errors.As(err, &pErr) {
		return pErr
	}

	code := classify(err)
	return &models.ProviderError{
		Code:     code,
		Provider: provider,
		Model:    model,
		Message:  err.Error(),
		Err:      err,
	}
}

func classify(err error) models.ErrorCode {
	if errors.Is(err, context.DeadlineExceeded) {
		return models.CodeTimeout
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if code := classifyStatus(apiErr.HTTPStatusCode, err.Error()); code != "" {
			return code
		}
	}

	return classifyMessage(err.Error())
}

func classifyStatus(status int, message string) models.ErrorCode {
	switch status {
	case 429:
		// Vendors reuse 429 for both throttling and exhausted quota.
		if strings.Contains(strings.ToLower(message), "quota") {
			return models.CodeQuotaExceeded
		}
		return models.CodeRateLimitExceeded
	case 401, 403:
		return models.CodeAuthenticationFailed
	case 408, 504:
		return models.CodeTimeout
	}
	return ""
}

func classifyMessage(message string) models.ErrorCode {
	lower := strings.ToLower(message)

	switch {
	case strings.Contains(lower, "quota") || strings.Contains(lower, "billing") || strings.Contains(lower, "insufficient funds"):
		return models.CodeQuotaExceeded
	case strings.Contains(lower, "rate limit") || strings.Contains(lower, "too many requests") || strings.Contains(lower, "429"):
		return models.CodeRateLimitExceeded
	case strings.Contains(lower, "unauthorized") || strings.Contains(lower, "invalid api key") ||
		strings.Contains(lower, "authentication") || strings.Contains(lower, "401") || strings.Contains(lower, "403"):
		return models.CodeAuthenticationFailed
	case strings.Contains(lower, "timeout") || strings.Contains(lower, "deadline exceeded") || strings.Contains(lower, "timed out"):
		return models.CodeTimeout
	default:
		return models.CodeAPIError
	}
}
