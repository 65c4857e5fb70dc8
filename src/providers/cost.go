package providers

import (
	"strings"

	"github.com/modelmux/modelmux/src/models"
)

// Cost converts normalized usage into USD at the model's per-1K rate.
func Cost(usage models.TokenUsage, costPer1KTokens float64) float64 {
	return float64(usage.TotalTokens) / 1000 * costPer1KTokens
}

// NormalizeUsage fills in the total when a vendor only reports the parts.
func NormalizeUsage(usage models.TokenUsage) models.TokenUsage {
	if usage.TotalTokens == 0 {
		usage.TotalTokens = usage.InputTokens + usage.OutputTokens
	}
	return usage
}

// EstimateTokens approximates a token count from text for vendors that do
// not report usage. Roughly one token per four characters of English.
func EstimateTokens(text string) int {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0
	}
	n := len(text) / 4
	if n < 1 {
		n = 1
	}
	return n
}

// buildPrompt joins the optional context with the query the same way for
// every adapter, so cache keys and vendor calls agree on the input.
func buildPrompt(query, context string) string {
	if context == "" {
		return query
	}
	return "Context: " + context + "\n\nQuestion: " + query
}
