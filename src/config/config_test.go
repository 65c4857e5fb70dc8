package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modelmux/modelmux/src/models"
)

func validConfig() *Config {
	return &Config{
		Models: map[string]models.ModelConfig{
			"gpt-4o":           {Provider: "openai", ModelName: "gpt-4o", CostPer1KTokens: 0.01, Enabled: true},
			"gemini-2.5-flash": {Provider: "google", ModelName: "gemini-2.5-flash", CostPer1KTokens: 0.001, Enabled: true},
		},
		Settings: Settings{
			DefaultModel:  "gpt-4o",
			FallbackModel: "gemini-2.5-flash",
		},
	}
}

func TestValidate_OK(t *testing.T) {
	assert.NoError(t, Validate(validConfig()))
}

func TestValidate_NoModels(t *testing.T) {
	cfg := validConfig()
	cfg.Models = nil

	assert.Error(t, Validate(cfg))
}

func TestValidate_DefaultModelRequired(t *testing.T) {
	cfg := validConfig()
	cfg.Settings.DefaultModel = ""

	assert.Error(t, Validate(cfg))
}

func TestValidate_DefaultModelMustExist(t *testing.T) {
	cfg := validConfig()
	cfg.Settings.DefaultModel = "missing-model"

	err := Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "default_model")
}

func TestValidate_FallbackModelMustExist(t *testing.T) {
	cfg := validConfig()
	cfg.Settings.FallbackModel = "missing-model"

	err := Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fallback_model")
}

func TestValidate_FallbackOptional(t *testing.T) {
	cfg := validConfig()
	cfg.Settings.FallbackModel = ""

	assert.NoError(t, Validate(cfg))
}

func TestValidate_NegativeCostRejected(t *testing.T) {
	cfg := validConfig()
	m := cfg.Models["gpt-4o"]
	m.CostPer1KTokens = -0.01
	cfg.Models["gpt-4o"] = m

	assert.Error(t, Validate(cfg))
}

func TestValidate_ProviderRequired(t *testing.T) {
	cfg := validConfig()
	m := cfg.Models["gpt-4o"]
	m.Provider = ""
	cfg.Models["gpt-4o"] = m

	assert.Error(t, Validate(cfg))
}
