package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	cfg := DefaultConfig()
	cfg.LLM.APIKey = "sk-test1234567890"
	return cfg
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, "gpt-4o-mini", cfg.LLM.Model)
	assert.Equal(t, 1024, cfg.LLM.MaxTokens)
	assert.Equal(t, 120*time.Second, cfg.LLM.Timeout())
	assert.True(t, cfg.Capability.ForceLogin)
	assert.Equal(t, 60*time.Second, cfg.Capability.Timeout())
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.True(t, cfg.Logging.Redaction)
	assert.False(t, cfg.Metrics.Enabled)
	assert.Equal(t, "courier", cfg.Tracing.ServiceName)
}

func TestConfigString(t *testing.T) {
	cfg := validConfig()

	s := cfg.String()
	assert.Contains(t, s, `"provider": "openai"`)
	assert.NotContains(t, s, "sk-test1234567890")
	assert.Equal(t, "sk-test1234567890", cfg.LLM.APIKey)
}

func TestConfigValidate(t *testing.T) {
	require.NoError(t, validConfig().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"unknown provider", func(c *Config) { c.LLM.Provider = "gemini" }, "invalid provider"},
		{"missing api key", func(c *Config) { c.LLM.APIKey = "" }, "llm.api_key is required"},
		{"missing model", func(c *Config) { c.LLM.Model = "" }, "llm.model is required"},
		{"negative retries", func(c *Config) { c.LLM.MaxRetries = -1 }, "max_retries"},
		{"missing server url", func(c *Config) { c.Capability.ServerURL = "" }, "capability.server_url is required"},
		{"metrics without addr", func(c *Config) { c.Metrics.Enabled = true; c.Metrics.Addr = "" }, "metrics.addr"},
		{"audit without path", func(c *Config) { c.Audit.Enabled = true }, "audit.path"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}
