package config

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateAPIKey(t *testing.T) {
	v := NewValidator()

	t.Run("valid anthropic key", func(t *testing.T) {
		assert.NoError(t, v.ValidateAPIKey("sk-ant-test123", "anthropic", ""))
	})

	t.Run("invalid anthropic key", func(t *testing.T) {
		assert.Error(t, v.ValidateAPIKey("invalid-key", "anthropic", "https://api.anthropic.com"))
	})

	t.Run("invalid openai key", func(t *testing.T) {
		assert.Error(t, v.ValidateAPIKey("invalid-key", "openai", "https://api.openai.com/v1"))
	})

	t.Run("any key for self-hosted endpoint", func(t *testing.T) {
		assert.NoError(t, v.ValidateAPIKey("local", "openai", "http://localhost:11434/v1"))
	})

	t.Run("empty key", func(t *testing.T) {
		assert.Error(t, v.ValidateAPIKey("", "openai", "http://localhost:11434/v1"))
	})
}

func TestValidateServerURL(t *testing.T) {
	v := NewValidator()

	assert.NoError(t, v.ValidateServerURL("http://localhost:3000/mcp"))
	assert.NoError(t, v.ValidateServerURL("https://mail.example.com/mcp"))
	assert.Error(t, v.ValidateServerURL(""))
	assert.Error(t, v.ValidateServerURL("ftp://mail.example.com"))
	assert.Error(t, v.ValidateServerURL("http://"))
	assert.Error(t, v.ValidateServerURL("://bad"))
}

func TestValidateRanges(t *testing.T) {
	v := NewValidator()

	assert.NoError(t, v.ValidateTemperature(0))
	assert.NoError(t, v.ValidateTemperature(1.5))
	assert.Error(t, v.ValidateTemperature(-0.1))
	assert.Error(t, v.ValidateTemperature(2.1))

	assert.NoError(t, v.ValidateMaxTokens(0))
	assert.NoError(t, v.ValidateMaxTokens(4096))
	assert.Error(t, v.ValidateMaxTokens(-1))
	assert.Error(t, v.ValidateMaxTokens(300000))

	assert.NoError(t, v.ValidateLogLevel("debug"))
	assert.Error(t, v.ValidateLogLevel("verbose"))

	assert.NoError(t, v.ValidateProvider("anthropic"))
	assert.Error(t, v.ValidateProvider("gemini"))
}

func TestValidateConfig(t *testing.T) {
	v := NewValidator()

	t.Run("valid config", func(t *testing.T) {
		assert.Empty(t, v.ValidateConfig(validConfig()))
	})

	t.Run("collects every finding", func(t *testing.T) {
		cfg := validConfig()
		cfg.LLM.Provider = "gemini"
		cfg.LLM.Temperature = 3
		cfg.Capability.ServerURL = "mail.example.com"
		cfg.Logging.Level = "loud"

		errs := v.ValidateConfig(cfg)
		require.Len(t, errs, 4)

		var joined []string
		for _, err := range errs {
			joined = append(joined, err.Error())
		}
		all := strings.Join(joined, "\n")
		assert.Contains(t, all, "llm.provider")
		assert.Contains(t, all, "llm.temperature")
		assert.Contains(t, all, "capability.server_url")
		assert.Contains(t, all, "logging.level")
	})
}
