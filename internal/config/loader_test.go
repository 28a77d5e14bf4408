package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLoader(t *testing.T) {
	loader := NewLoader("/path/to/config.yaml")
	assert.Equal(t, "/path/to/config.yaml", loader.GetConfigPath())
}

func TestLoaderLoad(t *testing.T) {
	t.Run("defaults when file doesn't exist", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "missing.yaml")

		cfg, err := NewLoader(configPath).Load()
		require.NoError(t, err)
		assert.Equal(t, "openai", cfg.LLM.Provider)
		assert.Equal(t, "http://localhost:3000/mcp", cfg.Capability.ServerURL)
		assert.NotEmpty(t, cfg.DataDir)
		assert.Equal(t, filepath.Join(cfg.DataDir, "courier.log"), cfg.Logging.File)
	})

	t.Run("yaml file", func(t *testing.T) {
		dir := t.TempDir()
		configPath := filepath.Join(dir, "config.yaml")
		content := `
llm:
  provider: anthropic
  api_key: sk-ant-from-file
  model: claude-sonnet-4-5
capability:
  server_url: https://mail.example.com/mcp
  force_login: false
  headers:
    X-Tenant: contoso
data_dir: ` + dir + `
audit:
  enabled: true
`
		require.NoError(t, os.WriteFile(configPath, []byte(content), 0o600))

		cfg, err := NewLoader(configPath).Load()
		require.NoError(t, err)

		assert.Equal(t, "anthropic", cfg.LLM.Provider)
		assert.Equal(t, "sk-ant-from-file", cfg.LLM.APIKey)
		assert.Equal(t, "claude-sonnet-4-5", cfg.LLM.Model)
		assert.Equal(t, 1024, cfg.LLM.MaxTokens)
		assert.Equal(t, "https://mail.example.com/mcp", cfg.Capability.ServerURL)
		assert.False(t, cfg.Capability.ForceLogin)
		assert.Equal(t, "contoso", cfg.Capability.Headers["x-tenant"])
		assert.Equal(t, dir, cfg.DataDir)
		assert.Equal(t, filepath.Join(dir, "audit.jsonl"), cfg.Audit.Path)
	})

	t.Run("json file", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.json")
		content := `{"llm": {"model": "gpt-4.1", "temperature": 0.2}, "metrics": {"enabled": true}}`
		require.NoError(t, os.WriteFile(configPath, []byte(content), 0o600))

		cfg, err := NewLoader(configPath).Load()
		require.NoError(t, err)
		assert.Equal(t, "gpt-4.1", cfg.LLM.Model)
		assert.Equal(t, 0.2, cfg.LLM.Temperature)
		assert.True(t, cfg.Metrics.Enabled)
		assert.Equal(t, "127.0.0.1:9464", cfg.Metrics.Addr)
	})

	t.Run("environment overrides file", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(configPath, []byte("llm:\n  api_key: from-file\n"), 0o600))

		t.Setenv("COURIER_LLM_API_KEY", "from-env")
		t.Setenv("COURIER_CAPABILITY_SERVER_URL", "http://10.0.0.5:3000/mcp")

		cfg, err := NewLoader(configPath).Load()
		require.NoError(t, err)
		assert.Equal(t, "from-env", cfg.LLM.APIKey)
		assert.Equal(t, "http://10.0.0.5:3000/mcp", cfg.Capability.ServerURL)
	})

	t.Run("invalid file", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(configPath, []byte("llm: [unclosed"), 0o600))

		_, err := NewLoader(configPath).Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to read config file")
	})
}

func TestLoaderSave(t *testing.T) {
	for _, name := range []string{"config.yaml", "config.json"} {
		t.Run(name, func(t *testing.T) {
			configPath := filepath.Join(t.TempDir(), "nested", name)
			loader := NewLoader(configPath)

			cfg := DefaultConfig()
			cfg.LLM.APIKey = "sk-saved"
			cfg.LLM.Model = "gpt-4.1-mini"
			require.NoError(t, loader.Save(cfg))

			info, err := os.Stat(configPath)
			require.NoError(t, err)
			assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

			loaded, err := loader.Load()
			require.NoError(t, err)
			assert.Equal(t, "sk-saved", loaded.LLM.APIKey)
			assert.Equal(t, "gpt-4.1-mini", loaded.LLM.Model)
		})
	}
}
