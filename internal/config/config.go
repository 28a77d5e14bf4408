package config

import (
	"encoding/json"
	"fmt"
	"time"
)

// Config represents the main courier configuration
type Config struct {
	LLM        LLMConfig        `json:"llm" yaml:"llm" mapstructure:"llm"`
	Capability CapabilityConfig `json:"capability" yaml:"capability" mapstructure:"capability"`
	Agent      AgentConfig      `json:"agent" yaml:"agent" mapstructure:"agent"`
	Catalog    CatalogConfig    `json:"catalog" yaml:"catalog" mapstructure:"catalog"`
	Logging    LoggingConfig    `json:"logging" yaml:"logging" mapstructure:"logging"`
	Metrics    MetricsConfig    `json:"metrics" yaml:"metrics" mapstructure:"metrics"`
	Tracing    TracingConfig    `json:"tracing" yaml:"tracing" mapstructure:"tracing"`
	Audit      AuditConfig      `json:"audit" yaml:"audit" mapstructure:"audit"`

	// Data directory
	DataDir string `json:"data_dir" yaml:"data_dir" mapstructure:"data_dir"`
}

// LLMConfig selects the completion provider.
type LLMConfig struct {
	Provider           string  `json:"provider" yaml:"provider" mapstructure:"provider"` // openai, anthropic
	BaseURL            string  `json:"base_url" yaml:"base_url" mapstructure:"base_url"`
	APIKey             string  `json:"api_key" yaml:"api_key" mapstructure:"api_key"`
	Model              string  `json:"model" yaml:"model" mapstructure:"model"`
	MaxTokens          int     `json:"max_tokens" yaml:"max_tokens" mapstructure:"max_tokens"`
	Temperature        float64 `json:"temperature" yaml:"temperature" mapstructure:"temperature"`
	MaxRetries         int     `json:"max_retries" yaml:"max_retries" mapstructure:"max_retries"`
	TimeoutSeconds     int     `json:"timeout_seconds" yaml:"timeout_seconds" mapstructure:"timeout_seconds"`
	InsecureSkipVerify bool    `json:"insecure_skip_verify" yaml:"insecure_skip_verify" mapstructure:"insecure_skip_verify"`
	DisableProxy       bool    `json:"disable_proxy" yaml:"disable_proxy" mapstructure:"disable_proxy"`
}

// Timeout returns the per-request timeout.
func (c LLMConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// CapabilityConfig points at the capability server.
type CapabilityConfig struct {
	ServerURL      string            `json:"server_url" yaml:"server_url" mapstructure:"server_url"`
	ForceLogin     bool              `json:"force_login" yaml:"force_login" mapstructure:"force_login"`
	Headers        map[string]string `json:"headers" yaml:"headers" mapstructure:"headers"`
	TimeoutSeconds int               `json:"timeout_seconds" yaml:"timeout_seconds" mapstructure:"timeout_seconds"`
}

// Timeout returns the per-request timeout.
func (c CapabilityConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// AgentConfig holds conversation settings
type AgentConfig struct {
	SystemPrompt string `json:"system_prompt" yaml:"system_prompt" mapstructure:"system_prompt"`
}

// CatalogConfig optionally replaces the built-in tool catalog.
type CatalogConfig struct {
	Path string `json:"path" yaml:"path" mapstructure:"path"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level     string `json:"level" yaml:"level" mapstructure:"level"`
	File      string `json:"file" yaml:"file" mapstructure:"file"`
	Console   bool   `json:"console" yaml:"console" mapstructure:"console"`
	Pretty    bool   `json:"pretty" yaml:"pretty" mapstructure:"pretty"`
	MaxSize   int    `json:"max_size" yaml:"max_size" mapstructure:"max_size"` // MB
	MaxAge    int    `json:"max_age" yaml:"max_age" mapstructure:"max_age"`    // days
	Compress  bool   `json:"compress" yaml:"compress" mapstructure:"compress"`
	Redaction bool   `json:"redaction" yaml:"redaction" mapstructure:"redaction"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled" mapstructure:"enabled"`
	Addr    string `json:"addr" yaml:"addr" mapstructure:"addr"`
}

// TracingConfig controls OpenTelemetry span export.
type TracingConfig struct {
	Enabled     bool   `json:"enabled" yaml:"enabled" mapstructure:"enabled"`
	ServiceName string `json:"service_name" yaml:"service_name" mapstructure:"service_name"`
}

// AuditConfig controls the JSON-lines audit trail.
type AuditConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled" mapstructure:"enabled"`
	Path    string `json:"path" yaml:"path" mapstructure:"path"`
}

// DefaultConfig returns a config with default values
func DefaultConfig() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider:       "openai",
			BaseURL:        "https://api.openai.com/v1",
			Model:          "gpt-4o-mini",
			MaxTokens:      1024,
			MaxRetries:     2,
			TimeoutSeconds: 120,
		},
		Capability: CapabilityConfig{
			ServerURL:      "http://localhost:3000/mcp",
			ForceLogin:     true,
			Headers:        map[string]string{},
			TimeoutSeconds: 60,
		},
		Logging: LoggingConfig{
			Level:     "info",
			Console:   true,
			Pretty:    true,
			MaxSize:   50,
			MaxAge:    14,
			Compress:  true,
			Redaction: true,
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Addr:    "127.0.0.1:9464",
		},
		Tracing: TracingConfig{
			Enabled:     false,
			ServiceName: "courier",
		},
	}
}

// String returns a JSON representation of the config with the API key masked.
func (c *Config) String() string {
	masked := *c
	if masked.LLM.APIKey != "" {
		masked.LLM.APIKey = "***"
	}
	data, _ := json.MarshalIndent(masked, "", "  ")
	return string(data)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	switch c.LLM.Provider {
	case "openai", "anthropic":
	default:
		return fmt.Errorf("llm.provider: invalid provider %q (must be: openai, anthropic)", c.LLM.Provider)
	}
	if c.LLM.APIKey == "" {
		return fmt.Errorf("llm.api_key is required (set COURIER_LLM_API_KEY or the config file)")
	}
	if c.LLM.Model == "" {
		return fmt.Errorf("llm.model is required")
	}
	if c.LLM.MaxRetries < 0 {
		return fmt.Errorf("llm.max_retries must be >= 0")
	}
	if c.Capability.ServerURL == "" {
		return fmt.Errorf("capability.server_url is required")
	}
	if c.Metrics.Enabled && c.Metrics.Addr == "" {
		return fmt.Errorf("metrics.addr is required when metrics are enabled")
	}
	if c.Audit.Enabled && c.Audit.Path == "" {
		return fmt.Errorf("audit.path is required when audit is enabled")
	}
	return nil
}
