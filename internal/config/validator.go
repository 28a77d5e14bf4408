package config

import (
	"fmt"
	"net/url"
	"strings"
)

// Validator validates individual configuration values. Its findings are
// advisory; Config.Validate decides whether the process can start.
type Validator struct{}

// NewValidator creates a new validator
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateProvider validates the LLM provider name.
func (v *Validator) ValidateProvider(provider string) error {
	switch provider {
	case "openai", "anthropic":
		return nil
	}
	return fmt.Errorf("invalid provider: %q (must be one of: openai, anthropic)", provider)
}

// ValidateAPIKey checks the key shape for the hosted APIs. Keys for custom
// base URLs are only required to be non-empty.
func (v *Validator) ValidateAPIKey(key, provider, baseURL string) error {
	if key == "" {
		return fmt.Errorf("%s API key cannot be empty", provider)
	}

	switch {
	case provider == "anthropic" && isHosted(baseURL, "api.anthropic.com"):
		if !strings.HasPrefix(key, "sk-ant-") {
			return fmt.Errorf("invalid Anthropic API key format (should start with sk-ant-)")
		}
	case provider == "openai" && isHosted(baseURL, "api.openai.com"):
		if !strings.HasPrefix(key, "sk-") {
			return fmt.Errorf("invalid OpenAI API key format (should start with sk-)")
		}
	}
	return nil
}

func isHosted(baseURL, host string) bool {
	if baseURL == "" {
		return true
	}
	u, err := url.Parse(baseURL)
	return err == nil && u.Hostname() == host
}

// ValidateServerURL validates the capability server endpoint.
func (v *Validator) ValidateServerURL(raw string) error {
	if raw == "" {
		return fmt.Errorf("capability server URL cannot be empty")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid capability server URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("capability server URL must use http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("capability server URL has no host")
	}
	return nil
}

// ValidateTemperature validates temperature value
func (v *Validator) ValidateTemperature(temp float64) error {
	if temp < 0 || temp > 2 {
		return fmt.Errorf("temperature must be between 0 and 2, got %g", temp)
	}
	return nil
}

// ValidateMaxTokens validates max tokens value
func (v *Validator) ValidateMaxTokens(tokens int) error {
	if tokens < 0 {
		return fmt.Errorf("max tokens must not be negative, got %d", tokens)
	}
	if tokens > 200000 {
		return fmt.Errorf("max tokens too large (max 200000), got %d", tokens)
	}
	return nil
}

// ValidateLogLevel validates log level
func (v *Validator) ValidateLogLevel(level string) error {
	validLevels := []string{"debug", "info", "warn", "error"}
	for _, valid := range validLevels {
		if level == valid {
			return nil
		}
	}
	return fmt.Errorf("invalid log level: %s (must be one of: %s)", level, strings.Join(validLevels, ", "))
}

// ValidateConfig collects every finding instead of stopping at the first.
func (v *Validator) ValidateConfig(cfg *Config) []error {
	var errs []error
	add := func(section string, err error) {
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", section, err))
		}
	}

	add("llm.provider", v.ValidateProvider(cfg.LLM.Provider))
	add("llm.api_key", v.ValidateAPIKey(cfg.LLM.APIKey, cfg.LLM.Provider, cfg.LLM.BaseURL))
	if cfg.LLM.Model == "" {
		add("llm.model", fmt.Errorf("model name cannot be empty"))
	}
	add("llm.temperature", v.ValidateTemperature(cfg.LLM.Temperature))
	add("llm.max_tokens", v.ValidateMaxTokens(cfg.LLM.MaxTokens))
	add("capability.server_url", v.ValidateServerURL(cfg.Capability.ServerURL))
	add("logging.level", v.ValidateLogLevel(cfg.Logging.Level))

	return errs
}
