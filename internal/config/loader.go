package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override, e.g. COURIER_LLM_API_KEY.
const EnvPrefix = "COURIER"

// Loader handles configuration loading
type Loader struct {
	configPath string
}

// NewLoader creates a new config loader
func NewLoader(configPath string) *Loader {
	return &Loader{
		configPath: configPath,
	}
}

// DefaultDataDir returns ~/.courier.
func DefaultDataDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".courier"), nil
}

// Load reads the config file, when present, and applies environment
// overrides on top of the defaults. A missing file is not an error.
func (l *Loader) Load() (*Config, error) {
	configPath := l.GetConfigPath()

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindDefaults(v, DefaultConfig())

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			v.SetConfigFile(configPath)
			v.SetConfigType(configType(configPath))
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to stat config file: %w", err)
		}
	}

	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.DataDir == "" {
		dir, err := DefaultDataDir()
		if err != nil {
			return nil, err
		}
		cfg.DataDir = dir
	}
	if cfg.Logging.File == "" {
		cfg.Logging.File = filepath.Join(cfg.DataDir, "courier.log")
	}
	if cfg.Audit.Enabled && cfg.Audit.Path == "" {
		cfg.Audit.Path = filepath.Join(cfg.DataDir, "audit.jsonl")
	}

	return cfg, nil
}

// bindDefaults registers every key so AutomaticEnv can override keys that
// are absent from the file.
func bindDefaults(v *viper.Viper, cfg *Config) {
	d := map[string]any{
		"llm.provider":             cfg.LLM.Provider,
		"llm.base_url":             cfg.LLM.BaseURL,
		"llm.api_key":              cfg.LLM.APIKey,
		"llm.model":                cfg.LLM.Model,
		"llm.max_tokens":           cfg.LLM.MaxTokens,
		"llm.temperature":          cfg.LLM.Temperature,
		"llm.max_retries":          cfg.LLM.MaxRetries,
		"llm.timeout_seconds":      cfg.LLM.TimeoutSeconds,
		"llm.insecure_skip_verify": cfg.LLM.InsecureSkipVerify,
		"llm.disable_proxy":        cfg.LLM.DisableProxy,

		"capability.server_url":      cfg.Capability.ServerURL,
		"capability.force_login":     cfg.Capability.ForceLogin,
		"capability.timeout_seconds": cfg.Capability.TimeoutSeconds,

		"agent.system_prompt": cfg.Agent.SystemPrompt,
		"catalog.path":        cfg.Catalog.Path,

		"logging.level":     cfg.Logging.Level,
		"logging.file":      cfg.Logging.File,
		"logging.console":   cfg.Logging.Console,
		"logging.pretty":    cfg.Logging.Pretty,
		"logging.max_size":  cfg.Logging.MaxSize,
		"logging.max_age":   cfg.Logging.MaxAge,
		"logging.compress":  cfg.Logging.Compress,
		"logging.redaction": cfg.Logging.Redaction,

		"metrics.enabled": cfg.Metrics.Enabled,
		"metrics.addr":    cfg.Metrics.Addr,

		"tracing.enabled":      cfg.Tracing.Enabled,
		"tracing.service_name": cfg.Tracing.ServiceName,

		"audit.enabled": cfg.Audit.Enabled,
		"audit.path":    cfg.Audit.Path,

		"data_dir": cfg.DataDir,
	}
	for key, value := range d {
		v.SetDefault(key, value)
	}
}

func configType(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return "json"
	default:
		return "yaml"
	}
}

// Save writes cfg to the config path as YAML, or JSON for a .json path.
// The file is created with 0600 since it may hold an API key.
func (l *Loader) Save(cfg *Config) error {
	configPath := l.GetConfigPath()
	if configPath == "" {
		return fmt.Errorf("no config path")
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0o700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	var (
		data []byte
		err  error
	)
	if configType(configPath) == "json" {
		data, err = json.MarshalIndent(cfg, "", "  ")
	} else {
		data, err = yaml.Marshal(cfg)
	}
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// GetConfigPath returns the config file path
func (l *Loader) GetConfigPath() string {
	if l.configPath != "" {
		return l.configPath
	}

	dir, err := DefaultDataDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "config.yaml")
}

// Load is a convenience function that creates a loader and loads the config
func Load(configPath string) (*Config, error) {
	return NewLoader(configPath).Load()
}
