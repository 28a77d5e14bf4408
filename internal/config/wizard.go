package config

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Wizard provides an interactive configuration wizard
type Wizard struct {
	reader *bufio.Reader
	out    io.Writer
}

// NewWizard creates a wizard reading answers from in and prompting on out.
func NewWizard(in io.Reader, out io.Writer) *Wizard {
	return &Wizard{
		reader: bufio.NewReader(in),
		out:    out,
	}
}

// Run asks for the settings needed to chat, starting from base. Empty
// answers keep the current value.
func (w *Wizard) Run(base *Config) (*Config, error) {
	cfg := *base
	validator := NewValidator()

	fmt.Fprintln(w.out, "=== courier configuration ===")
	fmt.Fprintln(w.out)

	provider, err := w.askValid("LLM provider (openai/anthropic)", cfg.LLM.Provider, validator.ValidateProvider)
	if err != nil {
		return nil, err
	}
	if provider != cfg.LLM.Provider {
		cfg.LLM.Provider = provider
		if provider == "anthropic" {
			cfg.LLM.BaseURL = "https://api.anthropic.com"
			cfg.LLM.Model = "claude-sonnet-4-5"
		}
	}

	if cfg.LLM.BaseURL, err = w.ask("API base URL", cfg.LLM.BaseURL); err != nil {
		return nil, err
	}

	current := ""
	if cfg.LLM.APIKey != "" {
		current = "keep existing"
	}
	for {
		key, err := w.ask("API key", current)
		if err != nil {
			return nil, err
		}
		if key == "keep existing" {
			break
		}
		if err := validator.ValidateAPIKey(key, cfg.LLM.Provider, cfg.LLM.BaseURL); err != nil {
			fmt.Fprintf(w.out, "Error: %v\n", err)
			continue
		}
		cfg.LLM.APIKey = key
		break
	}

	if cfg.LLM.Model, err = w.ask("Model", cfg.LLM.Model); err != nil {
		return nil, err
	}

	fmt.Fprintln(w.out)
	if cfg.Capability.ServerURL, err = w.askValid("Capability server URL", cfg.Capability.ServerURL, validator.ValidateServerURL); err != nil {
		return nil, err
	}

	level, err := w.ask("Log level (debug/info/warn/error)", cfg.Logging.Level)
	if err != nil {
		return nil, err
	}
	if err := validator.ValidateLogLevel(level); err != nil {
		fmt.Fprintf(w.out, "Warning: %v, keeping %s\n", err, cfg.Logging.Level)
	} else {
		cfg.Logging.Level = level
	}

	fmt.Fprintln(w.out)
	fmt.Fprintln(w.out, "Configuration complete!")
	return &cfg, nil
}

func (w *Wizard) askValid(prompt, current string, validate func(string) error) (string, error) {
	for {
		answer, err := w.ask(prompt, current)
		if err != nil {
			return "", err
		}
		if err := validate(answer); err != nil {
			fmt.Fprintf(w.out, "Error: %v\n", err)
			continue
		}
		return answer, nil
	}
}

func (w *Wizard) ask(prompt, current string) (string, error) {
	if current != "" {
		fmt.Fprintf(w.out, "%s [%s]: ", prompt, current)
	} else {
		fmt.Fprintf(w.out, "%s: ", prompt)
	}

	line, err := w.reader.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", fmt.Errorf("configuration aborted: %w", err)
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return current, nil
	}
	return line, nil
}
