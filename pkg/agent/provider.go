package agent

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"time"

	"github.com/harun/courier/pkg/catalog"
)

// LLMProvider is an interface for LLM API providers
type LLMProvider interface {
	// Call makes an LLM API call
	Call(ctx context.Context, request LLMRequest) (*LLMResponse, error)

	// Provider returns the provider name
	Provider() string
}

// LLMRequest contains the request parameters for LLM call
type LLMRequest struct {
	Model    string
	Messages []Message

	// Tools offered to the model. When empty the request carries no tools
	// and no tool choice.
	Tools []catalog.Descriptor

	Temperature float64
	MaxTokens   int
}

// LLMResponse contains the response from LLM
type LLMResponse struct {
	Content   string
	ToolCalls []ToolCall
	Usage     *TokenUsage
}

// ProviderConfig selects and configures an LLM provider.
type ProviderConfig struct {
	Provider string // openai, anthropic
	BaseURL  string
	APIKey   string

	// MaxRetries is handed to the SDK, which retries connection errors,
	// 408, 409, 429 and 5xx with backoff.
	MaxRetries int
	Timeout    time.Duration

	InsecureSkipVerify bool
	DisableProxy       bool

	// HTTPClient overrides the client built from the fields above.
	HTTPClient *http.Client
}

// ProviderFactory creates LLM providers
type ProviderFactory struct{}

// NewProvider creates a new LLM provider from its configuration
func (f *ProviderFactory) NewProvider(cfg ProviderConfig) (LLMProvider, error) {
	switch cfg.Provider {
	case "openai", "":
		return NewOpenAIProvider(cfg), nil
	case "anthropic":
		return NewAnthropicProvider(cfg), nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", cfg.Provider)
	}
}

// httpClient builds the HTTP client shared by SDK-backed providers.
func (cfg ProviderConfig) httpClient() *http.Client {
	if cfg.HTTPClient != nil {
		return cfg.HTTPClient
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.DisableProxy {
		transport.Proxy = nil
	}
	if cfg.InsecureSkipVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // opt-in for self-signed gateways
	}
	return &http.Client{Transport: transport}
}
