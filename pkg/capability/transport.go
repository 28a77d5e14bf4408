package capability

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog"
)

// Conn is an initialized MCP client session. *mcp.ClientSession implements it.
type Conn interface {
	CallTool(ctx context.Context, params *mcp.CallToolParams) (*mcp.CallToolResult, error)
	ListTools(ctx context.Context, params *mcp.ListToolsParams) (*mcp.ListToolsResult, error)
	Close() error
}

// Dialer opens and initializes a Conn. Session calls it once per Connect.
type Dialer func(ctx context.Context) (Conn, error)

// HTTPConfig configures the streamable-HTTP dialer.
type HTTPConfig struct {
	// URL is the capability server endpoint, e.g. http://localhost:3000/mcp.
	URL string

	// Headers are sent with every request.
	Headers map[string]string

	// Client overrides the HTTP client.
	Client *http.Client

	// Timeout bounds the handshake and each tool call. Zero means 60s.
	Timeout time.Duration

	ClientName    string
	ClientVersion string

	Logger zerolog.Logger
}

// HTTPDialer returns a Dialer that opens a fresh MCP session over
// streamable HTTP. The initialize handshake happens inside the dial.
func HTTPDialer(cfg HTTPConfig) Dialer {
	return func(ctx context.Context) (Conn, error) {
		if cfg.URL == "" {
			return nil, fmt.Errorf("capability server URL is required")
		}

		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 60 * time.Second
		}

		httpClient := cfg.Client
		if httpClient == nil {
			httpClient = &http.Client{}
		}
		if len(cfg.Headers) > 0 {
			base := httpClient.Transport
			if base == nil {
				base = http.DefaultTransport
			}
			clone := *httpClient
			clone.Transport = &headerTransport{base: base, headers: cfg.Headers}
			httpClient = &clone
		}

		name, version := cfg.ClientName, cfg.ClientVersion
		if name == "" {
			name = "courier"
		}
		if version == "" {
			version = "0.0.0"
		}

		client := mcp.NewClient(&mcp.Implementation{Name: name, Version: version}, nil)
		transport := &mcp.StreamableClientTransport{Endpoint: cfg.URL, HTTPClient: httpClient}

		dialCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		session, err := client.Connect(dialCtx, transport, nil)
		if err != nil {
			return nil, fmt.Errorf("connect to %s: %w", cfg.URL, err)
		}
		cfg.Logger.Debug().Str("session_id", session.ID()).Msg("Capability session opened")

		return &timeoutConn{Conn: session, timeout: timeout}, nil
	}
}

// headerTransport adds fixed headers to every request.
type headerTransport struct {
	base    http.RoundTripper
	headers map[string]string
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	for k, v := range t.headers {
		req.Header.Set(k, v)
	}
	return t.base.RoundTrip(req)
}

// timeoutConn bounds each request sent on an otherwise long-lived session.
type timeoutConn struct {
	Conn
	timeout time.Duration
}

func (c *timeoutConn) CallTool(ctx context.Context, params *mcp.CallToolParams) (*mcp.CallToolResult, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return c.Conn.CallTool(ctx, params)
}

func (c *timeoutConn) ListTools(ctx context.Context, params *mcp.ListToolsParams) (*mcp.ListToolsResult, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return c.Conn.ListTools(ctx, params)
}

// firstText returns the text of the first content element, or "" when the
// envelope is empty or starts with non-text content.
func firstText(result *mcp.CallToolResult) string {
	if result == nil || len(result.Content) == 0 {
		return ""
	}
	if text, ok := result.Content[0].(*mcp.TextContent); ok {
		return text.Text
	}
	return ""
}
