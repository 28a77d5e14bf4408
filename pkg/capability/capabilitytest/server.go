// Package capabilitytest provides an in-process capability server for tests:
// a streamable-HTTP MCP server with the device-login pair of tools plus
// caller-supplied domain tools.
package capabilitytest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Default device-login texts.
const (
	DefaultLoginText    = "To sign in, open https://microsoft.com/devicelogin and enter the code ABCD-1234."
	DefaultVerification = `{"success":true,"userData":{"displayName":"A. Lee"}}`
)

// Handler answers one domain tool call.
type Handler func(args map[string]any) *mcp.CallToolResult

// Server is a capability server running on an httptest listener.
type Server struct {
	*httptest.Server

	mu           sync.Mutex
	loginText    string
	verification string
	calls        []string
	args         map[string]map[string]any
	posts        int
	deletes      int
}

// NewServer starts a server exposing login, verify-login and the given
// domain tools. It is closed when the test ends.
func NewServer(t testing.TB, tools map[string]Handler) *Server {
	t.Helper()

	s := &Server{
		loginText:    DefaultLoginText,
		verification: DefaultVerification,
		args:         make(map[string]map[string]any),
	}

	server := mcp.NewServer(&mcp.Implementation{Name: "capabilitytest", Version: "1.0.0"}, nil)
	s.addTool(server, "login", func(map[string]any) *mcp.CallToolResult {
		return s.textResult(func() string { return s.loginText })
	})
	s.addTool(server, "verify-login", func(map[string]any) *mcp.CallToolResult {
		return s.textResult(func() string { return s.verification })
	})
	for name, h := range tools {
		s.addTool(server, name, h)
	}

	handler := mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server { return server }, nil)
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		switch r.Method {
		case http.MethodGet:
			// No server-initiated stream.
			s.mu.Unlock()
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		case http.MethodDelete:
			s.deletes++
		case http.MethodPost:
			s.posts++
		}
		s.mu.Unlock()
		handler.ServeHTTP(w, r)
	}))
	t.Cleanup(s.Close)
	return s
}

func (s *Server) addTool(server *mcp.Server, name string, h Handler) {
	mcp.AddTool(server, &mcp.Tool{Name: name}, func(ctx context.Context, req *mcp.CallToolRequest, args map[string]any) (*mcp.CallToolResult, any, error) {
		s.mu.Lock()
		s.calls = append(s.calls, name)
		s.args[name] = args
		s.mu.Unlock()
		return h(args), nil, nil
	})
}

// textResult returns a single text block, or an empty envelope when the
// configured text is empty.
func (s *Server) textResult(text func() string) *mcp.CallToolResult {
	s.mu.Lock()
	value := text()
	s.mu.Unlock()
	if value == "" {
		return &mcp.CallToolResult{Content: []mcp.Content{}}
	}
	return Text(value)
}

// SetLoginText replaces the login instructions. An empty text makes login
// return no content.
func (s *Server) SetLoginText(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loginText = text
}

// SetVerification replaces the verify-login payload.
func (s *Server) SetVerification(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.verification = text
}

// Calls returns the names of the tools called so far, in order.
func (s *Server) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

// Arguments returns the arguments of the last call to the named tool.
func (s *Server) Arguments(name string) map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.args[name]
}

// Posts returns the number of POST requests received.
func (s *Server) Posts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.posts
}

// Deletes returns the number of session terminations received.
func (s *Server) Deletes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deletes
}

// Text builds a successful result with one text block.
func Text(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: text}}}
}

// Error builds a tool error result with one text block.
func Error(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{IsError: true, Content: []mcp.Content{&mcp.TextContent{Text: text}}}
}
