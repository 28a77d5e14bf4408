package agent

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/harun/courier/pkg/capability"
	"github.com/harun/courier/pkg/catalog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// captureServer answers every request with one of the canned bodies in order
// and keeps the decoded request bodies.
type captureServer struct {
	*httptest.Server

	mu       sync.Mutex
	bodies   []map[string]any
	paths    []string
	replies  []string
	status   int
	response int
}

func newCaptureServer(t *testing.T, replies ...string) *captureServer {
	t.Helper()
	cs := &captureServer{replies: replies, status: http.StatusOK}
	cs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		var body map[string]any
		_ = json.Unmarshal(data, &body)

		cs.mu.Lock()
		cs.bodies = append(cs.bodies, body)
		cs.paths = append(cs.paths, r.URL.Path)
		reply := "{}"
		if cs.response < len(cs.replies) {
			reply = cs.replies[cs.response]
		}
		cs.response++
		status := cs.status
		cs.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(reply))
	}))
	t.Cleanup(cs.Close)
	return cs
}

func (cs *captureServer) request(i int) map[string]any {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return cs.bodies[i]
}

func TestProviderFactory(t *testing.T) {
	f := &ProviderFactory{}

	p, err := f.NewProvider(ProviderConfig{Provider: "openai", APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, "openai", p.Provider())

	p, err = f.NewProvider(ProviderConfig{APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, "openai", p.Provider())

	p, err = f.NewProvider(ProviderConfig{Provider: "anthropic", APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, "anthropic", p.Provider())

	_, err = f.NewProvider(ProviderConfig{Provider: "gemini"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported provider")
}

const openAIToolCallReply = `{
  "id": "chatcmpl-1",
  "object": "chat.completion",
  "created": 1700000000,
  "model": "gpt-4o-mini",
  "choices": [{
    "index": 0,
    "finish_reason": "tool_calls",
    "message": {
      "role": "assistant",
      "content": null,
      "tool_calls": [{
        "id": "call_abc",
        "type": "function",
        "function": {"name": "get-mail-message", "arguments": "{\"message_id\":\"AAMk1\"}"}
      }]
    }
  }],
  "usage": {"prompt_tokens": 42, "completion_tokens": 7, "total_tokens": 49}
}`

const openAITextReply = `{
  "id": "chatcmpl-2",
  "object": "chat.completion",
  "created": 1700000001,
  "model": "gpt-4o-mini",
  "choices": [{
    "index": 0,
    "finish_reason": "stop",
    "message": {"role": "assistant", "content": "Lunch is at noon."}
  }],
  "usage": {"prompt_tokens": 60, "completion_tokens": 5, "total_tokens": 65}
}`

func TestOpenAIProviderCall(t *testing.T) {
	srv := newCaptureServer(t, openAIToolCallReply, openAITextReply)
	provider := NewOpenAIProvider(ProviderConfig{BaseURL: srv.URL + "/v1/", APIKey: "test-key"})
	ctx := context.Background()

	history := []Message{
		{Role: RoleSystem, Content: "be helpful"},
		{Role: RoleUser, Content: "what's in message AAMk1?"},
	}

	resp, err := provider.Call(ctx, LLMRequest{
		Model:     "gpt-4o-mini",
		Messages:  history,
		Tools:     catalog.Default().VisibleTools(capability.Authenticated),
		MaxTokens: 256,
	})
	require.NoError(t, err)
	require.Len(t, resp.ToolCalls, 1)
	assert.Equal(t, "call_abc", resp.ToolCalls[0].ID)
	assert.Equal(t, "get-mail-message", resp.ToolCalls[0].Name)
	assert.Equal(t, map[string]any{"message_id": "AAMk1"}, resp.ToolCalls[0].Parameters)
	assert.Equal(t, &TokenUsage{InputTokens: 42, OutputTokens: 7}, resp.Usage)

	first := srv.request(0)
	assert.Equal(t, "/v1/chat/completions", srv.paths[0])
	assert.Equal(t, "gpt-4o-mini", first["model"])
	assert.Equal(t, "auto", first["tool_choice"])
	tools, ok := first["tools"].([]any)
	require.True(t, ok)
	assert.Len(t, tools, 7)

	history = append(history,
		Message{Role: RoleAssistant, ToolCalls: resp.ToolCalls},
		Message{Role: RoleTool, Content: "Subject: Lunch", ToolCallID: "call_abc", Name: "get-mail-message"},
	)
	resp, err = provider.Call(ctx, LLMRequest{Model: "gpt-4o-mini", Messages: history})
	require.NoError(t, err)
	assert.Equal(t, "Lunch is at noon.", resp.Content)
	assert.Empty(t, resp.ToolCalls)

	second := srv.request(1)
	assert.NotContains(t, second, "tools")
	assert.NotContains(t, second, "tool_choice")

	messages, ok := second["messages"].([]any)
	require.True(t, ok)
	require.Len(t, messages, 4)

	assistant := messages[2].(map[string]any)
	assert.Equal(t, "assistant", assistant["role"])
	calls := assistant["tool_calls"].([]any)
	require.Len(t, calls, 1)
	fn := calls[0].(map[string]any)["function"].(map[string]any)
	assert.Equal(t, `{"message_id":"AAMk1"}`, fn["arguments"])

	tool := messages[3].(map[string]any)
	assert.Equal(t, "tool", tool["role"])
	assert.Equal(t, "call_abc", tool["tool_call_id"])
}

func TestOpenAIProviderError(t *testing.T) {
	srv := newCaptureServer(t, `{"error": {"message": "invalid api key", "type": "invalid_request_error"}}`)
	srv.status = http.StatusUnauthorized
	provider := NewOpenAIProvider(ProviderConfig{BaseURL: srv.URL + "/v1/", APIKey: "bad"})

	_, err := provider.Call(context.Background(), LLMRequest{
		Model:    "gpt-4o-mini",
		Messages: []Message{{Role: RoleUser, Content: "hi"}},
	})
	require.Error(t, err)
}

const anthropicToolUseReply = `{
  "id": "msg_1",
  "type": "message",
  "role": "assistant",
  "model": "claude-sonnet-4-5",
  "content": [
    {"type": "text", "text": "Let me check."},
    {"type": "tool_use", "id": "toolu_1", "name": "list-mail-messages", "input": {}}
  ],
  "stop_reason": "tool_use",
  "stop_sequence": null,
  "usage": {"input_tokens": 30, "output_tokens": 12}
}`

const anthropicTextReply = `{
  "id": "msg_2",
  "type": "message",
  "role": "assistant",
  "model": "claude-sonnet-4-5",
  "content": [{"type": "text", "text": "Your inbox is empty."}],
  "stop_reason": "end_turn",
  "stop_sequence": null,
  "usage": {"input_tokens": 50, "output_tokens": 6}
}`

func TestAnthropicProviderCall(t *testing.T) {
	srv := newCaptureServer(t, anthropicToolUseReply, anthropicTextReply)
	provider := NewAnthropicProvider(ProviderConfig{BaseURL: srv.URL + "/", APIKey: "test-key"})
	ctx := context.Background()

	history := []Message{
		{Role: RoleSystem, Content: "be helpful"},
		{Role: RoleUser, Content: "anything new?"},
	}

	resp, err := provider.Call(ctx, LLMRequest{
		Model:    "claude-sonnet-4-5",
		Messages: history,
		Tools:    catalog.Default().VisibleTools(capability.Authenticated),
	})
	require.NoError(t, err)
	assert.Equal(t, "Let me check.", resp.Content)
	require.Len(t, resp.ToolCalls, 1)
	assert.Equal(t, "toolu_1", resp.ToolCalls[0].ID)
	assert.Equal(t, "list-mail-messages", resp.ToolCalls[0].Name)
	assert.Equal(t, &TokenUsage{InputTokens: 30, OutputTokens: 12}, resp.Usage)

	first := srv.request(0)
	assert.Equal(t, "/v1/messages", srv.paths[0])
	assert.EqualValues(t, anthropicDefaultMaxTokens, first["max_tokens"])
	system := first["system"].([]any)
	require.Len(t, system, 1)
	assert.Equal(t, "be helpful", system[0].(map[string]any)["text"])
	assert.Len(t, first["tools"], 7)
	assert.Equal(t, "auto", first["tool_choice"].(map[string]any)["type"])

	history = append(history,
		Message{Role: RoleAssistant, Content: resp.Content, ToolCalls: []ToolCall{
			resp.ToolCalls[0],
			{ID: "toolu_2", Name: "list-mail-folders"},
		}},
		Message{Role: RoleTool, Content: "No messages.", ToolCallID: "toolu_1"},
		Message{Role: RoleTool, Content: ToolErrorPrefix + "Not connected.", ToolCallID: "toolu_2"},
	)
	resp, err = provider.Call(ctx, LLMRequest{Model: "claude-sonnet-4-5", Messages: history, MaxTokens: 300})
	require.NoError(t, err)
	assert.Equal(t, "Your inbox is empty.", resp.Content)

	second := srv.request(1)
	assert.EqualValues(t, 300, second["max_tokens"])
	assert.NotContains(t, second, "tools")

	messages := second["messages"].([]any)
	require.Len(t, messages, 3)

	results := messages[2].(map[string]any)
	assert.Equal(t, "user", results["role"])
	blocks := results["content"].([]any)
	require.Len(t, blocks, 2)

	ok := blocks[0].(map[string]any)
	assert.Equal(t, "tool_result", ok["type"])
	assert.Equal(t, "toolu_1", ok["tool_use_id"])
	assert.Equal(t, false, ok["is_error"])

	failed := blocks[1].(map[string]any)
	assert.Equal(t, "toolu_2", failed["tool_use_id"])
	assert.Equal(t, true, failed["is_error"])
}

func TestAnthropicProviderSkipsEmptyAssistantTurns(t *testing.T) {
	srv := newCaptureServer(t, anthropicTextReply)
	provider := NewAnthropicProvider(ProviderConfig{BaseURL: srv.URL + "/", APIKey: "test-key"})

	_, err := provider.Call(context.Background(), LLMRequest{
		Model: "claude-sonnet-4-5",
		Messages: []Message{
			{Role: RoleUser, Content: "hello"},
			{Role: RoleAssistant},
			{Role: RoleUser, Content: "anything new?"},
		},
	})
	require.NoError(t, err)

	messages := srv.request(0)["messages"].([]any)
	require.Len(t, messages, 2)
	for _, m := range messages {
		msg := m.(map[string]any)
		assert.Equal(t, "user", msg["role"])
		for _, b := range msg["content"].([]any) {
			assert.NotEmpty(t, b.(map[string]any)["text"])
		}
	}
}

func TestRequiredFields(t *testing.T) {
	assert.Equal(t, []string{"a"}, requiredFields([]string{"a"}))
	assert.Equal(t, []string{"a", "b"}, requiredFields([]any{"a", 1, "b"}))
	assert.Nil(t, requiredFields(nil))
}
