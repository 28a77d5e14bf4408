package agent

import (
	"encoding/json"
	"fmt"
)

// Role identifies the author of a message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ToolErrorPrefix marks a tool result that reports a failure.
const ToolErrorPrefix = "Error: "

// Message is one entry of the conversation history.
type Message struct {
	Role       Role       `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	Name       string     `json:"name,omitempty"`
}

// ToolCall is a tool-call intent issued by the model.
type ToolCall struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	Parameters map[string]any `json:"parameters"`

	// RawArguments is the argument string exactly as the model produced it.
	RawArguments string `json:"raw_arguments,omitempty"`

	// ArgumentsError is set when RawArguments could not be decoded.
	ArgumentsError string `json:"arguments_error,omitempty"`
}

// NewToolCall decodes the model's argument string. An undecodable string
// still yields a ToolCall so the failure can be reported back as a tool result.
func NewToolCall(id, name, rawArguments string) ToolCall {
	tc := ToolCall{ID: id, Name: name, RawArguments: rawArguments, Parameters: map[string]any{}}
	if rawArguments == "" {
		return tc
	}
	var params map[string]any
	if err := json.Unmarshal([]byte(rawArguments), &params); err != nil {
		tc.ArgumentsError = err.Error()
		return tc
	}
	if params != nil {
		tc.Parameters = params
	}
	return tc
}

// ArgumentsJSON returns the argument string to replay to a provider.
func (tc ToolCall) ArgumentsJSON() (string, error) {
	if tc.RawArguments != "" {
		return tc.RawArguments, nil
	}
	if tc.Parameters == nil {
		return "{}", nil
	}
	data, err := json.Marshal(tc.Parameters)
	if err != nil {
		return "", fmt.Errorf("failed to marshal tool parameters: %w", err)
	}
	return string(data), nil
}

// TokenUsage tracks token consumption
type TokenUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// Add accumulates another usage sample.
func (u *TokenUsage) Add(other *TokenUsage) {
	if other == nil {
		return
	}
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
}

// TurnResult is the outcome of a successful turn.
type TurnResult struct {
	Reply     string     `json:"reply"`
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
	Usage     TokenUsage `json:"usage"`
}

func cloneMessage(m Message) Message {
	if m.ToolCalls != nil {
		calls := make([]ToolCall, len(m.ToolCalls))
		for i, tc := range m.ToolCalls {
			calls[i] = tc
			calls[i].Parameters = cloneParams(tc.Parameters)
		}
		m.ToolCalls = calls
	}
	return m
}

func cloneParams(p map[string]any) map[string]any {
	if p == nil {
		return nil
	}
	out := make(map[string]any, len(p))
	for k, v := range p {
		switch val := v.(type) {
		case map[string]any:
			out[k] = cloneParams(val)
		case []any:
			items := make([]any, len(val))
			for i, item := range val {
				if m, ok := item.(map[string]any); ok {
					items[i] = cloneParams(m)
				} else {
					items[i] = item
				}
			}
			out[k] = items
		default:
			out[k] = val
		}
	}
	return out
}
