package agent

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/harun/courier/internal/observability"
	"github.com/harun/courier/internal/tracing"
	"github.com/harun/courier/pkg/capability"
	"github.com/harun/courier/pkg/catalog"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
)

// DefaultSystemPrompt is used when Config.SystemPrompt is empty.
const DefaultSystemPrompt = "You are a helpful assistant that can connect to Microsoft 365. " +
	"You must first call the 'connect_and_authenticate' tool. " +
	"Once connected, you can use other Microsoft 365 tools to help the user."

const cancelledToolResult = ToolErrorPrefix + "turn cancelled before tool ran"

// SessionState reports the capability session's authentication state.
type SessionState interface {
	State() capability.AuthState
}

// ToolCatalog supplies the tools visible in a given state.
type ToolCatalog interface {
	VisibleTools(state capability.AuthState) []catalog.Descriptor
}

// ToolInvoker executes a tool-call intent and always returns text.
type ToolInvoker interface {
	Invoke(ctx context.Context, call ToolCall) string
}

// Config holds conversation configuration
type Config struct {
	Provider LLMProvider
	Session  SessionState
	Catalog  ToolCatalog
	Invoker  ToolInvoker

	SystemPrompt string
	Model        string
	MaxTokens    int
	Temperature  float64

	Logger zerolog.Logger
}

// Conversation owns one conversation history and runs turns against it.
type Conversation struct {
	id       string
	provider LLMProvider
	session  SessionState
	catalog  ToolCatalog
	invoker  ToolInvoker
	model    string
	maxTok   int
	temp     float64
	logger   zerolog.Logger

	mu      sync.Mutex
	history []Message
}

// NewConversation creates a conversation whose history holds only the
// system directive.
func NewConversation(cfg Config) (*Conversation, error) {
	observability.EnsureRegistered()

	if cfg.Provider == nil {
		return nil, fmt.Errorf("provider is required")
	}
	if cfg.Session == nil {
		return nil, fmt.Errorf("session is required")
	}
	if cfg.Catalog == nil {
		return nil, fmt.Errorf("catalog is required")
	}
	if cfg.Invoker == nil {
		return nil, fmt.Errorf("invoker is required")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("model is required")
	}

	prompt := cfg.SystemPrompt
	if prompt == "" {
		prompt = DefaultSystemPrompt
	}

	return &Conversation{
		id:       tracing.NewConversationID(),
		provider: cfg.Provider,
		session:  cfg.Session,
		catalog:  cfg.Catalog,
		invoker:  cfg.Invoker,
		model:    cfg.Model,
		maxTok:   cfg.MaxTokens,
		temp:     cfg.Temperature,
		logger:   cfg.Logger,
		history:  []Message{{Role: RoleSystem, Content: prompt}},
	}, nil
}

// ID returns the conversation id used in logs and traces.
func (c *Conversation) ID() string {
	return c.id
}

// History returns a copy of the conversation history.
func (c *Conversation) History() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Message, len(c.history))
	for i, m := range c.history {
		out[i] = cloneMessage(m)
	}
	return out
}

// Reset drops everything but the system directive.
func (c *Conversation) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.history = []Message{c.history[0]}
	observability.SetHistorySize(len(c.history))
}

// RunTurn appends the user's text, asks the model for a reply and, when the
// model requests tools, runs them in order and asks once more for the final
// reply. Turns are serialized.
//
// A *TransportError on the first completion leaves history exactly as it was
// before the call. A *TransportError on the follow-up completion keeps the
// user message, the tool intents and their results.
func (c *Conversation) RunTurn(ctx context.Context, userText string) (*TurnResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ctx = tracing.NewTurnContext(ctx, c.id)
	ctx, span := tracing.StartSpan(ctx, "courier.agent", "agent.turn",
		attribute.String("conversation.id", c.id),
		attribute.String("llm.provider", c.provider.Provider()),
		attribute.String("llm.model", c.model),
	)
	logger := tracing.LoggerFromContext(ctx, c.logger)
	start := time.Now()

	result, outcome, err := c.runTurn(ctx, logger, userText)

	span.SetAttributes(attribute.String("turn.outcome", outcome))
	tracing.EndSpan(span, err)
	observability.RecordTurn(outcome, time.Since(start), len(c.history))

	return result, err
}

func (c *Conversation) runTurn(ctx context.Context, logger zerolog.Logger, userText string) (*TurnResult, string, error) {
	mark := len(c.history)
	c.history = append(c.history, Message{Role: RoleUser, Content: userText})

	state := c.session.State()
	tools := c.catalog.VisibleTools(state)
	logger.Debug().
		Str("auth_state", state.String()).
		Int("tools", len(tools)).
		Msg("Requesting completion")

	result := &TurnResult{}

	resp, err := c.complete(ctx, PhaseInitial, tools)
	if err != nil {
		c.history[mark] = Message{}
		c.history = c.history[:mark]
		logger.Error().Err(err).Msg("Completion failed, user message rolled back")
		return nil, "rolled_back", err
	}
	result.Usage.Add(resp.Usage)

	if len(resp.ToolCalls) == 0 {
		c.history = append(c.history, Message{Role: RoleAssistant, Content: resp.Content})
		result.Reply = resp.Content
		return result, "reply", nil
	}

	intent := cloneMessage(Message{
		Role:      RoleAssistant,
		Content:   resp.Content,
		ToolCalls: resp.ToolCalls,
	})
	c.history = append(c.history, intent)
	result.ToolCalls = cloneMessage(intent).ToolCalls

	for _, call := range resp.ToolCalls {
		content := cancelledToolResult
		if ctx.Err() == nil {
			logger.Info().Str("tool", call.Name).Str("tool_call_id", call.ID).Msg("Running tool")
			content = c.invoker.Invoke(ctx, call)
		} else {
			logger.Warn().Str("tool", call.Name).Msg("Turn cancelled, tool skipped")
		}

		c.history = append(c.history, Message{
			Role:       RoleTool,
			Content:    content,
			ToolCallID: call.ID,
			Name:       call.Name,
		})
	}

	final, err := c.complete(ctx, PhaseFollowUp, nil)
	if err != nil {
		logger.Error().Err(err).Msg("Follow-up completion failed")
		return nil, "failed", err
	}
	result.Usage.Add(final.Usage)

	if len(final.ToolCalls) > 0 {
		logger.Warn().Int("tool_calls", len(final.ToolCalls)).Msg("Ignoring tool calls in follow-up completion")
	}

	c.history = append(c.history, Message{Role: RoleAssistant, Content: final.Content})
	result.Reply = final.Content
	return result, "tool_reply", nil
}

func (c *Conversation) complete(ctx context.Context, phase string, tools []catalog.Descriptor) (*LLMResponse, error) {
	ctx, span := tracing.StartSpan(ctx, "courier.agent", "llm.completion",
		attribute.String("llm.phase", phase),
		attribute.Int("llm.tools", len(tools)),
	)

	messages := make([]Message, len(c.history))
	copy(messages, c.history)

	start := time.Now()
	resp, err := c.provider.Call(ctx, LLMRequest{
		Model:       c.model,
		Messages:    messages,
		Tools:       tools,
		Temperature: c.temp,
		MaxTokens:   c.maxTok,
	})
	observability.RecordCompletion(c.provider.Provider(), phase, time.Since(start), err == nil)

	if err == nil && resp == nil {
		err = fmt.Errorf("provider returned no response")
	}
	if err != nil {
		err = &TransportError{Phase: phase, Provider: c.provider.Provider(), Err: err}
		tracing.EndSpan(span, err)
		return nil, err
	}

	if resp.Usage != nil {
		observability.RecordTokens(c.provider.Provider(), resp.Usage.InputTokens, resp.Usage.OutputTokens)
		span.SetAttributes(
			attribute.Int("llm.input_tokens", resp.Usage.InputTokens),
			attribute.Int("llm.output_tokens", resp.Usage.OutputTokens),
		)
	}
	tracing.EndSpan(span, nil)
	return resp, nil
}
