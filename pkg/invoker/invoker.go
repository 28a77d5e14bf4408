// Package invoker turns tool-call intents into text results. Every failure
// becomes an error-prefixed string, since the tool-result channel is the
// only feedback path to the model.
package invoker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/harun/courier/internal/observability"
	"github.com/harun/courier/internal/tracing"
	"github.com/harun/courier/pkg/agent"
	"github.com/harun/courier/pkg/capability"
	"github.com/harun/courier/pkg/catalog"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
)

// Session is the part of capability.Session the invoker drives.
type Session interface {
	Connect(ctx context.Context) (string, error)
	Call(ctx context.Context, name string, args map[string]any) (string, error)
	Identity() string
	State() capability.AuthState
}

// ArgumentValidator checks arguments before they reach the server.
type ArgumentValidator interface {
	ValidateArguments(name string, args map[string]any) error
}

// Config holds invoker configuration
type Config struct {
	Session   Session
	Validator ArgumentValidator
	Logger    zerolog.Logger
}

// Invoker routes intents to the bootstrap login or to a session call.
type Invoker struct {
	session   Session
	validator ArgumentValidator
	logger    zerolog.Logger
}

// New creates an invoker. Validator is optional.
func New(cfg Config) (*Invoker, error) {
	observability.EnsureRegistered()

	if cfg.Session == nil {
		return nil, fmt.Errorf("session is required")
	}
	return &Invoker{
		session:   cfg.Session,
		validator: cfg.Validator,
		logger:    cfg.Logger,
	}, nil
}

// Invoke executes the intent and returns its textual outcome. It never fails.
func (inv *Invoker) Invoke(ctx context.Context, call agent.ToolCall) string {
	ctx, span := tracing.StartSpan(ctx, "courier.invoker", "tool.invoke",
		attribute.String("tool.name", call.Name),
		attribute.String("tool.call_id", call.ID),
	)
	logger := tracing.LoggerFromContext(ctx, inv.logger)
	start := time.Now()

	text, err := inv.invoke(ctx, call)

	kind := errorKind(err)
	elapsed := time.Since(start)
	observability.RecordToolExecution(call.Name, elapsed, kind)
	tracing.EndSpan(span, err)

	status := "success"
	if err != nil {
		status = "failure"
		logger.Warn().Err(err).Str("tool", call.Name).Str("kind", kind).Msg("Tool invocation failed")
	} else {
		logger.Debug().Str("tool", call.Name).Dur("duration", elapsed).Int("result_len", len(text)).Msg("Tool invocation succeeded")
	}
	observability.RecordToolAudit(ctx, call.Name, inv.session.Identity(), status, map[string]any{
		"tool_call_id": call.ID,
		"duration_ms":  elapsed.Milliseconds(),
	})

	return text
}

func (inv *Invoker) invoke(ctx context.Context, call agent.ToolCall) (string, error) {
	if call.Name == catalog.BootstrapName {
		identity, err := inv.session.Connect(ctx)
		if err != nil {
			return agent.ToolErrorPrefix + fmt.Sprintf("Failed to connect and authenticate: %v", err), err
		}
		return fmt.Sprintf("Successfully connected and authenticated to Microsoft 365 as %s.", identity), nil
	}

	// Not being signed in outranks any problem with the arguments.
	if state := inv.session.State(); state != capability.Authenticated {
		err := &capability.NotConnectedError{State: state}
		return Describe(call.Name, err), err
	}

	if call.ArgumentsError != "" {
		err := fmt.Errorf("arguments for %s are not valid JSON: %s", call.Name, call.ArgumentsError)
		return agent.ToolErrorPrefix + err.Error(), &argumentsError{err}
	}

	if inv.validator != nil {
		if err := inv.validator.ValidateArguments(call.Name, call.Parameters); err != nil {
			return agent.ToolErrorPrefix + fmt.Sprintf("%s rejected: %v", call.Name, err), &argumentsError{err}
		}
	}

	text, err := inv.session.Call(ctx, call.Name, call.Parameters)
	if err != nil {
		return Describe(call.Name, err), err
	}
	return text, nil
}

// Describe renders a session error as tool-result text.
func Describe(tool string, err error) string {
	var (
		notConnected *capability.NotConnectedError
		notFound     *capability.ToolNotFoundError
		remote       *capability.RemoteCallError
	)
	switch {
	case errors.As(err, &notConnected):
		return agent.ToolErrorPrefix + "Not connected. Please call '" + catalog.BootstrapName + "' first."
	case errors.As(err, &notFound):
		return agent.ToolErrorPrefix + fmt.Sprintf("The tool '%s' is not available.", tool)
	case errors.As(err, &remote):
		return agent.ToolErrorPrefix + fmt.Sprintf("executing tool %s failed: %v", tool, remote.Err)
	default:
		return agent.ToolErrorPrefix + fmt.Sprintf("executing tool %s failed: %v", tool, err)
	}
}

type argumentsError struct {
	err error
}

func (e *argumentsError) Error() string { return e.err.Error() }
func (e *argumentsError) Unwrap() error { return e.err }

func errorKind(err error) string {
	if err == nil {
		return ""
	}

	var (
		args         *argumentsError
		notConnected *capability.NotConnectedError
		notFound     *capability.ToolNotFoundError
		remote       *capability.RemoteCallError
		auth         *capability.AuthenticationError
		protocol     *capability.ProtocolError
	)
	switch {
	case errors.As(err, &args):
		return "invalid_arguments"
	case errors.As(err, &notConnected):
		return "not_connected"
	case errors.As(err, &notFound):
		return "tool_not_found"
	case errors.As(err, &auth):
		return "authentication"
	case errors.As(err, &protocol):
		return "protocol"
	case errors.As(err, &remote):
		return "remote"
	default:
		return "other"
	}
}
