package capability

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/harun/courier/internal/observability"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog"
)

const (
	unknownUser = "Unknown User"
	noMessage   = "No message."
)

// SessionConfig configures a Session.
type SessionConfig struct {
	Dial       Dialer
	Confirmer  ConfirmationProvider
	Operations []Operation

	// ForceLogin is passed to the remote login operation. A nil value means true.
	ForceLogin *bool

	OnStateChange StateObserver
	Logger        zerolog.Logger
}

// Session is an authenticated connection to the capability server.
type Session struct {
	dial       Dialer
	confirmer  ConfirmationProvider
	registry   *Registry
	forceLogin bool
	observer   StateObserver
	logger     zerolog.Logger

	// opMu serializes Connect, Call and Disconnect.
	opMu sync.Mutex
	conn Conn

	mu       sync.RWMutex
	state    AuthState
	identity string
	remote   map[string]struct{}
}

// NewSession creates a disconnected session.
func NewSession(cfg SessionConfig) (*Session, error) {
	observability.EnsureRegistered()

	if cfg.Dial == nil {
		return nil, fmt.Errorf("dialer is required")
	}
	if cfg.Confirmer == nil {
		return nil, fmt.Errorf("confirmation provider is required")
	}

	registry, err := NewRegistry(cfg.Operations...)
	if err != nil {
		return nil, fmt.Errorf("invalid operations: %w", err)
	}

	forceLogin := true
	if cfg.ForceLogin != nil {
		forceLogin = *cfg.ForceLogin
	}

	return &Session{
		dial:       cfg.Dial,
		confirmer:  cfg.Confirmer,
		registry:   registry,
		forceLogin: forceLogin,
		observer:   cfg.OnStateChange,
		logger:     cfg.Logger,
		state:      Disconnected,
	}, nil
}

// State returns the current authentication state.
func (s *Session) State() AuthState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Identity returns the display name of the authenticated user.
func (s *Session) Identity() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.identity
}

// Connect authenticates the session and returns the user's display name.
// It is a no-op while already Authenticated. On failure the session is
// released and left Disconnected.
func (s *Session) Connect(ctx context.Context) (string, error) {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	if s.State() == Authenticated {
		return s.Identity(), nil
	}

	start := time.Now()
	identity, err := s.connect(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Capability login failed")
		s.setState(Failed)
		s.disconnect()
		observability.RecordLogin(time.Since(start), false)
		observability.RecordAuthAudit(ctx, "login", "", "failure", map[string]any{"error": err.Error()})
		return "", err
	}

	observability.RecordLogin(time.Since(start), true)
	observability.RecordAuthAudit(ctx, "login", identity, "success", nil)
	s.logger.Info().Str("user", identity).Msg("Capability session authenticated")
	return identity, nil
}

func (s *Session) connect(ctx context.Context) (string, error) {
	if s.conn != nil {
		s.disconnect()
	}
	s.setState(Connecting)

	conn, err := s.dial(ctx)
	if err != nil {
		return "", fmt.Errorf("open capability session: %w", err)
	}
	s.conn = conn
	s.discoverTools(ctx)

	login, err := s.callRemote(ctx, LoginOperation, map[string]any{"force": s.forceLogin})
	if err != nil {
		return "", err
	}
	instructions := firstText(login)
	if login.IsError || strings.TrimSpace(instructions) == "" {
		return "", &ProtocolError{Reason: "expected login message not received"}
	}

	s.setState(AwaitingUserVerification)
	if err := s.confirmer.Confirm(ctx, instructions); err != nil {
		return "", &AuthenticationError{Reason: "login not confirmed", Err: err}
	}

	verify, err := s.callRemote(ctx, VerifyLoginOperation, map[string]any{})
	if err != nil {
		return "", err
	}
	identity, err := parseVerification(verify)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	s.identity = identity
	s.mu.Unlock()
	s.setState(Authenticated)

	return identity, nil
}

type verification struct {
	Success  bool   `json:"success"`
	Message  string `json:"message"`
	UserData *struct {
		DisplayName string `json:"displayName"`
	} `json:"userData"`
}

func parseVerification(result *mcp.CallToolResult) (string, error) {
	text := firstText(result)
	if text == "" {
		return "", &AuthenticationError{Reason: "malformed verification response"}
	}

	var v verification
	if err := json.Unmarshal([]byte(text), &v); err != nil {
		return "", &AuthenticationError{Reason: "malformed verification response", Err: err}
	}

	if !v.Success || result.IsError {
		reason := v.Message
		if reason == "" {
			reason = noMessage
		}
		return "", &AuthenticationError{Reason: reason}
	}

	if v.UserData == nil || v.UserData.DisplayName == "" {
		return unknownUser, nil
	}
	return v.UserData.DisplayName, nil
}

// discoverTools records the remote tool set. Failure leaves the set unknown,
// in which case Call relies on the server to reject unknown names.
func (s *Session) discoverTools(ctx context.Context) {
	remote := make(map[string]struct{})
	params := &mcp.ListToolsParams{}
	for {
		page, err := s.conn.ListTools(ctx, params)
		if err != nil {
			s.logger.Debug().Err(err).Msg("Remote tool listing unavailable")
			return
		}

		for _, t := range page.Tools {
			remote[t.Name] = struct{}{}
		}
		if page.NextCursor == "" {
			break
		}
		params = &mcp.ListToolsParams{Cursor: page.NextCursor}
	}

	s.mu.Lock()
	s.remote = remote
	s.mu.Unlock()
	s.logger.Debug().Int("tools", len(remote)).Msg("Remote tools discovered")
}

// Call dispatches a registered operation and returns the text of the first
// content element of its result.
func (s *Session) Call(ctx context.Context, name string, args map[string]any) (string, error) {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	if state := s.State(); state != Authenticated {
		return "", &NotConnectedError{State: state}
	}

	op, ok := s.registry.Lookup(name)
	if !ok {
		return "", &ToolNotFoundError{Name: name}
	}

	remoteName := op.RemoteName()
	s.mu.RLock()
	remote := s.remote
	s.mu.RUnlock()
	if remote != nil {
		if _, ok := remote[remoteName]; !ok {
			return "", &ToolNotFoundError{Name: name}
		}
	}

	if args == nil {
		args = map[string]any{}
	}

	result, err := s.callRemote(ctx, remoteName, args)
	if err != nil {
		var notFound *ToolNotFoundError
		if errors.As(err, &notFound) {
			return "", &ToolNotFoundError{Name: name}
		}
		return "", err
	}
	if result.IsError {
		return "", &RemoteCallError{Tool: name, Err: errors.New(firstText(result))}
	}

	return firstText(result), nil
}

func (s *Session) callRemote(ctx context.Context, name string, args map[string]any) (*mcp.CallToolResult, error) {
	if s.conn == nil {
		return nil, &RemoteCallError{Tool: name, Err: errors.New("no capability session")}
	}

	result, err := s.conn.CallTool(ctx, &mcp.CallToolParams{Name: name, Arguments: args})
	if err != nil {
		if isUnknownTool(err) {
			return nil, &ToolNotFoundError{Name: name}
		}
		return nil, &RemoteCallError{Tool: name, Err: err}
	}
	if result == nil {
		result = &mcp.CallToolResult{}
	}
	return result, nil
}

// isUnknownTool recognizes the server's rejection of a tool name: a
// method-not-found error, or invalid params naming an unknown tool.
func isUnknownTool(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unknown tool") ||
		strings.Contains(msg, "tool not found") ||
		strings.Contains(msg, "method not found")
}

// Disconnect closes the MCP session, if any, and leaves the session
// Disconnected. Release failures are logged, not returned.
func (s *Session) Disconnect() {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	s.disconnect()
}

func (s *Session) disconnect() {
	if s.conn != nil {
		if err := s.conn.Close(); err != nil {
			s.logger.Warn().Err(err).Msg("Failed to close capability session")
		}
		s.conn = nil
	}

	s.mu.Lock()
	s.identity = ""
	s.remote = nil
	s.mu.Unlock()
	s.setState(Disconnected)
}

func (s *Session) setState(to AuthState) {
	s.mu.Lock()
	from := s.state
	s.state = to
	s.mu.Unlock()

	if from == to {
		return
	}
	observability.SetAuthState(to.String())
	s.logger.Debug().Str("from", from.String()).Str("to", to.String()).Msg("Capability session state changed")
	if s.observer != nil {
		s.observer(from, to)
	}
}
