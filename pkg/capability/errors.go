package capability

import (
	"errors"
	"fmt"
)

// ErrConfirmationDeclined is returned by a ConfirmationProvider when the
// operator refuses to confirm the login.
var ErrConfirmationDeclined = errors.New("login confirmation declined")

// ProtocolError reports a capability server response that does not have
// the expected shape.
type ProtocolError struct {
	Reason string
}

func (e *ProtocolError) Error() string {
	return "protocol error: " + e.Reason
}

// AuthenticationError reports a failed or malformed login verification.
type AuthenticationError struct {
	Reason string
	Err    error
}

func (e *AuthenticationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("authentication failed: %s: %v", e.Reason, e.Err)
	}
	return "authentication failed: " + e.Reason
}

func (e *AuthenticationError) Unwrap() error {
	return e.Err
}

// NotConnectedError is returned by Call when the session is not authenticated.
type NotConnectedError struct {
	State AuthState
}

func (e *NotConnectedError) Error() string {
	return fmt.Sprintf("not connected (state: %s)", e.State)
}

// ToolNotFoundError reports an operation name the capability server does
// not recognize.
type ToolNotFoundError struct {
	Name string
}

func (e *ToolNotFoundError) Error() string {
	return fmt.Sprintf("tool %q not found", e.Name)
}

// RemoteCallError wraps any other failure of a remote operation.
type RemoteCallError struct {
	Tool string
	Err  error
}

func (e *RemoteCallError) Error() string {
	return fmt.Sprintf("remote call %s failed: %v", e.Tool, e.Err)
}

func (e *RemoteCallError) Unwrap() error {
	return e.Err
}
