package agent

import "fmt"

// Completion phases of a turn.
const (
	PhaseInitial  = "initial"
	PhaseFollowUp = "follow_up"
)

// TransportError reports a failed completion request. On PhaseInitial the
// turn's user message has been removed from history; on PhaseFollowUp the
// tool round stays recorded.
type TransportError struct {
	Phase    string
	Provider string
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s completion via %s failed: %v", e.Phase, e.Provider, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// RolledBack reports whether the failed turn left history untouched.
func (e *TransportError) RolledBack() bool {
	return e.Phase == PhaseInitial
}
