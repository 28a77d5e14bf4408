package capability

// AuthState is the authentication lifecycle state of a Session.
type AuthState int

const (
	Disconnected AuthState = iota
	Connecting
	AwaitingUserVerification
	Authenticated
	Failed
)

func (s AuthState) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case AwaitingUserVerification:
		return "awaiting_user_verification"
	case Authenticated:
		return "authenticated"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// StateObserver is notified after every state transition.
type StateObserver func(from, to AuthState)
