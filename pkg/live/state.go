package live

// State is the session connection state. It is owned by the Transport;
// other components observe transitions through the status callback.
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateConnected
	StateError
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateError:
		return "error"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}
