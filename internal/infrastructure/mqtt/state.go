package mqtt

// State is the Manager's connection state.
type State int32

// Manager states.
const (
	StateDisconnected State = iota
	StateConnecting
	StateSubscribed
	StateReconnecting
	StateShuttingDown
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateSubscribed:
		return "subscribed"
	case StateReconnecting:
		return "reconnecting"
	case StateShuttingDown:
		return "shutting_down"
	default:
		return "unknown"
	}
}
