package mqtt

// State is the connection manager's lifecycle state.
// Exactly one value is live at a time; transitions happen only through
// Manager operations.
type State int

const (
	// StateDisconnected means no handle is held. The initial state, and
	// the state after any disconnect or failure reset.
	StateDisconnected State = iota

	// StateConnecting means a connect attempt is in flight.
	StateConnecting

	// StateConnected means a live handle is held and publishes may proceed.
	StateConnected
)

// String returns the state name for logging and UI display.
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "unknown"
	}
}
