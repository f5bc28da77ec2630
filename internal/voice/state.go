package voice

// State is the session lifecycle position. Transitions only move forward
// except for Errored, which any live state can fall into.
type State int

const (
	StateDisconnected State = iota
	StateReady
	StateConnecting
	StateConfiguring
	StateVerified
	StateActive
	StateEnded
	StateErrored
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateReady:
		return "ready"
	case StateConnecting:
		return "connecting"
	case StateConfiguring:
		return "configuring"
	case StateVerified:
		return "verified"
	case StateActive:
		return "active"
	case StateEnded:
		return "ended"
	case StateErrored:
		return "errored"
	default:
		return "unknown"
	}
}
