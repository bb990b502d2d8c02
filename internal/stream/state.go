package stream

// State is the lifecycle of a Connection.
type State int

const (
	Disconnected State = iota
	Connecting
	Connected
	Reconnecting
	// Failed is terminal until the next Subscribe.
	Failed
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Reconnecting:
		return "reconnecting"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}
