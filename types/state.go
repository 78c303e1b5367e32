package types

// State represents the subscription lifecycle state.
//
// A subscription starts in StateActive and moves to StateClosed exactly once:
//
//	StateActive → StateClosed
//
// StateClosed is terminal; a closed subscription is never reopened.
type State int32

const (
	// StateActive indicates the subscription is matching and delivering messages.
	StateActive State = iota

	// StateClosed indicates the subscription was unsubscribed, auto-unsubscribed,
	// or closed together with its owning connection.
	StateClosed
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateActive:
		return "Active"
	case StateClosed:
		return "Closed"
	default:
		return "Unknown"
	}
}

// Mode describes how buffered messages reach the consumer.
type Mode int

const (
	// ModeSync subscriptions are drained by callers of NextMsg.
	ModeSync Mode = iota

	// ModeAsync subscriptions are drained by a dedicated dispatcher goroutine
	// that invokes the registered handler.
	ModeAsync
)

// String returns the string representation of the mode.
func (m Mode) String() string {
	switch m {
	case ModeSync:
		return "sync"
	case ModeAsync:
		return "async"
	default:
		return "unknown"
	}
}
