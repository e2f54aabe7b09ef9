package peer

import (
	"time"
)

// Connection state machine. Backoff delay doubles on every failed cycle and
// resets the moment a connection is established.
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateConnected
	StateBackoff
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateBackoff:
		return "backoff"
	default:
		return "unknown"
	}
}

type Event int

const (
	EventDial Event = iota
	EventOpen
	EventCloseIntentional
	EventCloseUnexpected
	EventTimerFired
)

const (
	InitialBackoff = 1 * time.Second
	MaxBackoff     = 16 * time.Second
)

// FSM tracks the reconnect lifecycle. Not safe for concurrent use; the
// client drives it from a single goroutine.
type FSM struct {
	state State
	delay time.Duration
}

func NewFSM() *FSM {
	return &FSM{state: StateIdle, delay: InitialBackoff}
}

func (f *FSM) State() State { return f.state }

// Delay reports how long to wait in the current Backoff state.
func (f *FSM) Delay() time.Duration { return f.delay }

// Step applies an event and returns the new state. Unexpected closes move
// to Backoff with the current delay, then double it for next time;
// intentional closes go straight to Idle and stay there.
func (f *FSM) Step(ev Event) State {
	switch ev {
	case EventDial:
		f.state = StateConnecting
	case EventOpen:
		f.state = StateConnected
		f.delay = InitialBackoff
	case EventCloseIntentional:
		f.state = StateIdle
	case EventCloseUnexpected:
		f.state = StateBackoff
	case EventTimerFired:
		if f.state == StateBackoff {
			f.delay *= 2
			if f.delay > MaxBackoff {
				f.delay = MaxBackoff
			}
			f.state = StateConnecting
		}
	}
	return f.state
}
