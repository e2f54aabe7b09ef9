package peer

import (
	"testing"
	"time"
)

func TestBackoffDoublesAndCaps(t *testing.T) {
	f := NewFSM()

	f.Step(EventDial)
	f.Step(EventOpen)

	want := []time.Duration{
		1 * time.Second,
		2 * time.Second,
		4 * time.Second,
		8 * time.Second,
		16 * time.Second,
		16 * time.Second,
	}

	for i, expected := range want {
		f.Step(EventCloseUnexpected)
		if f.State() != StateBackoff {
			t.Fatalf("attempt %d: state = %v, want backoff", i, f.State())
		}
		if f.Delay() != expected {
			t.Errorf("attempt %d: delay = %v, want %v", i, f.Delay(), expected)
		}
		f.Step(EventTimerFired)
		if f.State() != StateConnecting {
			t.Fatalf("attempt %d: state after timer = %v, want connecting", i, f.State())
		}
	}
}

func TestBackoffResetsOnSuccessfulReconnect(t *testing.T) {
	f := NewFSM()

	f.Step(EventDial)
	f.Step(EventOpen)

	// Fail a few times to grow the delay.
	for i := 0; i < 3; i++ {
		f.Step(EventCloseUnexpected)
		f.Step(EventTimerFired)
	}
	if f.Delay() != 8*time.Second {
		t.Fatalf("delay = %v, want 8s before reconnect", f.Delay())
	}

	f.Step(EventOpen)

	f.Step(EventCloseUnexpected)
	if f.Delay() != 1*time.Second {
		t.Errorf("delay after successful reconnect = %v, want 1s", f.Delay())
	}
}

func TestIntentionalCloseGoesIdle(t *testing.T) {
	f := NewFSM()

	f.Step(EventDial)
	f.Step(EventOpen)
	f.Step(EventCloseIntentional)

	if f.State() != StateIdle {
		t.Errorf("state = %v, want idle", f.State())
	}

	// A stray timer in idle must not start connecting.
	f.Step(EventTimerFired)
	if f.State() != StateIdle {
		t.Errorf("state after stray timer = %v, want idle", f.State())
	}
}

func TestStateStrings(t *testing.T) {
	states := map[State]string{
		StateIdle:       "idle",
		StateConnecting: "connecting",
		StateConnected:  "connected",
		StateBackoff:    "backoff",
	}
	for state, want := range states {
		if got := state.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", state, got, want)
		}
	}
}
