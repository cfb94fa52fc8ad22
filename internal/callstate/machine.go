// Package callstate implements the call lifecycle state machine shared by
// every endpoint of a call. The server keeps one machine per call party to
// enforce terminal idempotency; client binaries drive the same machine from
// their local signaling events, so both ends of a call follow a single
// formal definition instead of parallel ad hoc copies.
package callstate

import (
	"errors"
	"fmt"
	"time"
)

// State is a position in the call lifecycle.
type State string

const (
	StateIdle       State = "idle"
	StateConnecting State = "connecting"
	StateRinging    State = "ringing"
	StateConnected  State = "connected"
	StateOnHold     State = "on_hold"
	StateEnded      State = "ended"
	StateFailed     State = "failed"
)

// Input is a trigger that may move the machine between states.
type Input string

const (
	// InputInitiate: local initiation of an outgoing call, or acceptance
	// of an incoming request into setup.
	InputInitiate Input = "initiate"
	// InputRinging: the remote party has been notified (outgoing), or the
	// local UI is awaiting the user's accept/reject (incoming).
	InputRinging Input = "ringing"
	// InputAccept: remote accept received, or local accept sent with
	// media negotiated.
	InputAccept Input = "accept"
	// InputHold / InputResume: either party toggled hold; both machines
	// must apply it regardless of which side issued it.
	InputHold   Input = "hold"
	InputResume Input = "resume"
	// InputHangup: explicit hangup by either party.
	InputHangup Input = "hangup"
	// InputDisconnect: the underlying transport dropped; treated as an
	// implicit hangup.
	InputDisconnect Input = "disconnect"
	// InputReject: the remote party declined or was unreachable.
	InputReject Input = "reject"
	// InputMediaError: ICE/negotiation failure.
	InputMediaError Input = "media_error"
)

// ErrInvalidTransition is returned for an input the current state does not
// accept. Terminal states return ErrTerminal instead so callers can drop
// late frames without treating them as faults.
var (
	ErrInvalidTransition = errors.New("callstate: invalid transition")
	ErrTerminal          = errors.New("callstate: call already terminal")
)

// transitions is the single formal definition of the lifecycle:
// idle → connecting → ringing → connected ⇄ on_hold → ended,
// with failed reachable from connecting, ringing, and connected.
var transitions = map[State]map[Input]State{
	StateIdle: {
		InputInitiate: StateConnecting,
	},
	StateConnecting: {
		InputRinging:    StateRinging,
		InputAccept:     StateConnected,
		InputHangup:     StateEnded,
		InputDisconnect: StateEnded,
		InputReject:     StateFailed,
		InputMediaError: StateFailed,
	},
	StateRinging: {
		InputAccept:     StateConnected,
		InputHangup:     StateEnded,
		InputDisconnect: StateEnded,
		InputReject:     StateFailed,
		InputMediaError: StateFailed,
	},
	StateConnected: {
		InputHold:       StateOnHold,
		InputHangup:     StateEnded,
		InputDisconnect: StateEnded,
		InputMediaError: StateFailed,
	},
	StateOnHold: {
		InputResume:     StateConnected,
		InputHangup:     StateEnded,
		InputDisconnect: StateEnded,
		InputMediaError: StateFailed,
	},
}

// Machine tracks one endpoint's position in a call. It is not safe for
// concurrent use; the owner (hub dispatch loop or client main loop) must
// serialize access.
type Machine struct {
	state       State
	connectedAt time.Time
	endedAt     time.Time

	// now is swappable for tests.
	now func() time.Time
}

// New returns a machine in the idle state.
func New() *Machine {
	return &Machine{state: StateIdle, now: time.Now}
}

// State returns the current state.
func (m *Machine) State() State { return m.state }

// Terminal reports whether the machine reached ended or failed. Once
// terminal, every further input returns ErrTerminal and the state never
// changes again.
func (m *Machine) Terminal() bool {
	return m.state == StateEnded || m.state == StateFailed
}

// Fire applies an input and returns the resulting state. The duration
// timer starts at the first transition into connected, not earlier.
func (m *Machine) Fire(in Input) (State, error) {
	if m.Terminal() {
		return m.state, ErrTerminal
	}

	next, ok := transitions[m.state][in]
	if !ok {
		return m.state, fmt.Errorf("%w: %s on %s", ErrInvalidTransition, in, m.state)
	}

	if next == StateConnected && m.connectedAt.IsZero() {
		m.connectedAt = m.now()
	}
	if next == StateEnded || next == StateFailed {
		m.endedAt = m.now()
	}

	m.state = next
	return next, nil
}

// ConnectedAt returns when the call first reached connected, or the zero
// time if it never did.
func (m *Machine) ConnectedAt() time.Time { return m.connectedAt }

// Duration is the connected time of the call: zero while ringing, live
// while connected, frozen once terminal. Hold time counts as connected.
func (m *Machine) Duration() time.Duration {
	if m.connectedAt.IsZero() {
		return 0
	}
	if m.Terminal() {
		return m.endedAt.Sub(m.connectedAt)
	}
	return m.now().Sub(m.connectedAt)
}
