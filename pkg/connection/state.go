package connection

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrInvalidTransition is returned when a state change is not allowed.
var ErrInvalidTransition = errors.New("invalid state transition")

// State represents the connection state of one channel.
type State uint8

const (
	// StateClosed indicates no live or connecting resource.
	StateClosed State = iota

	// StateConnecting indicates a connection attempt is in progress.
	StateConnecting

	// StateOpen indicates a live resource.
	StateOpen
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateConnecting:
		return "CONNECTING"
	case StateOpen:
		return "OPEN"
	default:
		return "UNKNOWN"
	}
}

// Status is a snapshot of a channel's state.
type Status struct {
	State State

	// LastConnectedAt is the time of the last transition to StateOpen.
	// Zero if the channel never connected.
	LastConnectedAt time.Time
}

// StateMachine tracks the state of one channel and rejects transitions
// outside Closed -> Connecting -> Open -> Closed.
type StateMachine struct {
	mu sync.Mutex

	state           State
	lastConnectedAt time.Time

	now func() time.Time
}

// NewStateMachine creates a state machine in StateClosed.
func NewStateMachine() *StateMachine {
	return &StateMachine{now: time.Now}
}

// State returns the current state.
func (m *StateMachine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Status returns the current state and last connection time.
func (m *StateMachine) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Status{State: m.state, LastConnectedAt: m.lastConnectedAt}
}

// Transition moves to the given state. Transitioning to the current state is
// a no-op and reports changed == false.
func (m *StateMachine) Transition(to State) (changed bool, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	from := m.state
	if from == to {
		return false, nil
	}
	if !validTransition(from, to) {
		return false, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}

	m.state = to
	if to == StateOpen {
		m.lastConnectedAt = m.now()
	}
	return true, nil
}

func validTransition(from, to State) bool {
	switch from {
	case StateClosed:
		return to == StateConnecting
	case StateConnecting:
		return to == StateOpen || to == StateClosed
	case StateOpen:
		return to == StateClosed
	}
	return false
}
