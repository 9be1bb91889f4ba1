// Package lifecycle defines the service state machine used by the
// supervisor. Every supervised service holds exactly one State at a time,
// and the only way to change it is through a validated transition.
package lifecycle

import (
	"fmt"
	"sync"
)

// State represents the lifecycle state of a supervised service
type State int

// Possible service states
const (
	StateUninitialized State = iota
	StateInitializing
	StateReady
	StateStarting
	StateActive
	StateStopping
	StateStopped
	StateErrored
)

// String returns the string representation of State
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitializing:
		return "initializing"
	case StateReady:
		return "ready"
	case StateStarting:
		return "starting"
	case StateActive:
		return "active"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	case StateErrored:
		return "error"
	default:
		return "unknown"
	}
}

// transitions is the complete legal transition graph. A state not present
// as a key has no legal outgoing transitions.
var transitions = map[State][]State{
	StateUninitialized: {StateInitializing, StateErrored},
	StateInitializing:  {StateReady, StateErrored},
	StateReady:         {StateStarting, StateStopping, StateErrored},
	StateStarting:      {StateActive, StateErrored},
	StateActive:        {StateStopping, StateErrored},
	StateStopping:      {StateStopped, StateErrored},
	StateStopped:       {StateInitializing},
	StateErrored:       {StateInitializing, StateStopped},
}

// CanTransition reports whether a transition from one state to another is legal
func CanTransition(from, to State) bool {
	for _, legal := range transitions[from] {
		if legal == to {
			return true
		}
	}
	return false
}

// StateError is returned when an illegal transition is requested. The
// current state is left unchanged.
type StateError struct {
	Service string
	From    State
	To      State
}

// Error implements the error interface
func (e *StateError) Error() string {
	return fmt.Sprintf("%s: invalid state transition from %s to %s", e.Service, e.From, e.To)
}

// Machine holds the current state of one service behind a validated
// transition gate. The zero value is not usable; create one with NewMachine.
type Machine struct {
	service string
	mu      sync.RWMutex
	state   State
}

// NewMachine creates a state machine for the named service, starting in
// StateUninitialized.
func NewMachine(service string) *Machine {
	return &Machine{service: service}
}

// State returns the current state
func (m *Machine) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Transition moves the machine to the target state if the transition is
// legal. On an illegal request it returns a *StateError and leaves the
// current state unchanged.
func (m *Machine) Transition(to State) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !CanTransition(m.state, to) {
		return &StateError{Service: m.service, From: m.state, To: to}
	}

	m.state = to
	return nil
}
