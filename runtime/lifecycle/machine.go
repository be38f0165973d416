package lifecycle

import (
	"errors"
	"fmt"
	"slices"
	"time"
)

var (
	// ErrInvalidEvent is returned when an event is not defined for the current state.
	ErrInvalidEvent = errors.New("invalid event for current state")
	// ErrUnknownState is returned when a machine is restored at a state outside the table.
	ErrUnknownState = errors.New("unknown lifecycle state")
)

// TimeFunc returns the current time. Override for deterministic tests.
type TimeFunc func() time.Time

// Machine applies lifecycle events. It is not safe for concurrent use.
type Machine struct {
	context *Context
	now     TimeFunc
}

// NewMachine creates a machine at StateUnbuilt.
func NewMachine() *Machine {
	return &Machine{
		context: NewContext(StateUnbuilt, time.Now()),
		now:     time.Now,
	}
}

// NewMachineAt creates a machine at an existing state, such as a
// deployed flow that is about to be updated.
func NewMachineAt(state State) (*Machine, error) {
	if _, ok := transitions[state]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownState, state)
	}
	return &Machine{
		context: NewContext(state, time.Now()),
		now:     time.Now,
	}, nil
}

// WithTimeFunc sets a custom time function for deterministic tests.
func (m *Machine) WithTimeFunc(fn TimeFunc) *Machine {
	m.now = fn
	return m
}

// State returns the current state.
func (m *Machine) State() State {
	return m.context.CurrentState
}

// Fire applies event and moves to its target state.
func (m *Machine) Fire(event Event) error {
	target, ok := transitions[m.context.CurrentState][event]
	if !ok {
		return fmt.Errorf("%w: event %q not defined for state %q (available: %v)",
			ErrInvalidEvent, event, m.context.CurrentState, m.AvailableEvents())
	}
	m.context.RecordTransition(m.context.CurrentState, target, event, m.now())
	return nil
}

// AvailableEvents returns the valid events for the current state, sorted.
func (m *Machine) AvailableEvents() []Event {
	events := make([]Event, 0, 1)
	for e := range transitions[m.context.CurrentState] {
		events = append(events, e)
	}
	slices.Sort(events)
	return events
}

// History returns a copy of the recorded transitions.
func (m *Machine) History() []Transition {
	return slices.Clone(m.context.History)
}

// Context returns a snapshot of the lifecycle context.
func (m *Machine) Context() *Context {
	return m.context.Clone()
}
