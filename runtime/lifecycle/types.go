// Package lifecycle tracks the publication state of a prompt flow.
//
// A flow moves Unbuilt -> Created -> Prepared -> Versioned -> Aliased. An
// update starts again from Aliased: the definition is rewritten (Created),
// re-prepared, a new immutable version is published and the alias is
// re-routed. Versions are never edited in place.
package lifecycle

import "time"

// State is a flow lifecycle state.
type State string

// Lifecycle states.
const (
	StateUnbuilt   State = "Unbuilt"
	StateCreated   State = "Created"
	StatePrepared  State = "Prepared"
	StateVersioned State = "Versioned"
	StateAliased   State = "Aliased"
)

// Event moves the machine between states.
type Event string

// Lifecycle events.
const (
	EventCreate  Event = "Create"
	EventPrepare Event = "Prepare"
	EventPublish Event = "Publish"
	EventRoute   Event = "Route"
	EventUpdate  Event = "Update"
)

// transitions is the fixed transition table.
var transitions = map[State]map[Event]State{
	StateUnbuilt:   {EventCreate: StateCreated},
	StateCreated:   {EventPrepare: StatePrepared},
	StatePrepared:  {EventPublish: StateVersioned},
	StateVersioned: {EventRoute: StateAliased},
	StateAliased:   {EventUpdate: StateCreated},
}

// Context holds the runtime state of one flow's lifecycle.
type Context struct {
	CurrentState State          `json:"current_state"`
	History      []Transition   `json:"history"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	StartedAt    time.Time      `json:"started_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// Transition records a single state change.
type Transition struct {
	From      State     `json:"from"`
	To        State     `json:"to"`
	Event     Event     `json:"event"`
	Timestamp time.Time `json:"timestamp"`
}
