package lifecycle

import (
	"maps"
	"time"
)

// NewContext creates a Context at the given state.
func NewContext(state State, now time.Time) *Context {
	return &Context{
		CurrentState: state,
		History:      []Transition{},
		Metadata:     map[string]any{},
		StartedAt:    now,
		UpdatedAt:    now,
	}
}

// RecordTransition appends a transition and moves to its target state.
func (c *Context) RecordTransition(from, to State, event Event, ts time.Time) {
	c.History = append(c.History, Transition{
		From:      from,
		To:        to,
		Event:     event,
		Timestamp: ts,
	})
	c.CurrentState = to
	c.UpdatedAt = ts
}

// Clone returns a deep copy of the Context.
func (c *Context) Clone() *Context {
	out := &Context{
		CurrentState: c.CurrentState,
		StartedAt:    c.StartedAt,
		UpdatedAt:    c.UpdatedAt,
	}
	if c.History != nil {
		out.History = make([]Transition, len(c.History))
		copy(out.History, c.History)
	}
	if c.Metadata != nil {
		out.Metadata = make(map[string]any, len(c.Metadata))
		maps.Copy(out.Metadata, c.Metadata)
	}
	return out
}

// LastTransition returns the most recent transition, or nil if none.
func (c *Context) LastTransition() *Transition {
	if len(c.History) == 0 {
		return nil
	}
	t := c.History[len(c.History)-1]
	return &t
}
