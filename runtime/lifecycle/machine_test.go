package lifecycle

import (
	"errors"
	"testing"
	"time"
)

func fixedTime() time.Time {
	return time.Date(2026, 2, 17, 12, 0, 0, 0, time.UTC)
}

func TestNewMachine(t *testing.T) {
	m := NewMachine()
	if m.State() != StateUnbuilt {
		t.Errorf("State = %q, want %q", m.State(), StateUnbuilt)
	}
	if got := m.AvailableEvents(); len(got) != 1 || got[0] != EventCreate {
		t.Errorf("AvailableEvents = %v, want [Create]", got)
	}
}

func TestMachine_PublishPath(t *testing.T) {
	m := NewMachine().WithTimeFunc(fixedTime)

	steps := []struct {
		event Event
		want  State
	}{
		{EventCreate, StateCreated},
		{EventPrepare, StatePrepared},
		{EventPublish, StateVersioned},
		{EventRoute, StateAliased},
	}
	for _, s := range steps {
		if err := m.Fire(s.event); err != nil {
			t.Fatalf("Fire(%s): %v", s.event, err)
		}
		if m.State() != s.want {
			t.Errorf("after %s: State = %q, want %q", s.event, m.State(), s.want)
		}
	}

	history := m.History()
	if len(history) != 4 {
		t.Fatalf("History len = %d, want 4", len(history))
	}
	if history[0].From != StateUnbuilt || history[0].To != StateCreated {
		t.Errorf("first transition = %+v", history[0])
	}
	for _, h := range history {
		if !h.Timestamp.Equal(fixedTime()) {
			t.Errorf("Timestamp = %v, want %v", h.Timestamp, fixedTime())
		}
	}
}

func TestMachine_PublishFromCreatedRejected(t *testing.T) {
	m := NewMachine()
	if err := m.Fire(EventCreate); err != nil {
		t.Fatal(err)
	}

	err := m.Fire(EventPublish)
	if !errors.Is(err, ErrInvalidEvent) {
		t.Fatalf("Fire(Publish) from Created = %v, want ErrInvalidEvent", err)
	}
	if m.State() != StateCreated {
		t.Errorf("State = %q after rejected event, want %q", m.State(), StateCreated)
	}
	if len(m.History()) != 1 {
		t.Errorf("rejected event must not be recorded, history = %v", m.History())
	}
}

func TestMachine_UpdateCycle(t *testing.T) {
	m, err := NewMachineAt(StateAliased)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range []Event{EventUpdate, EventPrepare, EventPublish, EventRoute} {
		if err := m.Fire(e); err != nil {
			t.Fatalf("Fire(%s): %v", e, err)
		}
	}
	if m.State() != StateAliased {
		t.Errorf("State = %q, want %q", m.State(), StateAliased)
	}
	if last := m.Context().LastTransition(); last == nil || last.Event != EventRoute {
		t.Errorf("LastTransition = %+v, want Route", last)
	}
}

func TestMachine_UpdateOnlyFromAliased(t *testing.T) {
	for _, s := range []State{StateUnbuilt, StateCreated, StatePrepared, StateVersioned} {
		m, err := NewMachineAt(s)
		if err != nil {
			t.Fatal(err)
		}
		if err := m.Fire(EventUpdate); !errors.Is(err, ErrInvalidEvent) {
			t.Errorf("Fire(Update) from %s = %v, want ErrInvalidEvent", s, err)
		}
	}
}

func TestNewMachineAt_UnknownState(t *testing.T) {
	if _, err := NewMachineAt("Deleted"); !errors.Is(err, ErrUnknownState) {
		t.Errorf("NewMachineAt(Deleted) = %v, want ErrUnknownState", err)
	}
}

func TestContext_CloneIsIndependent(t *testing.T) {
	m := NewMachine()
	snap := m.Context()
	snap.Metadata["flow_id"] = "F1"

	if err := m.Fire(EventCreate); err != nil {
		t.Fatal(err)
	}
	if snap.CurrentState != StateUnbuilt {
		t.Errorf("snapshot moved to %q", snap.CurrentState)
	}
	if _, ok := m.Context().Metadata["flow_id"]; ok {
		t.Error("snapshot metadata leaked into machine")
	}
	if snap.LastTransition() != nil {
		t.Error("snapshot should have no transitions")
	}
}
