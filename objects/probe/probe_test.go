package probe

import (
	"testing"

	"github.com/voidtrance/vortex/core"
	"github.com/voidtrance/vortex/objects"
)

func newTestProbe(t *testing.T, cfg Config, thID core.ObjectID, state *objects.ToolheadState, onEvent func(objects.EventType, any)) *Probe {
	t.Helper()
	deps := objects.Deps{
		Lookup: func(k core.Klass, name string) core.ObjectID {
			if k == core.KlassToolhead {
				return thID
			}
			return core.InvalidObjectID
		},
		GetState: func(id core.ObjectID) any {
			if id == thID {
				return *state
			}
			return nil
		},
		EmitEvent: onEvent,
	}
	p := New("p1", cfg, deps)
	if err := p.Init(); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	return p
}

func TestProbeTracksToolheadPlusOffset(t *testing.T) {
	state := &objects.ToolheadState{X: 5, Y: -5, Z: 2}
	p := newTestProbe(t, Config{Toolhead: "th", OffsetX: 1, OffsetY: 1, OffsetZ: 1, FuzzMM: 0.1}, core.ObjectID(1), state, nil)
	p.Update(1, 0)

	st := p.GetState().(State)
	if st.X != 6 || st.Y != -4 || st.Z != 3 {
		t.Fatalf("expected offset-adjusted position, got %+v", st)
	}
}

func TestProbeTriggersWithinFuzzOfZero(t *testing.T) {
	var triggerEvents int
	state := &objects.ToolheadState{X: 10, Y: 10, Z: 10}
	p := newTestProbe(t, Config{Toolhead: "th", OffsetX: -10, OffsetY: -10, OffsetZ: -10, FuzzMM: 0.2}, core.ObjectID(1), state,
		func(evType objects.EventType, _ any) {
			if evType == objects.EventProbeTriggered {
				triggerEvents++
			}
		})

	p.Update(1, 0) // offset-adjusted position lands at (0,0,0), within fuzz
	if !p.GetState().(State).Triggered {
		t.Fatal("expected triggered once offset-adjusted position is within fuzz of zero")
	}
	if triggerEvents != 1 {
		t.Fatalf("expected exactly one PROBE_TRIGGERED event, got %d", triggerEvents)
	}

	p.Update(2, 0) // unchanged position, must not re-emit
	if triggerEvents != 1 {
		t.Fatalf("expected no re-emission while remaining within fuzz, got %d events", triggerEvents)
	}
}

func TestProbeUntriggersWhenLeavingFuzzWindow(t *testing.T) {
	state := &objects.ToolheadState{X: 0, Y: 0, Z: 0}
	p := newTestProbe(t, Config{Toolhead: "th", FuzzMM: 0.1}, core.ObjectID(1), state, nil)

	p.Update(1, 0)
	if !p.GetState().(State).Triggered {
		t.Fatal("expected triggered at zero offset position")
	}

	state.X = 5
	p.Update(2, 0)
	if p.GetState().(State).Triggered {
		t.Fatal("expected untriggered after leaving the fuzz window")
	}
}

func TestResetClearsTriggeredAndPosition(t *testing.T) {
	state := &objects.ToolheadState{X: 0, Y: 0, Z: 0}
	p := newTestProbe(t, Config{Toolhead: "th", FuzzMM: 0.1}, core.ObjectID(1), state, nil)
	p.Update(1, 0)

	if err := p.Reset(); err != nil {
		t.Fatalf("Reset returned error: %v", err)
	}
	st := p.GetState().(State)
	if st.Triggered || st.X != 0 || st.Y != 0 || st.Z != 0 {
		t.Fatalf("expected cleared state after Reset, got %+v", st)
	}
}

func TestUpdateNoopsWithoutBoundToolhead(t *testing.T) {
	deps := objects.Deps{Lookup: func(core.Klass, string) core.ObjectID { return core.InvalidObjectID }}
	p := New("p2", Config{FuzzMM: 0.1}, deps)
	if err := p.Init(); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	p.Update(1, 0) // must not panic with no bound toolhead
	if p.GetState().(State).Triggered {
		t.Fatal("expected untriggered with no bound toolhead")
	}
}
