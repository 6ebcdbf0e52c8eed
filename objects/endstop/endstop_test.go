package endstop

import (
	"testing"

	"github.com/voidtrance/vortex/core"
	"github.com/voidtrance/vortex/objects"
)

func newTestEndstop(t *testing.T, cfg Config, axisID core.ObjectID, axisState objects.AxisState) (*Endstop, *[]bool) {
	t.Helper()
	state := axisState
	e, events, _ := newTestEndstopStub(t, cfg, axisID, &state)
	return e, events
}

// newTestEndstopStub returns the endstop alongside a pointer to the mutable
// axis position stub, so a test can move the axis between Update calls.
func newTestEndstopStub(t *testing.T, cfg Config, axisID core.ObjectID, state *objects.AxisState) (*Endstop, *[]bool, *objects.AxisState) {
	t.Helper()
	events := &[]bool{}
	deps := objects.Deps{
		Lookup: func(k core.Klass, name string) core.ObjectID {
			if k == core.KlassAxis {
				return axisID
			}
			return core.InvalidObjectID
		},
		GetState: func(id core.ObjectID) any {
			if id == axisID {
				return *state
			}
			return nil
		},
		EmitEvent: func(evType objects.EventType, payload any) {
			if evType == objects.EventEndstopTrigger {
				*events = append(*events, payload.(bool))
			}
		},
	}
	e := New("e1", cfg, deps)
	if err := e.Init(); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	return e, events, state
}

func TestFirstUpdatePrimesWithoutEmitting(t *testing.T) {
	e, events := newTestEndstop(t, Config{Position: 0, End: "min", Axis: "x"}, core.ObjectID(1), objects.AxisState{Position: 0})
	e.Update(1, 0)

	if len(*events) != 0 {
		t.Fatalf("expected no emission on priming update, got %v", *events)
	}
	if !e.GetState().(State).Triggered {
		t.Fatal("expected triggered=true after priming at position <= trigger point")
	}
}

func TestMinEndstopEmitsOnEdgeChange(t *testing.T) {
	e, events, state := newTestEndstopStub(t, Config{Position: 0, End: "min", Axis: "x"}, core.ObjectID(1), &objects.AxisState{Position: 10})

	e.Update(1, 0) // primed, not triggered (10 > 0)
	if len(*events) != 0 {
		t.Fatalf("expected no emission on priming update, got %v", *events)
	}

	state.Position = -1
	e.Update(2, 0) // crosses the trigger point, should emit true

	if len(*events) != 1 || (*events)[0] != true {
		t.Fatalf("expected exactly one emission of true on edge change, got %v", *events)
	}

	state.Position = 10
	e.Update(3, 0) // crosses back, should emit false

	if len(*events) != 2 || (*events)[1] != false {
		t.Fatalf("expected a second emission of false on edge change back, got %v", *events)
	}
}

func TestMaxEndstopTriggersAboveConfiguredPosition(t *testing.T) {
	e, _ := newTestEndstop(t, Config{Position: 200, End: "max", Axis: "x"}, core.ObjectID(1), objects.AxisState{Position: 250})
	e.Update(1, 0)

	st := e.GetState().(State)
	if !st.Triggered || st.End != objects.EndstopMax {
		t.Fatalf("expected max endstop triggered, got %+v", st)
	}
}

func TestResetClearsTriggeredAndPriming(t *testing.T) {
	e, _ := newTestEndstop(t, Config{Position: 0, End: "min", Axis: "x"}, core.ObjectID(1), objects.AxisState{Position: -5})
	e.Update(1, 0)

	if err := e.Reset(); err != nil {
		t.Fatalf("Reset returned error: %v", err)
	}
	if e.GetState().(State).Triggered {
		t.Fatal("expected triggered cleared after Reset")
	}
}

func TestUpdateNoopsWithoutBoundAxis(t *testing.T) {
	deps := objects.Deps{
		Lookup: func(core.Klass, string) core.ObjectID { return core.InvalidObjectID },
	}
	e := New("e2", Config{Position: 0, End: "min"}, deps)
	if err := e.Init(); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	e.Update(1, 0) // must not panic despite no bound axis
	if e.GetState().(State).Triggered {
		t.Fatal("expected untriggered state with no bound axis")
	}
}
