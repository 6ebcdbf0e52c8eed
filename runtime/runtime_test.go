package runtime

import (
	"sync"
	"testing"
	"time"

	"github.com/voidtrance/vortex/core"
	"github.com/voidtrance/vortex/objects"

	_ "github.com/voidtrance/vortex/objects/digitalpin"
)

func TestCreateObjectInitAndGetStatus(t *testing.T) {
	rt := Create(0)
	id, err := rt.CreateObject(core.KlassDigitalPin, "pin0", []byte(`{"default_high":true}`))
	if err != nil {
		t.Fatalf("CreateObject failed: %v", err)
	}
	if err := rt.InitObjects(); err != nil {
		t.Fatalf("InitObjects failed: %v", err)
	}

	out := rt.GetStatus([]core.ObjectID{id})
	if len(out) != 1 || out[0] == nil {
		t.Fatalf("expected non-nil status for created object, got %v", out)
	}
	st, ok := out[0].(objects.DigitalPinState)
	if !ok || !st.High {
		t.Fatalf("expected default_high state, got %+v", out[0])
	}
}

func TestSubmitCommandDeliversCompletionThroughStartedWorker(t *testing.T) {
	rt := Create(0)
	id, err := rt.CreateObject(core.KlassDigitalPin, "pin0", []byte(`{}`))
	if err != nil {
		t.Fatalf("CreateObject failed: %v", err)
	}
	if err := rt.InitObjects(); err != nil {
		t.Fatalf("InitObjects failed: %v", err)
	}

	var mu sync.Mutex
	var gotResult int
	done := make(chan struct{})
	if err := rt.Start(1000, func(cmdID core.CommandID, result int, _ any) {
		mu.Lock()
		gotResult = result
		mu.Unlock()
		close(done)
	}); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer rt.Stop()

	rt.SubmitCommand(id, uint16(objects.DigitalPinSetLevel), objects.SetLevelArgs{High: true})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for command completion")
	}

	mu.Lock()
	defer mu.Unlock()
	if gotResult != 0 {
		t.Fatalf("expected successful completion (0), got %d", gotResult)
	}

	out := rt.GetStatus([]core.ObjectID{id})
	if st, ok := out[0].(objects.DigitalPinState); !ok || !st.High {
		t.Fatalf("expected pin high after set_level command landed, got %+v", out[0])
	}
}

func TestEventSubmitAndRegisterDeliversToHandler(t *testing.T) {
	rt := Create(0)
	id, err := rt.CreateObject(core.KlassDigitalPin, "pin0", []byte(`{}`))
	if err != nil {
		t.Fatalf("CreateObject failed: %v", err)
	}
	if err := rt.InitObjects(); err != nil {
		t.Fatalf("InitObjects failed: %v", err)
	}
	if err := rt.Start(1000, nil); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer rt.Stop()

	received := make(chan objects.Event, 1)
	if err := rt.EventRegister(objects.EventEndstopTrigger, core.KlassDigitalPin, "pin0", objects.EventHandlerFunc(func(ev objects.Event) {
		received <- ev
	})); err != nil {
		t.Fatalf("EventRegister failed: %v", err)
	}

	if err := rt.EventSubmit(objects.EventEndstopTrigger, id, true); err != nil {
		t.Fatalf("EventSubmit failed: %v", err)
	}

	select {
	case ev := <-received:
		if ev.OriginID != id || ev.Payload != true {
			t.Fatalf("unexpected event delivered: %+v", ev)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event delivery")
	}
}

func TestPauseStopsTickAdvancement(t *testing.T) {
	rt := Create(0)
	if err := rt.Start(1000, nil); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer rt.Stop()

	time.Sleep(20 * time.Millisecond)
	rt.Pause(true)
	frozen := rt.GetClockTicks()
	time.Sleep(50 * time.Millisecond)
	if got := rt.GetClockTicks(); got != frozen {
		t.Fatalf("expected ticks frozen while paused, frozen=%d got=%d", frozen, got)
	}

	rt.Pause(false)
	time.Sleep(50 * time.Millisecond)
	if got := rt.GetClockTicks(); got <= frozen {
		t.Fatalf("expected ticks to resume advancing after unpause, frozen=%d got=%d", frozen, got)
	}
}

func TestMetricsReflectPendingCommandCount(t *testing.T) {
	rt := Create(0)
	id, err := rt.CreateObject(core.KlassDigitalPin, "pin0", []byte(`{}`))
	if err != nil {
		t.Fatalf("CreateObject failed: %v", err)
	}
	rt.InitObjects()

	rt.SubmitCommand(id, uint16(objects.DigitalPinSetLevel), objects.SetLevelArgs{High: true})

	// Worker is not started here, so the command stays pending until drained.
	if got := rt.Metrics(); got == nil {
		t.Fatal("expected non-nil metrics registry")
	}
	rt.refreshMetrics()
	if got := rt.Metrics().Ints.Get("pending_commands").Load(); got != 1 {
		t.Fatalf("expected pending_commands 1, got %d", got)
	}
}

func TestResetRestoresObjectDefaults(t *testing.T) {
	rt := Create(0)
	id, err := rt.CreateObject(core.KlassDigitalPin, "pin0", []byte(`{"default_high":true}`))
	if err != nil {
		t.Fatalf("CreateObject failed: %v", err)
	}
	rt.InitObjects()
	rt.SubmitCommand(id, uint16(objects.DigitalPinSetLevel), objects.SetLevelArgs{High: true})
	rt.pipeline.DispatchPending(rt.execOn) // manually drain since the worker isn't started

	if err := rt.Reset([]core.ObjectID{id}); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	out := rt.GetStatus([]core.ObjectID{id})
	if st, ok := out[0].(objects.DigitalPinState); !ok || st.High {
		t.Fatalf("expected level low after Reset, got %+v", out[0])
	}
}
