// Package runtime implements the host façade (spec §6): the single type
// that wires together the registry, clock, timer wheel, event bus, and
// command pipeline, and that owns the update-thread pool and the worker
// thread. Structurally grounded on the teacher's GameContext/Game pair
// (engine/game_context.go, engine/game.go): one struct holds every
// subsystem handle and its lifecycle methods (Start/Stop-equivalent)
// launch and tear down the goroutines that drive them, rather than
// scattering subsystem ownership across package-level globals (spec §9's
// "model as a runtime context struct created by start").
package runtime

import (
	"fmt"
	"sync"
	"time"

	"github.com/voidtrance/vortex/core"
	"github.com/voidtrance/vortex/internal/clock"
	"github.com/voidtrance/vortex/internal/command"
	"github.com/voidtrance/vortex/internal/event"
	"github.com/voidtrance/vortex/internal/logging"
	"github.com/voidtrance/vortex/internal/status"
	"github.com/voidtrance/vortex/internal/status/promexport"
	"github.com/voidtrance/vortex/internal/timer"
	"github.com/voidtrance/vortex/objects"
	"github.com/voidtrance/vortex/registry"
)

var log = logging.Named("runtime")

// CompletionCallback is invoked once per completed host-submitted command
// (spec §6: "completion_cb(cmd_id, result)").
type CompletionCallback func(id core.CommandID, result int, payload any)

// Runtime is one emulator instance: a registry of objects, the clock/timer
// subsystems driving them, and the single worker thread that serializes
// command dispatch, event delivery, and completion delivery (spec §4.3).
type Runtime struct {
	debugLevel uint8

	reg      *registry.Registry
	bus      *event.Bus
	pipeline *command.Pipeline
	clk      *clock.Controller
	timers   *timer.Wheel
	metrics  *status.Registry
	exporter *promexport.Exporter

	widthBits       uint
	updateFrequency float64

	mu           sync.Mutex
	completionCB CompletionCallback
	updateStop   chan struct{}
	updateWG     sync.WaitGroup
	workerStop   chan struct{}
	workerWG     sync.WaitGroup
	startedOnce  bool
}

// Create constructs a Runtime (spec §6: `create(debug_level) -> Runtime`).
// debugLevel only affects how verbosely cmd/vortex-monitor's logging
// registry is configured; the runtime itself does not branch on it.
func Create(debugLevel uint8) *Runtime {
	return &Runtime{
		debugLevel:      debugLevel,
		reg:             registry.New(),
		bus:             event.NewBus(),
		pipeline:        command.NewPipeline(),
		metrics:         status.NewRegistry(),
		widthBits:       32,
		updateFrequency: 1000,
	}
}

// Metrics returns the runtime's status registry: queue depths, dropped
// events, and clock ticks, refreshed once per worker pass (spec §3.4).
// Object-local values (sensor temps, step counts) are not published
// here; they are read through GetStatus.
func (rt *Runtime) Metrics() *status.Registry { return rt.metrics }

// StartMetricsExporter exposes Metrics() as Prometheus gauges on addr,
// polled at interval (spec §3.4's promexport component).
func (rt *Runtime) StartMetricsExporter(addr string, interval time.Duration) error {
	rt.exporter = promexport.New(rt.metrics, interval)
	return rt.exporter.Start(addr)
}

// StopMetricsExporter halts a previously started exporter, if any.
func (rt *Runtime) StopMetricsExporter() {
	if rt.exporter != nil {
		rt.exporter.Stop()
		rt.exporter = nil
	}
}

func (rt *Runtime) refreshMetrics() {
	rt.metrics.Ints.Get("pending_commands").Store(int64(rt.pipeline.PendingLen()))
	rt.metrics.Ints.Get("submitted_commands").Store(int64(rt.pipeline.SubmittedLen()))
	rt.metrics.Ints.Get("queued_events").Store(int64(rt.bus.Len()))
	rt.metrics.Ints.Get("dropped_event_handlers").Store(int64(rt.bus.DroppedCount()))
	if rt.clk != nil {
		rt.metrics.Ints.Get("clock_ticks").Store(int64(rt.clk.Ticks()))
	}
}

// SetWidthBits overrides the tick/timer counter width (default 32) before
// Start; has no effect once running.
func (rt *Runtime) SetWidthBits(bits uint) { rt.widthBits = bits }

// SetUpdateFrequency overrides the time-control thread's publish rate
// (default 1000 Hz) before Start; has no effect once running.
func (rt *Runtime) SetUpdateFrequency(hz float64) { rt.updateFrequency = hz }

// CreateObject decodes config via the klass factory and wires the new
// object's call-data to this runtime (spec §4.4).
func (rt *Runtime) CreateObject(klass core.Klass, name string, config []byte) (core.ObjectID, error) {
	deps, idHolder := rt.buildDeps(klass, name)
	id, err := rt.reg.CreateObject(klass, name, config, deps)
	if err != nil {
		return core.InvalidObjectID, err
	}
	*idHolder = id
	return id, nil
}

// RegisterVirtualObject creates a bare registry entry with no vtable
// (spec §4.4), for host-side objects referenced by id only.
func (rt *Runtime) RegisterVirtualObject(klass core.Klass, name string) (core.ObjectID, error) {
	return rt.reg.RegisterVirtualObject(klass, name)
}

// InitObjects runs Init on every object in klass-enumeration then
// insertion order (spec §4.4). A non-nil error means init_objects as a
// whole failed; the spec's boolean return is this error's nil-ness.
func (rt *Runtime) InitObjects() error {
	return rt.reg.InitObjects()
}

// buildDeps constructs the objects.Deps closure set for one object of the
// given klass/name. EmitEvent and Logger need the object's own id, which
// does not exist until the klass factory returns one level up in
// CreateObject; idHolder is filled in immediately after, strictly before
// any goroutine that could call EmitEvent starts (update threads and the
// worker are only launched later, by Start). This sidesteps the
// object → call_data → registry cycle the spec's Design Notes call out,
// by deferring the one piece of call-data (origin identity) that would
// otherwise require the object to exist before its own call-data does.
func (rt *Runtime) buildDeps(klass core.Klass, name string) (objects.Deps, *core.ObjectID) {
	idHolder := new(core.ObjectID)
	deps := objects.Deps{
		Lookup: func(k core.Klass, n string) core.ObjectID {
			id, ok := rt.reg.LookupByName(k, n)
			if !ok {
				return core.InvalidObjectID
			}
			return id
		},
		List: rt.reg.List,
		GetState: func(id core.ObjectID) any {
			obj, ok := rt.reg.Lookup(id)
			if !ok {
				return nil
			}
			sg, ok := obj.(objects.StateGetter)
			if !ok {
				return nil
			}
			return sg.GetState()
		},
		SubmitCommand: func(target core.ObjectID, subcommand uint16, args any) core.CommandID {
			return rt.pipeline.Submit(target, subcommand, args, rt.dispatchCompletion, nil)
		},
		CompleteCommand: rt.pipeline.PushCompletion,
		EmitEvent: func(evType objects.EventType, payload any) {
			rt.bus.Submit(evType, *idHolder, klass, payload)
		},
		Logger: logging.Named(fmt.Sprintf("objects.%s.%s", klass, name)),
	}
	return deps, idHolder
}

// dispatchCompletion is the CompletionHandler bound to every pipeline
// Submit, internal or host-originated; it forwards to whatever callback
// Start was given. Commands submitted before Start (or after Stop) are
// logged and dropped, since there is nowhere to deliver the result.
func (rt *Runtime) dispatchCompletion(id core.CommandID, result int, payload any) {
	rt.mu.Lock()
	cb := rt.completionCB
	rt.mu.Unlock()
	if cb == nil {
		log.Warnf("completion for command %d dropped: no callback registered", id)
		return
	}
	cb(id, result, payload)
}

// SubmitCommand queues a command for target (spec §6 exec_command,
// adapted to the Go surface: the pipeline allocates and returns the
// command id rather than taking a host-preallocated one, since the
// host-bridge marshalling this id normally crosses is out of scope here).
func (rt *Runtime) SubmitCommand(target core.ObjectID, subcommand uint16, args any) core.CommandID {
	return rt.pipeline.Submit(target, subcommand, args, rt.dispatchCompletion, nil)
}

// GetStatus returns each id's current state snapshot, or nil where the
// object does not exist or has no GetState capability (spec §6
// "list[opaque-state-pointer|None]").
func (rt *Runtime) GetStatus(ids []core.ObjectID) []any {
	out := make([]any, len(ids))
	for i, id := range ids {
		obj, ok := rt.reg.Lookup(id)
		if !ok {
			continue
		}
		if sg, ok := obj.(objects.StateGetter); ok {
			out[i] = sg.GetState()
		}
	}
	return out
}

// GetClockTicks and GetRuntime report the latest published tick counter
// and runtime in nanoseconds (spec §6).
func (rt *Runtime) GetClockTicks() uint64 {
	if rt.clk == nil {
		return 0
	}
	return rt.clk.Ticks()
}

func (rt *Runtime) GetRuntime() int64 {
	if rt.clk == nil {
		return 0
	}
	return rt.clk.RuntimeNS()
}

// EventRegister subscribes handler to evType, scoped to a specific object
// name within klass (resolved to an id now) or, if name is empty, to
// every origin of that klass (spec §4.5 wildcard subscription).
func (rt *Runtime) EventRegister(evType objects.EventType, klass core.Klass, name string, handler objects.EventHandler) error {
	if name == "" {
		rt.bus.Register(evType, klass, core.InvalidObjectID, true, handler)
		return nil
	}
	id, ok := rt.reg.LookupByName(klass, name)
	if !ok {
		return fmt.Errorf("event_register: no such object %s/%s", klass, name)
	}
	rt.bus.Register(evType, klass, id, false, handler)
	return nil
}

// EventUnregister removes every subscription matching evType/klass/name
// (spec §4.5).
func (rt *Runtime) EventUnregister(evType objects.EventType, klass core.Klass, name string) {
	if name == "" {
		rt.bus.Unregister(evType, klass, core.InvalidObjectID, true)
		return
	}
	id, ok := rt.reg.LookupByName(klass, name)
	if !ok {
		return
	}
	rt.bus.Unregister(evType, klass, id, false)
}

// EventSubmit enqueues a host-originated event on behalf of originID
// (spec §6 `event_submit(klass, object_id, payload)`); klass is read back
// from the registry rather than taken as a trusted parameter, so a
// caller can't spoof a different origin klass than the object actually
// has.
func (rt *Runtime) EventSubmit(evType objects.EventType, originID core.ObjectID, payload any) error {
	obj, ok := rt.reg.Lookup(originID)
	if !ok {
		return fmt.Errorf("event_submit: no such object %d", originID)
	}
	rt.bus.Submit(evType, originID, obj.Klass(), payload)
	return nil
}

// Pause freezes time publication (true) or resumes it (false); spec §6
// `pause(bool)`.
func (rt *Runtime) Pause(paused bool) {
	if rt.clk == nil {
		return
	}
	if paused {
		rt.clk.Pause()
	} else {
		rt.clk.Resume()
	}
}

// Reset invokes Reset on ids (or every Resetter-capable object if ids is
// nil), pausing the clock for the duration and resuming only if this call
// is the one that paused it (spec §4.4: "time control is paused for the
// duration").
func (rt *Runtime) Reset(ids []core.ObjectID) error {
	if rt.clk != nil && rt.clk.State() == clock.StateRunning {
		rt.clk.Pause()
		defer rt.clk.Resume()
	}
	return rt.reg.Reset(ids)
}
