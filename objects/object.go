// Package objects defines the narrow contract every hardware object
// (stepper, heater, axis, ...) implements, plus the plain data types
// (Command, Event) that cross the object/runtime boundary. Concrete klass
// implementations live in subpackages (objects/stepper, objects/heater,
// ...); this package stays free of any particular klass so the registry,
// command pipeline, and event bus can depend on it without a cycle.
package objects

import (
	"github.com/voidtrance/vortex/core"
	"github.com/voidtrance/vortex/internal/logging"
)

// Object is the minimum every registry entry satisfies: a stable identity.
// Everything else (Init, Reset, ExecCommand, GetState, Update, Destroy) is
// an optional capability interface; the registry type-asserts for each one
// and records which are present in Capabilities().
type Object interface {
	ID() core.ObjectID
	Klass() core.Klass
	Name() string
	Capabilities() Capability
}

// Initializer objects run setup logic once, in registry order, during
// init_objects. A non-nil error fails the whole init_objects call (spec §4.4).
type Initializer interface {
	Init() error
}

// Resetter objects return to their documented defaults. reset() runs under
// a paused clock (spec §4.4).
type Resetter interface {
	Reset() error
}

// CommandExecutor accepts or synchronously rejects a command. It must
// never block (spec §4.3): either it accepts (returning 0, possibly
// arranging for a later Update to complete it and/or emit an event) or it
// rejects with a negative errno-class integer.
type CommandExecutor interface {
	ExecCommand(cmd Command) int
}

// StateGetter returns a snapshot of state safe to read concurrently with
// Update (spec §4.2): implementations copy out atomically-published
// scalars or use a seqlock, never a mutex shared with Update's write path.
type StateGetter interface {
	GetState() any
}

// Updater objects are driven once per tick by a dedicated update thread at
// their own pacing frequency.
type Updater interface {
	Update(ticks uint64, runtimeNS int64)
	UpdateFrequency() float64
}

// Destroyer objects release any resources (auxiliary goroutines, pinned
// memory) before the registry drops its last reference.
type Destroyer interface {
	Destroy()
}

// Command is the payload ExecCommand receives: a klass-private subcommand
// id plus its decoded arguments. The runtime's command pipeline wraps this
// with the bookkeeping (id, completion handler, caller data) objects never see.
type Command struct {
	ID         core.CommandID
	Target     core.ObjectID
	Subcommand uint16
	Args       any
}

// Deps is the call-data every object receives at construction time,
// wiring it to the runtime's registry, event bus, and command pipeline by
// function value instead of by holding a pointer back into the runtime
// (spec's Design Notes: resolve cyclic references by passing borrowed
// handles, not owning pointers).
type Deps struct {
	// Lookup resolves a (klass, name) pair to an id, or core.InvalidObjectID.
	Lookup func(klass core.Klass, name string) core.ObjectID
	// List returns every object id currently registered under klass, in
	// insertion order.
	List func(klass core.Klass) []core.ObjectID
	// GetState returns the target's current state snapshot, or nil if the
	// target has no GetState capability or does not exist.
	GetState func(id core.ObjectID) any
	// SubmitCommand queues a command for target; returns an error-coded id
	// (core.IsErrCommandID) if it could not be queued.
	SubmitCommand func(target core.ObjectID, subcommand uint16, args any) core.CommandID
	// CompleteCommand signals that a command this object accepted (returned
	// 0 from ExecCommand, deferring completion to a later Update) has
	// finished, with the result and payload to deliver to its handler.
	// Called at most once per command id (spec §3 completion invariant).
	CompleteCommand func(id core.CommandID, result int, payload any)
	// EmitEvent enqueues an event with this object as origin.
	EmitEvent func(evType EventType, payload any)
	// Logger is a pre-scoped logger named after this object's klass and name.
	Logger logging.Logger
}
