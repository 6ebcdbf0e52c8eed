package objects

import "github.com/voidtrance/vortex/core"

// EventType is the closed set of events an object may emit (spec §6).
type EventType int

const (
	EventStepperMoveComplete EventType = iota
	EventHeaterTempReached
	EventEndstopTrigger
	EventAxisHomed
	EventProbeTriggered
	EventToolheadOrigin
	eventTypeCount
)

var eventNames = [...]string{
	EventStepperMoveComplete: "STEPPER_MOVE_COMPLETE",
	EventHeaterTempReached:   "HEATER_TEMP_REACHED",
	EventEndstopTrigger:      "ENDSTOP_TRIGGER",
	EventAxisHomed:           "AXIS_HOMED",
	EventProbeTriggered:      "PROBE_TRIGGERED",
	EventToolheadOrigin:      "TOOLHEAD_ORIGIN",
}

func (e EventType) String() string {
	if int(e) >= 0 && int(e) < len(eventNames) {
		return eventNames[e]
	}
	return "unknown"
}

// EventTypeCount is the number of real event types, for sizing subscription tables.
const EventTypeCount = int(eventTypeCount)

// Event is a single emission: origin identity plus a payload owned by the
// producer until every matching subscription has run (spec §3).
type Event struct {
	Type        EventType
	OriginID    core.ObjectID
	OriginKlass core.Klass
	Payload     any
}

// EventHandler receives dispatched events. Internal subscribers (other
// objects) and host-bridge subscribers both implement this; the bus does
// not distinguish between them beyond how they were registered.
type EventHandler interface {
	HandleEvent(Event)
}

// EventHandlerFunc adapts a plain function to EventHandler.
type EventHandlerFunc func(Event)

func (f EventHandlerFunc) HandleEvent(e Event) { f(e) }
