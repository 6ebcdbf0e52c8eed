// Package core holds the fundamental identifiers and process-wide helpers
// shared by every other package in the emulator: object and command ids,
// the klass enumeration, and a panic-safe goroutine launcher.
package core

import (
	"sync/atomic"
)

// ObjectID identifies an object within the registry. Zero is reserved for
// "invalid" / "not found".
type ObjectID uint64

// InvalidObjectID is returned by lookups and creation calls that fail.
const InvalidObjectID ObjectID = 0

// CommandID identifies a submitted command. Zero is never issued.
type CommandID uint64

// errIDPrefix is the high-32-bit marker used to signal a submission that
// could not be queued (spec error-id convention): the caller detects
// failure by checking the high 32 bits against this value.
const errIDPrefix = uint64(0xDEADBEEF) << 32

// ErrCommandID packs a negative errno-class result into the command-id
// space so submit functions can report failure without an out-of-band
// return value.
func ErrCommandID(errno int) CommandID {
	return CommandID(errIDPrefix | uint64(uint32(errno)))
}

// IsErrCommandID reports whether id encodes a submission failure.
func IsErrCommandID(id CommandID) bool {
	return uint64(id)&0xFFFFFFFF00000000 == errIDPrefix
}

// Klass is the closed enumeration of hardware object kinds.
type Klass int

const (
	KlassUnknown Klass = iota
	KlassStepper
	KlassEndstop
	KlassHeater
	KlassThermistor
	KlassProbe
	KlassAxis
	KlassToolhead
	KlassPWM
	KlassDigitalPin
	klassMax // sentinel, not a valid klass
)

var klassNames = [...]string{
	KlassUnknown:    "unknown",
	KlassStepper:    "stepper",
	KlassEndstop:    "endstop",
	KlassHeater:     "heater",
	KlassThermistor: "thermistor",
	KlassProbe:      "probe",
	KlassAxis:       "axis",
	KlassToolhead:   "toolhead",
	KlassPWM:        "pwm",
	KlassDigitalPin: "digital_pin",
}

func (k Klass) String() string {
	if k >= 0 && int(k) < len(klassNames) {
		return klassNames[k]
	}
	return "invalid"
}

// Valid reports whether k is a real, non-sentinel klass.
func (k Klass) Valid() bool {
	return k > KlassUnknown && k < klassMax
}

// KlassCount is the number of real klasses, usable for sizing per-klass arrays.
const KlassCount = int(klassMax)

// idGen is a process-wide monotonic allocator for object and command ids.
type idGen struct {
	next atomic.Uint64
}

func (g *idGen) next1() uint64 {
	return g.next.Add(1)
}

var (
	objectIDs  idGen
	commandIDs idGen
)

// NewObjectID returns a fresh, non-zero object id.
func NewObjectID() ObjectID {
	return ObjectID(objectIDs.next1())
}

// NewCommandID returns a fresh, non-zero, non-error-prefixed command id.
func NewCommandID() CommandID {
	for {
		id := CommandID(commandIDs.next1())
		if !IsErrCommandID(id) {
			return id
		}
	}
}
