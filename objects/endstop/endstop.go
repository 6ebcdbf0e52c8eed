// Package endstop implements the ENDSTOP klass: a boundary sensor bound
// to an axis end (MIN or MAX) that emits ENDSTOP_TRIGGER on edge changes.
package endstop

import (
	"sync/atomic"

	"github.com/voidtrance/vortex/core"
	"github.com/voidtrance/vortex/internal/objconfig"
	"github.com/voidtrance/vortex/objects"
	"github.com/voidtrance/vortex/registry"
)

func init() {
	registry.Register(core.KlassEndstop, func(name string, config []byte, deps objects.Deps) (objects.Object, error) {
		cfg, err := objconfig.Decode[Config](config)
		if err != nil {
			return nil, err
		}
		return New(name, cfg, deps), nil
	})
}

// Config is the decoded create_object configuration blob.
type Config struct {
	Position float64 `json:"position"` // trigger position, mm
	End      string  `json:"end"`      // "min" or "max"
	Axis     string  `json:"axis"`
}

// State is the GetState snapshot.
type State = objects.EndstopState

// Endstop is the ENDSTOP klass object.
type Endstop struct {
	id   core.ObjectID
	name string
	deps objects.Deps
	cfg  Config
	end  objects.EndstopEnd

	axisID core.ObjectID

	triggered atomic.Bool
	primed    atomic.Bool // set after the first Update, gates init-artefact suppression
}

func New(name string, cfg Config, deps objects.Deps) *Endstop {
	end := objects.EndstopMin
	if cfg.End == "max" {
		end = objects.EndstopMax
	}
	return &Endstop{id: core.NewObjectID(), name: name, deps: deps, cfg: cfg, end: end}
}

func (e *Endstop) ID() core.ObjectID { return e.id }
func (e *Endstop) Klass() core.Klass { return core.KlassEndstop }
func (e *Endstop) Name() string      { return e.name }
func (e *Endstop) Capabilities() objects.Capability {
	return objects.CapInit | objects.CapGetState | objects.CapUpdate | objects.CapReset
}

func (e *Endstop) UpdateFrequency() float64 { return 1000 }

func (e *Endstop) Init() error {
	if e.cfg.Axis != "" {
		e.axisID = e.deps.Lookup(core.KlassAxis, e.cfg.Axis)
	}
	return nil
}

func (e *Endstop) GetState() any {
	return State{Triggered: e.triggered.Load(), End: e.end}
}

func (e *Endstop) Reset() error {
	e.triggered.Store(false)
	e.primed.Store(false)
	return nil
}

// Update polls the bound axis's position each tick and infers the trigger
// level from it, emitting ENDSTOP_TRIGGER on edge changes. The first
// Update after Reset/creation only primes the level without emitting, to
// avoid an init artefact firing before the axis has moved (spec §4.10).
func (e *Endstop) Update(ticks uint64, runtimeNS int64) {
	if e.axisID == core.InvalidObjectID {
		return
	}
	st := e.deps.GetState(e.axisID)
	axState, ok := st.(objects.AxisState)
	if !ok {
		return
	}

	var level bool
	switch e.end {
	case objects.EndstopMin:
		level = axState.Position <= e.cfg.Position
	case objects.EndstopMax:
		level = axState.Position >= e.cfg.Position
	}

	prev := e.triggered.Swap(level)
	if !e.primed.Swap(true) {
		return
	}
	if prev == level {
		return
	}
	if e.deps.EmitEvent != nil {
		e.deps.EmitEvent(objects.EventEndstopTrigger, level)
	}
}
