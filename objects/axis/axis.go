// Package axis implements the AXIS klass: averages the position of the
// motors it owns, clamps to configured travel limits against an optional
// endstop, and drives a minimal homing sequence (spec §4.10).
package axis

import (
	"sync/atomic"

	"github.com/voidtrance/vortex/core"
	"github.com/voidtrance/vortex/internal/objconfig"
	"github.com/voidtrance/vortex/internal/status"
	"github.com/voidtrance/vortex/objects"
	"github.com/voidtrance/vortex/registry"
)

func init() {
	registry.Register(core.KlassAxis, func(name string, config []byte, deps objects.Deps) (objects.Object, error) {
		cfg, err := objconfig.Decode[Config](config)
		if err != nil {
			return nil, err
		}
		return New(name, cfg, deps), nil
	})
}

// Config is the decoded create_object configuration blob.
type Config struct {
	AxisType      string   `json:"axis_type"` // X, Y, Z, A, B, C, E
	Length        float64  `json:"length_mm"`
	TravelPerStep float64  `json:"travel_per_step_mm"`
	Steppers      []string `json:"steppers"`
	Endstop       string   `json:"endstop"`
}

func axisTypeFor(s string) objects.AxisType {
	switch s {
	case "X":
		return objects.AxisX
	case "Y":
		return objects.AxisY
	case "Z":
		return objects.AxisZ
	case "A":
		return objects.AxisA
	case "B":
		return objects.AxisB
	case "C":
		return objects.AxisC
	case "E":
		return objects.AxisE
	default:
		return objects.AxisX
	}
}

// State is the GetState snapshot.
type State = objects.AxisState

// Axis is the AXIS klass object.
type Axis struct {
	id   core.ObjectID
	name string
	deps objects.Deps
	cfg  Config
	kind objects.AxisType

	motorIDs    []core.ObjectID
	cachedSteps []float64
	endstopID   core.ObjectID

	position status.AtomicFloat
	homed    atomic.Bool
	homing   atomic.Bool
}

func New(name string, cfg Config, deps objects.Deps) *Axis {
	return &Axis{id: core.NewObjectID(), name: name, deps: deps, cfg: cfg, kind: axisTypeFor(cfg.AxisType)}
}

func (a *Axis) ID() core.ObjectID { return a.id }
func (a *Axis) Klass() core.Klass { return core.KlassAxis }
func (a *Axis) Name() string      { return a.name }
func (a *Axis) Capabilities() objects.Capability {
	return objects.CapInit | objects.CapExecCommand | objects.CapGetState | objects.CapUpdate | objects.CapReset
}

func (a *Axis) UpdateFrequency() float64 { return 1000 }

func (a *Axis) Init() error {
	for _, name := range a.cfg.Steppers {
		id := a.deps.Lookup(core.KlassStepper, name)
		a.motorIDs = append(a.motorIDs, id)
		a.cachedSteps = append(a.cachedSteps, 0)
	}
	if a.cfg.Endstop != "" {
		a.endstopID = a.deps.Lookup(core.KlassEndstop, a.cfg.Endstop)
	}
	return nil
}

func (a *Axis) Reset() error {
	a.position.Set(0)
	a.homed.Store(false)
	a.homing.Store(false)
	for i := range a.cachedSteps {
		a.cachedSteps[i] = 0
	}
	return nil
}

func (a *Axis) GetState() any {
	return State{AxisType: a.kind, Position: a.position.Get(), Homed: a.homed.Load()}
}

// AxisType reports the bound axis kind, used by toolhead to match axes to
// kinematics slots.
func (a *Axis) AxisType() objects.AxisType { return a.kind }

func (a *Axis) ExecCommand(cmd objects.Command) int {
	switch cmd.Subcommand {
	case objects.AxisHome:
		// Homing is driven by the host submitting repeated MOVE commands
		// directly to this axis's steppers (spec §8 scenario 3); HOME
		// only arms the axis to watch for the endstop trigger that ends
		// the sequence.
		a.homing.Store(true)
		a.homed.Store(false)
		return 0
	default:
		return 0
	}
}

func (a *Axis) Update(ticks uint64, runtimeNS int64) {
	if len(a.motorIDs) > 0 {
		var total float64
		for i, id := range a.motorIDs {
			st := a.deps.GetState(id)
			ss, ok := st.(objects.StepperState)
			if !ok {
				continue
			}
			steps := float64(ss.CurrentStep)
			total += steps*a.cfg.TravelPerStep - a.cachedSteps[i]
			a.cachedSteps[i] = steps * a.cfg.TravelPerStep
		}
		mean := total / float64(len(a.motorIDs))
		pos := a.position.Get() + mean
		a.position.Set(pos)
	}

	pos := a.position.Get()
	if a.cfg.Length > 0 {
		if a.endstopID != core.InvalidObjectID {
			if st := a.deps.GetState(a.endstopID); st != nil {
				if esState, ok := st.(objects.EndstopState); ok {
					switch esState.End {
					case objects.EndstopMin:
						if pos < 0 {
							pos = 0
							a.position.Set(pos)
						}
					case objects.EndstopMax:
						if pos > a.cfg.Length {
							pos = a.cfg.Length
							a.position.Set(pos)
						}
					}
				}
			}
		}
	}

	if a.homing.Load() && a.endstopID != core.InvalidObjectID {
		if st := a.deps.GetState(a.endstopID); st != nil {
			if esState, ok := st.(objects.EndstopState); ok && esState.Triggered {
				a.homing.Store(false)
				a.position.Set(0)
				if !a.homed.Swap(true) {
					if a.deps.EmitEvent != nil {
						a.deps.EmitEvent(objects.EventAxisHomed, true)
					}
				}
			}
		}
	}
}
