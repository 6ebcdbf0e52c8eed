// Package toolhead implements the TOOLHEAD klass (spec §4.10): composes
// bound axis positions into a Cartesian position via a kinematics map, and
// emits TOOLHEAD_ORIGIN once per transit through (0, 0, 0).
package toolhead

import (
	"sync/atomic"

	"github.com/voidtrance/vortex/core"
	"github.com/voidtrance/vortex/internal/kinematics"
	"github.com/voidtrance/vortex/internal/objconfig"
	"github.com/voidtrance/vortex/internal/status"
	"github.com/voidtrance/vortex/objects"
	"github.com/voidtrance/vortex/registry"
)

func init() {
	registry.Register(core.KlassToolhead, func(name string, config []byte, deps objects.Deps) (objects.Object, error) {
		cfg, err := objconfig.Decode[Config](config)
		if err != nil {
			return nil, err
		}
		return New(name, cfg, deps), nil
	})
}

const precisionPlaces = 2 // spec §4.10 default PRECISION

// DeltaConfig
// describes the geometry needed to build a Delta kinematics model.
type DeltaConfig struct {
	ArmLength float64 `json:"arm_length_mm"`
	Radius    float64 `json:"radius_mm"`
	MinZ      float64 `json:"min_z_mm"`
	MaxZ      float64 `json:"max_z_mm"`
}

// Config is the decoded create_object configuration blob.
type Config struct {
	Kinematics string      `json:"kinematics"` // "cartesian", "corexy", "corexz", "delta"
	Delta      DeltaConfig `json:"delta"`
}

func modelFor(cfg Config) kinematics.Model {
	switch cfg.Kinematics {
	case "corexy":
		return kinematics.CoreXY{}
	case "corexz":
		return kinematics.CoreXZ{}
	case "delta":
		d := kinematics.NewDelta(cfg.Delta.ArmLength, cfg.Delta.Radius)
		d.MinZ, d.MaxZ = cfg.Delta.MinZ, cfg.Delta.MaxZ
		return d
	default:
		return kinematics.Cartesian{}
	}
}

// State is the GetState snapshot.
type State = objects.ToolheadState

// Toolhead is the TOOLHEAD klass object.
type Toolhead struct {
	id   core.ObjectID
	name string
	deps objects.Deps
	cfg  Config

	model kinematics.Model
	axes  map[objects.AxisType]core.ObjectID

	x, y, z  status.AtomicFloat
	atOrigin atomic.Bool
}

func New(name string, cfg Config, deps objects.Deps) *Toolhead {
	return &Toolhead{id: core.NewObjectID(), name: name, deps: deps, cfg: cfg, model: modelFor(cfg)}
}

func (t *Toolhead) ID() core.ObjectID { return t.id }
func (t *Toolhead) Klass() core.Klass { return core.KlassToolhead }
func (t *Toolhead) Name() string      { return t.name }
func (t *Toolhead) Capabilities() objects.Capability {
	return objects.CapInit | objects.CapGetState | objects.CapUpdate | objects.CapReset
}

func (t *Toolhead) UpdateFrequency() float64 { return 1000 }

// Init lists every axis and binds it by type (spec §4.10: "lists its axes
// at init via CORE_LIST_OBJECTS(AXIS); binds each by matching axis type").
func (t *Toolhead) Init() error {
	t.axes = make(map[objects.AxisType]core.ObjectID)
	for _, id := range t.deps.List(core.KlassAxis) {
		st := t.deps.GetState(id)
		axState, ok := st.(objects.AxisState)
		if !ok {
			continue
		}
		t.axes[axState.AxisType] = id
	}
	return nil
}

func (t *Toolhead) Reset() error {
	t.x.Set(0)
	t.y.Set(0)
	t.z.Set(0)
	t.atOrigin.Store(false)
	return nil
}

func (t *Toolhead) GetState() any {
	return State{X: t.x.Get(), Y: t.y.Get(), Z: t.z.Get(), AtOrigin: t.atOrigin.Load()}
}

func round(v float64, places int) float64 {
	mult := 1.0
	for i := 0; i < places; i++ {
		mult *= 10
	}
	return float64(int64(v*mult+0.5*sign(v))) / mult
}

func sign(v float64) float64 {
	if v < 0 {
		return -1
	}
	return 1
}

func (t *Toolhead) Update(ticks uint64, runtimeNS int64) {
	positions := make(map[objects.AxisType]float64, len(t.axes))
	for axType, id := range t.axes {
		if st := t.deps.GetState(id); st != nil {
			if axState, ok := st.(objects.AxisState); ok {
				positions[axType] = axState.Position
			}
		}
	}

	p := t.model.ToolheadPosition(positions)
	x := round(p.X, precisionPlaces)
	y := round(p.Y, precisionPlaces)
	z := round(p.Z, precisionPlaces)
	t.x.Set(x)
	t.y.Set(y)
	t.z.Set(z)

	atOrigin := x == 0 && y == 0 && z == 0
	if atOrigin && !t.atOrigin.Swap(true) {
		if t.deps.EmitEvent != nil {
			t.deps.EmitEvent(objects.EventToolheadOrigin, kinematics.Point{X: x, Y: y, Z: z})
		}
	} else if !atOrigin {
		t.atOrigin.Store(false)
	}
}
