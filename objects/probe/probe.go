// Package probe implements the PROBE klass (spec §4.10): polls the
// toolhead position, adds a per-axis offset, and triggers when every axis
// is within a small randomized fuzz range of its target, emitting
// PROBE_TRIGGERED on the rising edge.
package probe

import (
	"math/rand"
	"sync/atomic"

	"github.com/voidtrance/vortex/core"
	"github.com/voidtrance/vortex/internal/objconfig"
	"github.com/voidtrance/vortex/internal/status"
	"github.com/voidtrance/vortex/objects"
	"github.com/voidtrance/vortex/registry"
)

func init() {
	registry.Register(core.KlassProbe, func(name string, config []byte, deps objects.Deps) (objects.Object, error) {
		cfg, err := objconfig.Decode[Config](config)
		if err != nil {
			return nil, err
		}
		return New(name, cfg, deps), nil
	})
}

// Config is the decoded create_object configuration blob.
type Config struct {
	Toolhead string  `json:"toolhead"`
	OffsetX  float64 `json:"offset_x_mm"`
	OffsetY  float64 `json:"offset_y_mm"`
	OffsetZ  float64 `json:"offset_z_mm"`
	FuzzMM   float64 `json:"fuzz_mm"` // half-width of the randomized trigger window; 0 picks a default
}

// State is the GetState snapshot.
type State = objects.ProbeState

// Probe is the PROBE klass object.
type Probe struct {
	id   core.ObjectID
	name string
	deps objects.Deps
	cfg  Config

	toolheadID core.ObjectID
	fuzz       float64 // randomized once per New, within [0.5, 1.5] * cfg.FuzzMM

	triggered atomic.Bool
	x, y, z   status.AtomicFloat
}

func New(name string, cfg Config, deps objects.Deps) *Probe {
	if cfg.FuzzMM == 0 {
		cfg.FuzzMM = 0.05
	}
	p := &Probe{id: core.NewObjectID(), name: name, deps: deps, cfg: cfg}
	p.fuzz = cfg.FuzzMM * (0.5 + rand.Float64())
	return p
}

func (p *Probe) ID() core.ObjectID { return p.id }
func (p *Probe) Klass() core.Klass { return core.KlassProbe }
func (p *Probe) Name() string      { return p.name }
func (p *Probe) Capabilities() objects.Capability {
	return objects.CapInit | objects.CapGetState | objects.CapUpdate | objects.CapReset
}

func (p *Probe) UpdateFrequency() float64 { return 1000 }

func (p *Probe) Init() error {
	if p.cfg.Toolhead != "" {
		p.toolheadID = p.deps.Lookup(core.KlassToolhead, p.cfg.Toolhead)
	}
	return nil
}

func (p *Probe) Reset() error {
	p.triggered.Store(false)
	p.x.Set(0)
	p.y.Set(0)
	p.z.Set(0)
	return nil
}

func (p *Probe) GetState() any {
	return State{Triggered: p.triggered.Load(), X: p.x.Get(), Y: p.y.Get(), Z: p.z.Get()}
}

func (p *Probe) Update(ticks uint64, runtimeNS int64) {
	if p.toolheadID == core.InvalidObjectID {
		return
	}
	st := p.deps.GetState(p.toolheadID)
	thState, ok := st.(objects.ToolheadState)
	if !ok {
		return
	}

	x := thState.X + p.cfg.OffsetX
	y := thState.Y + p.cfg.OffsetY
	z := thState.Z + p.cfg.OffsetZ
	p.x.Set(x)
	p.y.Set(y)
	p.z.Set(z)

	within := abs(x) <= p.fuzz && abs(y) <= p.fuzz && abs(z) <= p.fuzz
	if within && !p.triggered.Swap(true) {
		if p.deps.EmitEvent != nil {
			p.deps.EmitEvent(objects.EventProbeTriggered, struct{ X, Y, Z float64 }{x, y, z})
		}
	} else if !within {
		p.triggered.Store(false)
	}
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
