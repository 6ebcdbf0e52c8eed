// Package heater implements the HEATER klass (spec §4.9): a slab-stack
// finite-element thermal model driven by a PID controller, plus a
// pin-driven mode in which each Update sets full or zero power from the
// latest power byte. The pin-mode goroutine ticks every microsecond but
// does not read the byte; it is not sampled between updates. The
// thermal stepping and PID live in internal/thermal; this package wires
// them to the object lifecycle and command/event contract.
package heater

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/voidtrance/vortex/core"
	"github.com/voidtrance/vortex/internal/objconfig"
	"github.com/voidtrance/vortex/internal/status"
	"github.com/voidtrance/vortex/internal/thermal"
	"github.com/voidtrance/vortex/internal/xerrors"
	"github.com/voidtrance/vortex/objects"
	"github.com/voidtrance/vortex/registry"
)

const precisionPlaces = 2 // spec §4.9/§4.10 default PRECISION

func init() {
	registry.Register(core.KlassHeater, func(name string, config []byte, deps objects.Deps) (objects.Object, error) {
		cfg, err := objconfig.Decode[Config](config)
		if err != nil {
			return nil, err
		}
		return New(name, cfg, deps), nil
	})
}

// LayerConfig describes one slab layer in the heater's stack.
type LayerConfig struct {
	Role     string  `json:"role"` // "heater", "body", "other"
	Material string  `json:"material"`
	Wx       float64 `json:"wx_mm"`
	Wy       float64 `json:"wy_mm"`
	Z        float64 `json:"z_mm"`
}

// Config is the decoded create_object configuration blob for a heater.
type Config struct {
	Resolution float64       `json:"resolution_mm"`
	MaxTempC   float64       `json:"max_temp_c"`
	PowerW     float64       `json:"power_w"`
	Layers     []LayerConfig `json:"layers"`
	Kp         float64       `json:"kp"`
	Ki         float64       `json:"ki"`
	Kd         float64       `json:"kd"`
}

func materialFor(name string) thermal.Material {
	switch name {
	case "aluminum":
		return thermal.Aluminum
	case "silicone":
		return thermal.Silicone
	case "steel":
		return thermal.Steel
	case "pla":
		return thermal.PLA
	default:
		return thermal.Aluminum
	}
}

func roleFor(name string) thermal.Role {
	switch name {
	case "heater":
		return thermal.RoleHeater
	case "body":
		return thermal.RoleBody
	default:
		return thermal.RoleOther
	}
}

// State is the GetState snapshot.
type State = objects.HeaterState

// Heater is the HEATER klass object.
type Heater struct {
	id   core.ObjectID
	name string
	deps objects.Deps

	maxTempC status.AtomicFloat
	powerW   status.AtomicFloat

	stack *thermal.Stack
	pid   thermal.PID

	targetSet     atomic.Bool
	targetTempC   status.AtomicFloat
	reachedOnce   atomic.Bool
	targetCmdID   core.CommandID
	targetCmdSet  atomic.Bool

	usePins atomic.Bool
	pinByte atomic.Uint32 // low byte: power-on/off

	lastUpdateNS atomic.Int64

	pinStop chan struct{}
	pinWG   sync.WaitGroup
}

// New constructs a heater from its decoded config.
func New(name string, cfg Config, deps objects.Deps) *Heater {
	h := &Heater{id: core.NewObjectID(), name: name, deps: deps}
	h.maxTempC.Set(cfg.MaxTempC)
	h.powerW.Set(cfg.PowerW)
	h.pid = thermal.PID{Kp: cfg.Kp, Ki: cfg.Ki, Kd: cfg.Kd}

	layers := make([]*thermal.Layer, 0, len(cfg.Layers))
	for _, lc := range cfg.Layers {
		layers = append(layers, &thermal.Layer{
			Role:     roleFor(lc.Role),
			Material: materialFor(lc.Material),
			Wx:       lc.Wx, Wy: lc.Wy, Z: lc.Z,
		})
	}
	h.stack = thermal.NewStack(cfg.Resolution, layers)
	return h
}

func (h *Heater) ID() core.ObjectID { return h.id }
func (h *Heater) Klass() core.Klass { return core.KlassHeater }
func (h *Heater) Name() string      { return h.name }
func (h *Heater) Capabilities() objects.Capability {
	return objects.CapExecCommand | objects.CapGetState | objects.CapUpdate | objects.CapReset | objects.CapDestroy
}

func (h *Heater) UpdateFrequency() float64 { return 100 } // 100 Hz: PID doesn't need kHz pacing

func (h *Heater) GetState() any {
	return State{
		SensorTempC: round(h.stack.SensorTemp(), precisionPlaces),
		TargetTempC: h.targetTempC.Get(),
		PowerW:      h.powerW.Get(),
		UsePins:     h.usePins.Load(),
	}
}

func (h *Heater) Reset() error {
	h.stack.Reset()
	h.pid.Reset()
	h.targetSet.Store(false)
	h.reachedOnce.Store(false)
	h.targetTempC.Set(0)
	h.usePins.Store(false)
	return nil
}

func (h *Heater) Destroy() {
	h.stopPinLoop()
}

func (h *Heater) ExecCommand(cmd objects.Command) int {
	switch cmd.Subcommand {
	case objects.HeaterSetTemp:
		args, _ := cmd.Args.(objects.SetTempArgs)
		if args.TempC < 0 || args.TempC > h.maxTempC.Get() {
			return xerrors.Errno(xerrors.New(xerrors.KindInvalidArgument, "temperature out of range"))
		}
		h.targetTempC.Set(args.TempC)
		h.targetSet.Store(true)
		h.reachedOnce.Store(false)
		h.targetCmdID = cmd.ID
		h.targetCmdSet.Store(true)
		return 0

	case objects.HeaterUsePins:
		args, _ := cmd.Args.(objects.UsePinsArgs)
		h.usePins.Store(args.Enable)
		if args.Enable {
			h.startPinLoop()
		} else {
			h.stopPinLoop()
		}
		return 0

	default:
		return xerrors.Errno(xerrors.New(xerrors.KindInvalidArgument, "unknown heater subcommand"))
	}
}

func round(v float64, places int) float64 {
	mult := 1.0
	for i := 0; i < places; i++ {
		mult *= 10
	}
	return float64(int64(v*mult+0.5)) / mult
}

func (h *Heater) Update(ticks uint64, runtimeNS int64) {
	deltaNS := runtimeNS - h.lastUpdateNS.Swap(runtimeNS)
	if deltaNS <= 0 {
		return
	}
	dt := float64(deltaNS) / 1e9

	if h.usePins.Load() {
		if h.pinByte.Load() != 0 {
			h.stack.SetPower(h.powerW.Get())
		} else {
			h.stack.SetPower(0)
		}
	} else if h.targetSet.Load() {
		target := h.targetTempC.Get()
		sensor := h.stack.SensorTemp()
		duty := h.pid.Step(target-sensor, dt)
		h.stack.SetPower(h.powerW.Get() * duty)
	} else {
		h.stack.SetPower(0)
	}

	h.stack.Step(dt)

	if h.targetSet.Load() && !h.reachedOnce.Load() {
		sensor := round(h.stack.SensorTemp(), precisionPlaces)
		target := round(h.targetTempC.Get(), precisionPlaces)
		if sensor == target {
			h.reachedOnce.Store(true)
			if h.targetCmdSet.Swap(false) && h.deps.CompleteCommand != nil {
				h.deps.CompleteCommand(h.targetCmdID, 0, sensor)
			}
			if h.deps.EmitEvent != nil {
				h.deps.EmitEvent(objects.EventHeaterTempReached, sensor)
			}
		}
	}
}

func (h *Heater) startPinLoop() {
	h.stopPinLoop()
	h.pinStop = make(chan struct{})
	h.pinWG.Add(1)
	stop := h.pinStop
	go func() {
		defer h.pinWG.Done()
		ticker := time.NewTicker(time.Microsecond)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
			}
		}
	}()
}

func (h *Heater) stopPinLoop() {
	if h.pinStop != nil {
		close(h.pinStop)
		h.pinWG.Wait()
		h.pinStop = nil
	}
}

// SetPinByte is the bridge-facing setter that simulates a bit-banged
// power line in pin-driven mode: nonzero keeps power at full P, zero cuts
// it (spec §4.9).
func (h *Heater) SetPinByte(v byte) {
	if v != 0 {
		h.pinByte.Store(1)
	} else {
		h.pinByte.Store(0)
	}
}
