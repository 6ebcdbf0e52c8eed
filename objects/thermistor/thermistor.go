// Package thermistor implements the THERMISTOR klass: a simple sensor
// that reports the temperature of a referenced heater, converted to an
// NTC-style resistance reading (spec §1: sensors are covered at the
// interface level only — no physical thermistor curve fitting is
// required beyond a plausible Beta-equation conversion).
package thermistor

import (
	"math"

	"github.com/voidtrance/vortex/core"
	"github.com/voidtrance/vortex/internal/objconfig"
	"github.com/voidtrance/vortex/objects"
	"github.com/voidtrance/vortex/registry"
)

func init() {
	registry.Register(core.KlassThermistor, func(name string, config []byte, deps objects.Deps) (objects.Object, error) {
		cfg, err := objconfig.Decode[Config](config)
		if err != nil {
			return nil, err
		}
		return New(name, cfg, deps), nil
	})
}

// Config is the decoded create_object configuration blob.
type Config struct {
	Heater  string  `json:"heater"`
	BetaK   float64 `json:"beta_k"`   // Beta coefficient, K
	R0Ohms  float64 `json:"r0_ohms"`  // resistance at 25C
	T0K     float64 `json:"t0_k"`     // reference temperature, Kelvin (298.15 for 25C)
}

// State is the GetState snapshot.
type State struct {
	TempC        float64
	ResistanceOhms float64
}

// Thermistor is the THERMISTOR klass object.
type Thermistor struct {
	id   core.ObjectID
	name string
	deps objects.Deps
	cfg  Config

	heaterID core.ObjectID
}

func New(name string, cfg Config, deps objects.Deps) *Thermistor {
	if cfg.BetaK == 0 {
		cfg.BetaK = 3950
	}
	if cfg.R0Ohms == 0 {
		cfg.R0Ohms = 100000
	}
	if cfg.T0K == 0 {
		cfg.T0K = 298.15
	}
	return &Thermistor{id: core.NewObjectID(), name: name, deps: deps, cfg: cfg}
}

func (t *Thermistor) ID() core.ObjectID { return t.id }
func (t *Thermistor) Klass() core.Klass { return core.KlassThermistor }
func (t *Thermistor) Name() string      { return t.name }
func (t *Thermistor) Capabilities() objects.Capability {
	return objects.CapInit | objects.CapGetState
}

func (t *Thermistor) Init() error {
	if t.cfg.Heater != "" {
		t.heaterID = t.deps.Lookup(core.KlassHeater, t.cfg.Heater)
	}
	return nil
}

func (t *Thermistor) GetState() any {
	tempC := 25.0
	if t.heaterID != core.InvalidObjectID {
		if st := t.deps.GetState(t.heaterID); st != nil {
			if hs, ok := st.(objects.HeaterState); ok {
				tempC = hs.SensorTempC
			}
		}
	}

	tK := tempC + 273.15
	// Beta equation: R = R0 * exp(Beta * (1/T - 1/T0))
	r := t.cfg.R0Ohms * math.Exp(t.cfg.BetaK*(1/tK-1/t.cfg.T0K))

	return State{TempC: tempC, ResistanceOhms: r}
}
