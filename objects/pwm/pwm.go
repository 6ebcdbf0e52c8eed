// Package pwm implements the PWM klass: a duty cycle and frequency pair
// set directly by host commands, with no physical model behind it (spec
// §1: PWM duty cycle toggling is covered at the interface level only).
package pwm

import (
	"github.com/voidtrance/vortex/core"
	"github.com/voidtrance/vortex/internal/objconfig"
	"github.com/voidtrance/vortex/internal/status"
	"github.com/voidtrance/vortex/internal/xerrors"
	"github.com/voidtrance/vortex/objects"
	"github.com/voidtrance/vortex/registry"
)

func init() {
	registry.Register(core.KlassPWM, func(name string, config []byte, deps objects.Deps) (objects.Object, error) {
		cfg, err := objconfig.Decode[Config](config)
		if err != nil {
			return nil, err
		}
		return New(name, cfg, deps), nil
	})
}

// Config is the decoded create_object configuration blob.
type Config struct {
	DefaultHZ float64 `json:"default_hz"`
}

// State is the GetState snapshot.
type State = objects.PWMState

// PWM is the PWM klass object.
type PWM struct {
	id   core.ObjectID
	name string
	deps objects.Deps

	duty status.AtomicFloat
	hz   status.AtomicFloat
}

func New(name string, cfg Config, deps objects.Deps) *PWM {
	p := &PWM{id: core.NewObjectID(), name: name, deps: deps}
	p.hz.Set(cfg.DefaultHZ)
	return p
}

func (p *PWM) ID() core.ObjectID { return p.id }
func (p *PWM) Klass() core.Klass { return core.KlassPWM }
func (p *PWM) Name() string      { return p.name }
func (p *PWM) Capabilities() objects.Capability {
	return objects.CapExecCommand | objects.CapGetState | objects.CapReset
}

func (p *PWM) GetState() any {
	return State{Duty: p.duty.Get(), HZ: p.hz.Get()}
}

func (p *PWM) Reset() error {
	p.duty.Set(0)
	return nil
}

func (p *PWM) ExecCommand(cmd objects.Command) int {
	switch cmd.Subcommand {
	case objects.PWMSetDuty:
		args, _ := cmd.Args.(objects.SetDutyArgs)
		if args.Duty < 0 || args.Duty > 1 {
			return xerrors.Errno(xerrors.New(xerrors.KindInvalidArgument, "duty out of [0,1]"))
		}
		p.duty.Set(args.Duty)
		return 0

	case objects.PWMSetFrequency:
		args, _ := cmd.Args.(objects.SetFrequencyArgs)
		if args.HZ <= 0 {
			return xerrors.Errno(xerrors.New(xerrors.KindInvalidArgument, "frequency must be positive"))
		}
		p.hz.Set(args.HZ)
		return 0

	default:
		return xerrors.Errno(xerrors.New(xerrors.KindInvalidArgument, "unknown pwm subcommand"))
	}
}
