// Package digitalpin implements the DIGITAL_PIN klass: a single boolean
// level set directly by host commands.
package digitalpin

import (
	"sync/atomic"

	"github.com/voidtrance/vortex/core"
	"github.com/voidtrance/vortex/internal/objconfig"
	"github.com/voidtrance/vortex/internal/xerrors"
	"github.com/voidtrance/vortex/objects"
	"github.com/voidtrance/vortex/registry"
)

func init() {
	registry.Register(core.KlassDigitalPin, func(name string, config []byte, deps objects.Deps) (objects.Object, error) {
		cfg, err := objconfig.Decode[Config](config)
		if err != nil {
			return nil, err
		}
		return New(name, cfg, deps), nil
	})
}

// Config is the decoded create_object configuration blob.
type Config struct {
	DefaultHigh bool `json:"default_high"`
}

// State is the GetState snapshot.
type State = objects.DigitalPinState

// DigitalPin is the DIGITAL_PIN klass object.
type DigitalPin struct {
	id   core.ObjectID
	name string
	deps objects.Deps

	high atomic.Bool
}

func New(name string, cfg Config, deps objects.Deps) *DigitalPin {
	d := &DigitalPin{id: core.NewObjectID(), name: name, deps: deps}
	d.high.Store(cfg.DefaultHigh)
	return d
}

func (d *DigitalPin) ID() core.ObjectID { return d.id }
func (d *DigitalPin) Klass() core.Klass { return core.KlassDigitalPin }
func (d *DigitalPin) Name() string      { return d.name }
func (d *DigitalPin) Capabilities() objects.Capability {
	return objects.CapExecCommand | objects.CapGetState | objects.CapReset
}

func (d *DigitalPin) GetState() any {
	return State{High: d.high.Load()}
}

func (d *DigitalPin) Reset() error {
	d.high.Store(false)
	return nil
}

func (d *DigitalPin) ExecCommand(cmd objects.Command) int {
	switch cmd.Subcommand {
	case objects.DigitalPinSetLevel:
		args, _ := cmd.Args.(objects.SetLevelArgs)
		d.high.Store(args.High)
		if d.deps.CompleteCommand != nil {
			d.deps.CompleteCommand(cmd.ID, 0, nil)
		}
		return 0
	default:
		return xerrors.Errno(xerrors.New(xerrors.KindInvalidArgument, "unknown digital_pin subcommand"))
	}
}
