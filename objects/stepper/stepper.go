// Package stepper implements the STEPPER klass (spec §4.8): trapezoidal
// move timing, acceleration/deceleration phase tracking, and a pin-driven
// mode that derives step counts from an atomically shared 32-bit word.
// Grounded on the runtime's update/capability contract in objects/object.go;
// the accel/decel phase arithmetic and pin-word encoding follow spec.md
// §4.8 and SPEC_FULL.md §7's resolution of the pin-word open question
// (ENABLE bit 31, DIR bit 30, step count in bits 0-15).
package stepper

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/voidtrance/vortex/core"
	"github.com/voidtrance/vortex/internal/objconfig"
	"github.com/voidtrance/vortex/internal/status"
	"github.com/voidtrance/vortex/internal/xerrors"
	"github.com/voidtrance/vortex/objects"
	"github.com/voidtrance/vortex/registry"
)

const (
	pinEnableBit uint32 = 1 << 31
	pinDirBit    uint32 = 1 << 30
	pinCountMask uint32 = 0xFFFF
)

func init() {
	registry.Register(core.KlassStepper, func(name string, config []byte, deps objects.Deps) (objects.Object, error) {
		cfg, err := objconfig.Decode[Config](config)
		if err != nil {
			return nil, err
		}
		return New(name, cfg, deps), nil
	})
}

// Config is the decoded create_object configuration blob for a stepper.
type Config struct {
	StepsPerRotation int     `json:"steps_per_rotation"`
	Microsteps       int     `json:"microsteps"`
	StartSpeed       float64 `json:"start_speed"` // steps/s
}

// phase names the motion segment a move is currently in.
type phase int32

const (
	phaseIdle phase = iota
	phaseAccel
	phaseCruise
	phaseDecel
)

// State is the GetState snapshot (spec §3: object state).
type State = objects.StepperState

// Stepper is the STEPPER klass object.
type Stepper struct {
	id   core.ObjectID
	name string
	deps objects.Deps

	enabled     atomic.Bool
	currentStep atomic.Int64
	spns        status.AtomicFloat // cruise speed, steps/ns
	accelRate   status.AtomicFloat
	decelRate   status.AtomicFloat
	usePins     atomic.Bool
	pinWord     atomic.Uint32

	// Move-in-progress bookkeeping: touched only by ExecCommand and
	// Update, which the runtime guarantees are never invoked
	// concurrently for the same object (spec §5 ordering guarantee a).
	movePh       phase
	moveSteps    int64
	stepsDone    float64
	direction    objects.Direction
	accelStart   int64
	decelStart   int64
	accelDist    float64
	decelDist    float64
	lastUpdateNS int64
	moveCmdID    core.CommandID

	pinStop chan struct{}
	pinWG   sync.WaitGroup
}

// New constructs a stepper named name from its decoded config.
func New(name string, cfg Config, deps objects.Deps) *Stepper {
	s := &Stepper{id: core.NewObjectID(), name: name, deps: deps}
	if cfg.StartSpeed > 0 {
		s.spns.Set(cfg.StartSpeed / 1e9)
	}
	return s
}

func (s *Stepper) ID() core.ObjectID    { return s.id }
func (s *Stepper) Klass() core.Klass    { return core.KlassStepper }
func (s *Stepper) Name() string         { return s.name }
func (s *Stepper) Capabilities() objects.Capability {
	return objects.CapExecCommand | objects.CapGetState | objects.CapUpdate | objects.CapReset | objects.CapDestroy
}

func (s *Stepper) UpdateFrequency() float64 { return 1000 } // 1 kHz default pacing

func (s *Stepper) GetState() any {
	return State{
		Enabled:     s.enabled.Load(),
		CurrentStep: s.currentStep.Load(),
		SPNS:        s.spns.Get(),
		AccelRate:   s.accelRate.Get(),
		DecelRate:   s.decelRate.Get(),
		UsePins:     s.usePins.Load(),
		MoveSteps:   s.moveSteps,
		Direction:   s.direction,
	}
}

func (s *Stepper) Reset() error {
	s.enabled.Store(false)
	s.currentStep.Store(0)
	s.spns.Set(0)
	s.accelRate.Set(0)
	s.decelRate.Set(0)
	s.usePins.Store(false)
	s.pinWord.Store(0)
	s.movePh = phaseIdle
	s.moveSteps = 0
	s.stepsDone = 0
	return nil
}

func (s *Stepper) Destroy() {
	s.stopPinLoop()
}

// ExecCommand accepts or synchronously rejects a subcommand (spec §4.3,
// §4.8).
func (s *Stepper) ExecCommand(cmd objects.Command) int {
	switch cmd.Subcommand {
	case objects.StepperEnable:
		args, _ := cmd.Args.(objects.EnableArgs)
		s.enabled.Store(args.Enable)
		if !args.Enable {
			s.movePh = phaseIdle
		}
		return 0

	case objects.StepperSetSpeed:
		args, _ := cmd.Args.(objects.SetSpeedArgs)
		if args.StepsPerSec < 0 {
			return xerrors.Errno(xerrors.New(xerrors.KindInvalidArgument, "negative speed"))
		}
		s.spns.Set(args.StepsPerSec / 1e9)
		return 0

	case objects.StepperSetAccel:
		args, _ := cmd.Args.(objects.SetAccelArgs)
		decel := args.Decel
		if decel == 0 {
			decel = args.Accel
		}
		s.accelRate.Set(args.Accel)
		s.decelRate.Set(decel)
		return 0

	case objects.StepperMove:
		if !s.enabled.Load() {
			return xerrors.Errno(xerrors.New(xerrors.KindBusy, "stepper disabled"))
		}
		args, _ := cmd.Args.(objects.MoveArgs)
		s.startMove(args, cmd.ID)
		return 0

	case objects.StepperUsePins:
		args, _ := cmd.Args.(objects.UsePinsArgs)
		s.usePins.Store(args.Enable)
		if args.Enable {
			s.startPinLoop()
		} else {
			s.stopPinLoop()
		}
		return 0

	default:
		return xerrors.Errno(xerrors.New(xerrors.KindInvalidArgument, "unknown stepper subcommand"))
	}
}

func (s *Stepper) startMove(args objects.MoveArgs, cmdID core.CommandID) {
	spns := s.spns.Get()
	accel := s.accelRate.Get()

	s.movePh = phaseCruise
	s.moveSteps = args.Steps
	s.stepsDone = 0
	s.direction = args.Dir
	s.moveCmdID = cmdID

	if accel > 0 {
		// accel_distance = 0.5 * accel_rate * (spns/accel_rate)^2
		t := spns / accel
		s.accelDist = 0.5 * accel * t * t
		s.decelDist = s.accelDist
		s.movePh = phaseAccel
		s.accelStart = s.lastUpdateNS
	}
}

// Update advances move timing and pin-mode sampling (spec §4.8).
func (s *Stepper) Update(ticks uint64, runtimeNS int64) {
	if s.usePins.Load() {
		s.lastUpdateNS = runtimeNS
		return
	}

	deltaNS := runtimeNS - s.lastUpdateNS
	s.lastUpdateNS = runtimeNS
	if s.movePh == phaseIdle || deltaNS <= 0 {
		return
	}

	spns := s.spns.Get()
	accel := s.accelRate.Get()
	decel := s.decelRate.Get()

	var speed float64
	remaining := float64(s.moveSteps) - s.stepsDone

	switch {
	case s.movePh == phaseAccel && s.stepsDone < s.accelDist && accel > 0:
		speed = float64(runtimeNS-s.accelStart) * accel
		if speed >= spns {
			speed = spns
			s.movePh = phaseCruise
		}
	case decel > 0 && remaining <= s.decelDist && s.movePh != phaseDecel:
		s.movePh = phaseDecel
		s.decelStart = runtimeNS
		speed = spns
	case s.movePh == phaseDecel:
		speed = spns - float64(runtimeNS-s.decelStart)*decel
		if speed < 0 {
			speed = 0
		}
	default:
		speed = spns
	}

	step := speed * float64(deltaNS)
	if step > remaining {
		step = remaining
	}
	if step < 0 {
		step = 0
	}
	s.stepsDone += step

	delta := int64(step)
	if s.direction == objects.Backward {
		delta = -delta
	}
	s.currentStep.Add(delta)

	if s.stepsDone >= float64(s.moveSteps) {
		s.movePh = phaseIdle
		current := s.currentStep.Load()
		if s.deps.CompleteCommand != nil {
			s.deps.CompleteCommand(s.moveCmdID, 0, current)
		}
		if s.deps.EmitEvent != nil {
			s.deps.EmitEvent(objects.EventStepperMoveComplete, current)
		}
	}
}

// startPinLoop launches the 1 µs pin-sampling goroutine (spec §4.8
// pin-driven mode).
func (s *Stepper) startPinLoop() {
	s.stopPinLoop()
	s.pinStop = make(chan struct{})
	s.pinWG.Add(1)
	stop := s.pinStop
	go func() {
		defer s.pinWG.Done()
		ticker := time.NewTicker(time.Microsecond)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				s.pollPinWord()
			}
		}
	}()
}

func (s *Stepper) stopPinLoop() {
	if s.pinStop != nil {
		close(s.pinStop)
		s.pinWG.Wait()
		s.pinStop = nil
	}
}

// pollPinWord atomically clears the step-count bits while reading them,
// accumulating into current_step gated by ENABLE and signed by DIR.
func (s *Stepper) pollPinWord() {
	for {
		old := s.pinWord.Load()
		cleared := old &^ pinCountMask
		if s.pinWord.CompareAndSwap(old, cleared) {
			count := int64(old & pinCountMask)
			if count == 0 || old&pinEnableBit == 0 {
				return
			}
			if old&pinDirBit == 0 {
				count = -count
			}
			s.currentStep.Add(count)
			return
		}
	}
}

// SetPinWord is the bridge-facing setter for pin-driven mode (normally
// invoked from the host side simulating bit-banged GPIO).
func (s *Stepper) SetPinWord(word uint32) {
	s.pinWord.Store(word)
}
