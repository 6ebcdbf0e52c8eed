package stepper

import (
	"testing"

	"github.com/voidtrance/vortex/core"
	"github.com/voidtrance/vortex/objects"
)

func newTestStepper() (*Stepper, *[]objects.EventType) {
	events := &[]objects.EventType{}
	deps := objects.Deps{
		EmitEvent: func(evType objects.EventType, _ any) {
			*events = append(*events, evType)
		},
		CompleteCommand: func(core.CommandID, int, any) {},
	}
	return New("x", Config{StartSpeed: 1000}, deps), events
}

func TestEnableGatesMove(t *testing.T) {
	s, _ := newTestStepper()
	result := s.ExecCommand(objects.Command{Subcommand: objects.StepperMove, Args: objects.MoveArgs{Dir: objects.Forward, Steps: 10}})
	if result >= 0 {
		t.Fatalf("expected move on disabled stepper to be rejected, got %d", result)
	}

	s.ExecCommand(objects.Command{Subcommand: objects.StepperEnable, Args: objects.EnableArgs{Enable: true}})
	result = s.ExecCommand(objects.Command{Subcommand: objects.StepperMove, Args: objects.MoveArgs{Dir: objects.Forward, Steps: 10}})
	if result != 0 {
		t.Fatalf("expected move on enabled stepper to be accepted, got %d", result)
	}
}

func TestSetSpeedRejectsNegative(t *testing.T) {
	s, _ := newTestStepper()
	result := s.ExecCommand(objects.Command{Subcommand: objects.StepperSetSpeed, Args: objects.SetSpeedArgs{StepsPerSec: -1}})
	if result >= 0 {
		t.Fatalf("expected negative speed to be rejected, got %d", result)
	}
}

func TestMoveCompletesAndEmitsEvent(t *testing.T) {
	s, events := newTestStepper()
	s.ExecCommand(objects.Command{Subcommand: objects.StepperEnable, Args: objects.EnableArgs{Enable: true}})
	s.ExecCommand(objects.Command{Subcommand: objects.StepperSetSpeed, Args: objects.SetSpeedArgs{StepsPerSec: 1e9}}) // 1 step/ns
	s.ExecCommand(objects.Command{ID: core.NewCommandID(), Subcommand: objects.StepperMove, Args: objects.MoveArgs{Dir: objects.Forward, Steps: 100}})

	s.Update(1, 0)
	s.Update(2, 200) // 200ns elapsed at 1 step/ns should finish a 100-step move

	st := s.GetState().(State)
	if st.CurrentStep != 100 {
		t.Fatalf("expected CurrentStep 100, got %d", st.CurrentStep)
	}
	if len(*events) != 1 || (*events)[0] != objects.EventStepperMoveComplete {
		t.Fatalf("expected exactly one STEPPER_MOVE_COMPLETE event, got %v", *events)
	}
}

func TestBackwardMoveDecrementsPosition(t *testing.T) {
	s, _ := newTestStepper()
	s.ExecCommand(objects.Command{Subcommand: objects.StepperEnable, Args: objects.EnableArgs{Enable: true}})
	s.ExecCommand(objects.Command{Subcommand: objects.StepperSetSpeed, Args: objects.SetSpeedArgs{StepsPerSec: 1e9}})
	s.ExecCommand(objects.Command{Subcommand: objects.StepperMove, Args: objects.MoveArgs{Dir: objects.Backward, Steps: 50}})

	s.Update(1, 0)
	s.Update(2, 100)

	if got := s.GetState().(State).CurrentStep; got >= 0 {
		t.Fatalf("expected negative current_step for backward move, got %d", got)
	}
}

func TestResetZeroesState(t *testing.T) {
	s, _ := newTestStepper()
	s.ExecCommand(objects.Command{Subcommand: objects.StepperEnable, Args: objects.EnableArgs{Enable: true}})
	s.ExecCommand(objects.Command{Subcommand: objects.StepperMove, Args: objects.MoveArgs{Dir: objects.Forward, Steps: 10}})
	s.Update(1, 0)
	s.Update(2, 10)

	if err := s.Reset(); err != nil {
		t.Fatalf("Reset returned error: %v", err)
	}
	st := s.GetState().(State)
	if st.Enabled || st.CurrentStep != 0 {
		t.Fatalf("expected zeroed state after Reset, got %+v", st)
	}
}

func TestPinWordEnableDirCountDecoding(t *testing.T) {
	s, _ := newTestStepper()
	s.ExecCommand(objects.Command{Subcommand: objects.StepperUsePins, Args: objects.UsePinsArgs{Enable: true}})
	defer s.Destroy()

	// ENABLE | DIR(forward) | count=5
	s.SetPinWord(pinEnableBit | pinDirBit | 5)
	s.pollPinWord()

	if got := s.currentStep.Load(); got != 5 {
		t.Fatalf("expected current_step 5, got %d", got)
	}
}

func TestPinWordIgnoredWhenDisabled(t *testing.T) {
	s, _ := newTestStepper()
	s.ExecCommand(objects.Command{Subcommand: objects.StepperUsePins, Args: objects.UsePinsArgs{Enable: true}})
	defer s.Destroy()

	s.SetPinWord(5) // no ENABLE bit set
	s.pollPinWord()

	if got := s.currentStep.Load(); got != 0 {
		t.Fatalf("expected current_step unchanged at 0, got %d", got)
	}
}
