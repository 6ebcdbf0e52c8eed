package digitalpin

import (
	"testing"

	"github.com/voidtrance/vortex/objects"
)

func TestDefaultLevelFromConfig(t *testing.T) {
	d := New("pin0", Config{DefaultHigh: true}, objects.Deps{})
	if !d.GetState().(State).High {
		t.Fatal("expected initial level high per config")
	}
}

func TestSetLevelToggles(t *testing.T) {
	d := New("pin0", Config{}, objects.Deps{})
	if r := d.ExecCommand(objects.Command{Subcommand: objects.DigitalPinSetLevel, Args: objects.SetLevelArgs{High: true}}); r != 0 {
		t.Fatalf("expected accepted set_level, got %d", r)
	}
	if !d.GetState().(State).High {
		t.Fatal("expected level high after set_level(true)")
	}

	d.ExecCommand(objects.Command{Subcommand: objects.DigitalPinSetLevel, Args: objects.SetLevelArgs{High: false}})
	if d.GetState().(State).High {
		t.Fatal("expected level low after set_level(false)")
	}
}

func TestResetClearsLevel(t *testing.T) {
	d := New("pin0", Config{DefaultHigh: true}, objects.Deps{})
	if err := d.Reset(); err != nil {
		t.Fatalf("Reset returned error: %v", err)
	}
	if d.GetState().(State).High {
		t.Fatal("expected level low after Reset")
	}
}

func TestUnknownSubcommandRejected(t *testing.T) {
	d := New("pin0", Config{}, objects.Deps{})
	if r := d.ExecCommand(objects.Command{Subcommand: 0xFFFF}); r >= 0 {
		t.Fatalf("expected unknown subcommand rejected, got %d", r)
	}
}
