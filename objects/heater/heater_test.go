package heater

import (
	"testing"

	"github.com/voidtrance/vortex/core"
	"github.com/voidtrance/vortex/objects"
)

func newTestHeater() *Heater {
	cfg := Config{
		Resolution: 5, MaxTempC: 260, PowerW: 40,
		Kp: 20, Ki: 1, Kd: 5,
		Layers: []LayerConfig{
			{Role: "heater", Material: "aluminum", Wx: 20, Wy: 20, Z: 2},
			{Role: "body", Material: "aluminum", Wx: 20, Wy: 20, Z: 10},
		},
	}
	return New("h", cfg, objects.Deps{})
}

func TestSetTempRejectsOutOfRange(t *testing.T) {
	h := newTestHeater()
	if r := h.ExecCommand(objects.Command{Subcommand: objects.HeaterSetTemp, Args: objects.SetTempArgs{TempC: -1}}); r >= 0 {
		t.Fatalf("expected negative temp rejected, got %d", r)
	}
	if r := h.ExecCommand(objects.Command{Subcommand: objects.HeaterSetTemp, Args: objects.SetTempArgs{TempC: 1000}}); r >= 0 {
		t.Fatalf("expected above-max temp rejected, got %d", r)
	}
}

func TestSetTempAcceptsInRangeAndSetsTarget(t *testing.T) {
	h := newTestHeater()
	r := h.ExecCommand(objects.Command{ID: core.NewCommandID(), Subcommand: objects.HeaterSetTemp, Args: objects.SetTempArgs{TempC: 200}})
	if r != 0 {
		t.Fatalf("expected accepted set_temp, got %d", r)
	}
	if got := h.GetState().(State).TargetTempC; got != 200 {
		t.Fatalf("expected target 200, got %v", got)
	}
}

func TestSustainedPowerRaisesSensorTemp(t *testing.T) {
	h := newTestHeater()
	h.ExecCommand(objects.Command{ID: core.NewCommandID(), Subcommand: objects.HeaterSetTemp, Args: objects.SetTempArgs{TempC: 200}})

	start := h.GetState().(State).SensorTempC
	ns := int64(0)
	for i := 0; i < 500; i++ {
		ns += int64(100 * 1e6) // 100ms steps
		h.Update(uint64(i), ns)
	}
	if got := h.GetState().(State).SensorTempC; got <= start {
		t.Fatalf("expected sensor temp to rise toward target, start=%v end=%v", start, got)
	}
}

func TestUnknownSubcommandRejected(t *testing.T) {
	h := newTestHeater()
	if r := h.ExecCommand(objects.Command{Subcommand: 0xFFFF}); r >= 0 {
		t.Fatalf("expected unknown subcommand rejected, got %d", r)
	}
}

func TestPinModeDrivesPowerFromPinByte(t *testing.T) {
	h := newTestHeater()
	h.ExecCommand(objects.Command{Subcommand: objects.HeaterUsePins, Args: objects.UsePinsArgs{Enable: true}})
	defer h.Destroy()

	h.SetPinByte(1)
	start := h.GetState().(State).SensorTempC
	ns := int64(0)
	for i := 0; i < 500; i++ {
		ns += int64(100 * 1e6)
		h.Update(uint64(i), ns)
	}
	if got := h.GetState().(State).SensorTempC; got <= start {
		t.Fatalf("expected pin-driven power to raise sensor temp, start=%v end=%v", start, got)
	}
}

func TestResetClearsTargetAndTemp(t *testing.T) {
	h := newTestHeater()
	h.ExecCommand(objects.Command{ID: core.NewCommandID(), Subcommand: objects.HeaterSetTemp, Args: objects.SetTempArgs{TempC: 150}})
	h.Update(1, int64(1e8))

	if err := h.Reset(); err != nil {
		t.Fatalf("Reset returned error: %v", err)
	}
	st := h.GetState().(State)
	if st.TargetTempC != 0 {
		t.Fatalf("expected target cleared after Reset, got %v", st.TargetTempC)
	}
	if st.SensorTempC != 25 {
		t.Fatalf("expected sensor temp back at ambient (25), got %v", st.SensorTempC)
	}
}
