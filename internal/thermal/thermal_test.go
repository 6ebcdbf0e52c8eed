package thermal

import "testing"

func newTestStack() *Stack {
	return NewStack(5, []*Layer{
		{Role: RoleHeater, Material: Aluminum, Wx: 10, Wy: 10, Z: 2},
		{Role: RoleBody, Material: Aluminum, Wx: 10, Wy: 10, Z: 5},
	})
}

func TestSensorTempStartsAtAmbient(t *testing.T) {
	s := newTestStack()
	if got := s.SensorTemp(); got != s.AmbientC {
		t.Fatalf("expected sensor temp at ambient %v, got %v", s.AmbientC, got)
	}
}

func TestPowerRaisesSensorTempOverTime(t *testing.T) {
	s := newTestStack()
	s.SetPower(40)

	start := s.SensorTemp()
	for i := 0; i < 200; i++ {
		s.Step(0.1)
	}
	if got := s.SensorTemp(); got <= start {
		t.Fatalf("expected sensor temp to rise under sustained power, start=%v end=%v", start, got)
	}
}

func TestZeroPowerSettlesTowardAmbient(t *testing.T) {
	s := newTestStack()
	s.SetPower(40)
	for i := 0; i < 200; i++ {
		s.Step(0.1)
	}
	heated := s.SensorTemp()

	s.SetPower(0)
	for i := 0; i < 2000; i++ {
		s.Step(0.1)
	}
	cooled := s.SensorTemp()

	if cooled >= heated {
		t.Fatalf("expected cooling toward ambient after power removed, heated=%v cooled=%v", heated, cooled)
	}
	if cooled < s.AmbientC-1 {
		t.Fatalf("cooled past ambient implausibly: %v (ambient %v)", cooled, s.AmbientC)
	}
}

func TestResetReturnsToAmbient(t *testing.T) {
	s := newTestStack()
	s.SetPower(40)
	for i := 0; i < 100; i++ {
		s.Step(0.1)
	}
	s.Reset()
	if got := s.SensorTemp(); got != s.AmbientC {
		t.Fatalf("expected ambient after Reset, got %v", got)
	}
}

func TestStepIgnoresNonPositiveDt(t *testing.T) {
	s := newTestStack()
	s.SetPower(40)
	before := s.SensorTemp()
	s.Step(0)
	s.Step(-1)
	if got := s.SensorTemp(); got != before {
		t.Fatalf("expected no change for non-positive dt, before=%v after=%v", before, got)
	}
}

func TestPIDStepProducesDutyInUnitRange(t *testing.T) {
	p := PID{Kp: 20, Ki: 1, Kd: 5}
	for i := 0; i < 50; i++ {
		duty := p.Step(100, 0.1) // large sustained error
		if duty < 0 || duty > 1 {
			t.Fatalf("duty out of [0,1] range: %v", duty)
		}
	}
}

func TestPIDResetClearsIntegrator(t *testing.T) {
	p := PID{Kp: 1, Ki: 1, Kd: 0}
	p.Step(100, 1)
	p.Step(100, 1)
	p.Reset()
	if p.integral != 0 || p.hasLast {
		t.Fatalf("expected integrator and history cleared after Reset")
	}
}
