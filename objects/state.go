package objects

// State snapshot types returned by each klass's GetState. Centralized
// here (rather than defined in each objects/<klass> package) so that
// klasses which reference each other's state — axis reads stepper and
// endstop state, toolhead reads axis state, thermistor reads heater
// state — never need to import one another's package and risk a cycle;
// every objects/<klass> package imports objects, never a sibling klass.

// StepperState is the STEPPER klass GetState snapshot (spec §4.8).
type StepperState struct {
	Enabled     bool
	CurrentStep int64
	SPNS        float64
	AccelRate   float64
	DecelRate   float64
	UsePins     bool
	MoveSteps   int64
	Direction   Direction
}

// HeaterState is the HEATER klass GetState snapshot (spec §4.9).
type HeaterState struct {
	SensorTempC float64
	TargetTempC float64
	PowerW      float64
	UsePins     bool
}

// EndstopState is the ENDSTOP klass GetState snapshot.
type EndstopState struct {
	Triggered bool
	End       EndstopEnd
}

// AxisState is the AXIS klass GetState snapshot (spec §4.10).
type AxisState struct {
	AxisType AxisType
	Position float64
	Homed    bool
}

// ToolheadState is the TOOLHEAD klass GetState snapshot.
type ToolheadState struct {
	X, Y, Z  float64
	AtOrigin bool
}

// ProbeState is the PROBE klass GetState snapshot.
type ProbeState struct {
	Triggered bool
	X, Y, Z   float64
}

// PWMState is the PWM klass GetState snapshot.
type PWMState struct {
	Duty float64
	HZ   float64
}

// DigitalPinState is the DIGITAL_PIN klass GetState snapshot.
type DigitalPinState struct {
	High bool
}
