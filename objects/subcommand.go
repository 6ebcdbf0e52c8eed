package objects

// Subcommand ids are klass-private enums starting at 0 (spec §6). Each
// klass implementation interprets its own Command.Subcommand against one
// of these sets; the runtime never inspects it.

// Stepper subcommands (spec §4.8).
const (
	StepperEnable uint16 = iota
	StepperSetSpeed
	StepperSetAccel
	StepperMove
	StepperUsePins
)

// Heater subcommands (spec §4.9).
const (
	HeaterSetTemp uint16 = iota
	HeaterUsePins
)

// Axis subcommands.
const (
	AxisHome uint16 = iota
)

// PWM subcommands.
const (
	PWMSetDuty uint16 = iota
	PWMSetFrequency
)

// DigitalPin subcommands.
const (
	DigitalPinSetLevel uint16 = iota
)

// Endstop, thermistor, probe, and toolhead accept no host-issued
// subcommands in this spec; they are driven entirely by Update and by
// their referenced objects.
