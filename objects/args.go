package objects

// Direction is a signed motion direction used by MOVE-style subcommands.
type Direction int8

const (
	Forward Direction = 1
	Backward Direction = -1
)

// Stepper command argument types (spec §4.8).
type EnableArgs struct{ Enable bool }
type SetSpeedArgs struct{ StepsPerSec float64 }
type SetAccelArgs struct{ Accel, Decel float64 }
type MoveArgs struct {
	Dir   Direction
	Steps int64
}
type UsePinsArgs struct{ Enable bool }

// Heater command argument types (spec §4.9).
type SetTempArgs struct{ TempC float64 }

// Axis command argument types.
type HomeArgs struct{}

// PWM command argument types.
type SetDutyArgs struct{ Duty float64 } // [0,1]
type SetFrequencyArgs struct{ HZ float64 }

// DigitalPin command argument types.
type SetLevelArgs struct{ High bool }
