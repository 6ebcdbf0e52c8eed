// Package thermal implements the heater object's physical model (spec
// §4.9): a slab stack of up to 8 rectangular layers meshed at a fixed
// spatial resolution, stepped each update by finite-element conduction,
// convection, and radiation, plus the PID controller that drives heater
// power from the sensor reading. Grounded on the teacher's physics3d.go
// in structure (small pure step functions over a local vector/grid,
// comments enumerating each physical term) though the domain — heat
// transfer rather than orbital/collision mechanics — is necessarily
// original; physics3d.go has no thermal model to adapt.
package thermal

import "math"

// Role is what a layer contributes to the stack.
type Role uint8

const (
	RoleHeater Role = iota
	RoleBody
	RoleOther
)

// Material holds the physical constants a layer needs.
type Material struct {
	Name        string
	K           float64 // thermal conductivity, W/(m*K)
	Rho         float64 // density, kg/m^3
	C           float64 // specific heat, J/(kg*K)
	Emissivity  float64 // 0..1
}

var (
	Aluminum = Material{Name: "aluminum", K: 205, Rho: 2700, C: 900, Emissivity: 0.09}
	Silicone = Material{Name: "silicone", K: 0.2, Rho: 1100, C: 1460, Emissivity: 0.93}
	Steel    = Material{Name: "steel", K: 50, Rho: 7850, C: 486, Emissivity: 0.66}
	PLA      = Material{Name: "pla", K: 0.13, Rho: 1250, C: 1800, Emissivity: 0.95}
)

const (
	stefanBoltzmann = 5.67e-8
	ecf             = 0.85 // emissivity correction factor, spec §4.9
	ambientDefault  = 25.0
)

// Layer is one rectangular slab in the stack.
type Layer struct {
	Role     Role
	Material Material
	Wx, Wy   float64 // footprint, mm
	Z        float64 // thickness, mm

	Ex, Ey int // element counts, derived from resolution

	temp []float64 // Ex*Ey, row-major (x-major)
	dQ   []float64 // per-iteration energy accumulator, Joules
}

func (l *Layer) at(x, y int) int { return y*l.Ex + x }

func (l *Layer) initGrid(ambient float64) {
	n := l.Ex * l.Ey
	l.temp = make([]float64, n)
	l.dQ = make([]float64, n)
	for i := range l.temp {
		l.temp[i] = ambient
	}
}

// Stack is the full heater body: up to 8 layers, meshed at Resolution mm,
// ambient temperature AmbientC.
type Stack struct {
	Resolution float64 // mesh resolution R, mm, default 5
	AmbientC   float64

	Layers []*Layer

	heaterPowerW float64
	sensorLayer  int // index into Layers of the first RoleBody layer
}

// NewStack builds element grids for every layer at the configured
// resolution and initializes every element to ambient.
func NewStack(resolution float64, layers []*Layer) *Stack {
	if resolution <= 0 {
		resolution = 5.0
	}
	s := &Stack{Resolution: resolution, AmbientC: ambientDefault, Layers: layers, sensorLayer: -1}
	for i, l := range layers {
		l.Ex = maxInt(1, int(l.Wx/resolution+0.5))
		l.Ey = maxInt(1, int(l.Wy/resolution+0.5))
		l.initGrid(s.AmbientC)
		if s.sensorLayer < 0 && l.Role == RoleBody {
			s.sensorLayer = i
		}
	}
	return s
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// SetPower sets the energy injected by HEATER-role elements this and
// future iterations, in watts.
func (s *Stack) SetPower(watts float64) {
	s.heaterPowerW = watts
}

// Reset zeroes dQ and resets every element to ambient (spec §4.9 Reset).
func (s *Stack) Reset() {
	for _, l := range s.Layers {
		for i := range l.temp {
			l.temp[i] = s.AmbientC
			l.dQ[i] = 0
		}
	}
}

// Step advances the thermal model by dt seconds (spec §4.9, steps 1-6).
func (s *Stack) Step(dt float64) {
	if dt <= 0 {
		return
	}
	R := s.Resolution / 1000.0 // mm -> m

	// 1. Clear accumulators.
	for _, l := range s.Layers {
		for i := range l.dQ {
			l.dQ[i] = 0
		}
	}

	// 2. Inject heater power uniformly across heater-role footprints,
	// projected onto layer 0.
	if len(s.Layers) > 0 {
		base := s.Layers[0]
		for _, l := range s.Layers {
			if l.Role != RoleHeater {
				continue
			}
			per := s.heaterPowerW * dt / float64(l.Ex*l.Ey)
			for y := 0; y < base.Ey && y < l.Ey; y++ {
				for x := 0; x < base.Ex && x < l.Ex; x++ {
					base.dQ[base.at(x, y)] += per
				}
			}
		}
	}

	// 3. In-layer conduction, X and Y, Fourier's law.
	for _, l := range s.Layers {
		s.conductLayer(l, R, dt)
	}

	// 4. Inter-layer conduction via series resistance.
	for i := 0; i+1 < len(s.Layers); i++ {
		s.conductBetween(s.Layers[i], s.Layers[i+1], R, dt)
	}

	// 5. Convection + radiation losses on every exposed face.
	for i, l := range s.Layers {
		top := i == 0
		bottom := i == len(s.Layers)-1
		s.loseHeat(l, R, dt, top, bottom)
	}

	// 6. Update temperatures.
	for _, l := range s.Layers {
		zLayer := l.Z / 1000.0
		denom := l.Material.Rho * l.Material.C * R * R * zLayer
		if denom == 0 {
			continue
		}
		for i := range l.temp {
			l.temp[i] += l.dQ[i] / denom
		}
	}
}

// conductLayer moves heat between adjacent elements within a single
// layer in both X and Y: dQ = k*A*dT*dt/dx, accumulated symmetrically.
func (s *Stack) conductLayer(l *Layer, R, dt float64) {
	zLayer := l.Z / 1000.0
	areaX := zLayer * R // cross-section for flow in X direction (face perpendicular to X has height z, depth R in Y)
	for y := 0; y < l.Ey; y++ {
		for x := 0; x+1 < l.Ex; x++ {
			a, b := l.at(x, y), l.at(x+1, y)
			dT := l.temp[a] - l.temp[b]
			q := l.Material.K * areaX * dT * dt / R
			l.dQ[a] -= q
			l.dQ[b] += q
		}
	}
	for y := 0; y+1 < l.Ey; y++ {
		for x := 0; x < l.Ex; x++ {
			a, b := l.at(x, y), l.at(x, y+1)
			dT := l.temp[a] - l.temp[b]
			q := l.Material.K * areaX * dT * dt / R
			l.dQ[a] -= q
			l.dQ[b] += q
		}
	}
}

// conductBetween moves heat across the interface of two stacked layers
// via the series thermal resistance of their half-thicknesses.
func (s *Stack) conductBetween(top, bottom *Layer, R, dt float64) {
	z1 := top.Z / 1000.0
	z2 := bottom.Z / 1000.0
	resistance := 0.5*z1/top.Material.K + 0.5*z2/bottom.Material.K
	if resistance == 0 {
		return
	}
	n := minInt(len(top.temp), len(bottom.temp))
	area := R * R
	for i := 0; i < n; i++ {
		dT := top.temp[i] - bottom.temp[i]
		q := area * dT * dt / resistance
		top.dQ[i] -= q
		bottom.dQ[i] += q
	}
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// loseHeat applies convective and radiative losses on every exposed face
// of l: TOP/BOTTOM (only present for the outermost layers) and the four
// sides, per spec §4.9 step 5.
func (s *Stack) loseHeat(l *Layer, R, dt float64, top, bottom bool) {
	ambientK := s.AmbientC + 273.15
	hConv := 10.0 // natural convection coefficient, W/(m^2*K), still air

	lose := func(elemIdx int, area float64) {
		T := l.temp[elemIdx]
		Tk := T + 273.15
		qConv := hConv * area * (T - s.AmbientC) * dt
		qRad := l.Material.Emissivity * stefanBoltzmann * area * (math.Pow(Tk, 4) - math.Pow(ambientK, 4)) * ecf * dt
		l.dQ[elemIdx] -= qConv + qRad
	}

	elemArea := R * R
	if top {
		for i := range l.temp {
			lose(i, elemArea)
		}
	}
	if bottom {
		for i := range l.temp {
			lose(i, elemArea)
		}
	}

	zLayer := l.Z / 1000.0
	sideArea := zLayer * R
	for y := 0; y < l.Ey; y++ {
		lose(l.at(0, y), sideArea)
		lose(l.at(l.Ex-1, y), sideArea)
	}
	for x := 0; x < l.Ex; x++ {
		lose(l.at(x, 0), sideArea)
		lose(l.at(x, l.Ey-1), sideArea)
	}
}

// SensorTemp reports the BODY layer's center element at mid-height (spec
// §4.9: "the geometric center of the BODY layer at the stack's
// mid-height").
func (s *Stack) SensorTemp() float64 {
	if s.sensorLayer < 0 {
		return s.AmbientC
	}
	l := s.Layers[s.sensorLayer]
	return l.temp[l.at(l.Ex/2, l.Ey/2)]
}

// PID implements the heater's temperature controller: output =
// kp*e + ki*integral(e) + kd*de/dt, clamped to [0,100] then normalized to
// a [0,1] duty (spec §4.9). The integral is kept in output units rather
// than canonical (temperature*time) units, per SPEC_FULL.md's resolution
// of the open question on integrator units — this keeps kp/ki/kd directly
// comparable to the tuning values quoted in the spec's worked example.
type PID struct {
	Kp, Ki, Kd float64

	integral  float64
	lastError float64
	hasLast   bool
}

// Step advances the controller by dt seconds given the current error
// (target - measured) and returns a duty in [0, 1].
func (p *PID) Step(errVal, dt float64) float64 {
	if dt <= 0 {
		return 0
	}
	p.integral += p.Ki * errVal * dt
	p.integral = clamp(p.integral, 0, 100)

	var derivative float64
	if p.hasLast {
		derivative = (errVal - p.lastError) / dt
	}
	p.lastError = errVal
	p.hasLast = true

	output := p.Kp*errVal + p.integral + p.Kd*derivative
	output = clamp(output, 0, 100)
	return output / 100.0
}

// Reset clears integrator and derivative history.
func (p *PID) Reset() {
	p.integral = 0
	p.lastError = 0
	p.hasLast = false
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
