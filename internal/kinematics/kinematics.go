// Package kinematics implements the process-wide kinematics maps (spec
// §4.10): Cartesian, CoreXY, CoreXZ, and Delta forward/inverse
// transforms. Grounded structurally on the teacher's vmath package
// (vec3.go, vector.go: small pure free-function transforms over a 3-field
// point type) but switched from vmath's Q32.32 fixed-point representation
// to plain float64, since this spec's tolerances (CoreXY exact-for-all-
// doubles, Delta 1e-3 mm round trip) are stated in floating-point terms
// and fixed-point would only reintroduce the rounding the spec is testing
// against.
package kinematics

import (
	"math"

	"github.com/voidtrance/vortex/objects"
)

// Point is a Cartesian or motor-space triple, depending on context.
type Point struct {
	X, Y, Z float64
}

// Kind names which kinematics map a Model implements.
type Kind uint8

const (
	KindCartesian Kind = iota
	KindCoreXY
	KindCoreXZ
	KindDelta
)

func (k Kind) String() string {
	switch k {
	case KindCartesian:
		return "cartesian"
	case KindCoreXY:
		return "corexy"
	case KindCoreXZ:
		return "corexz"
	case KindDelta:
		return "delta"
	default:
		return "unknown"
	}
}

// Model is the common capability every kinematics map exposes: composing
// bound axis positions into a toolhead Cartesian position (spec: "reads
// axis positions, calls kinematics.toolhead_position(...)").
type Model interface {
	Kind() Kind
	ToolheadPosition(axisPositions map[objects.AxisType]float64) Point
}

// Coupled2D is implemented by kinematics maps where two motors are
// linearly coupled to two axes (CoreXY, CoreXZ); Cartesian and Delta do
// not implement it.
type Coupled2D interface {
	MotorMovement(delta Point) Point
	AxisMovement(delta Point) Point
}

// --- Cartesian -------------------------------------------------------

// Cartesian is the identity map on both directions.
type Cartesian struct{}

func (Cartesian) Kind() Kind { return KindCartesian }

func (Cartesian) MotorMovement(d Point) Point { return d }
func (Cartesian) AxisMovement(d Point) Point  { return d }

func (Cartesian) ToolheadPosition(axisPositions map[objects.AxisType]float64) Point {
	return Point{
		X: axisPositions[objects.AxisX],
		Y: axisPositions[objects.AxisY],
		Z: axisPositions[objects.AxisZ],
	}
}

// --- CoreXY ------------------------------------------------------------

// CoreXY couples the X and Y motors: motor_movement = (x+y, x-y); z is
// untouched.
type CoreXY struct{}

func (CoreXY) Kind() Kind { return KindCoreXY }

func (CoreXY) MotorMovement(d Point) Point {
	return Point{X: d.X + d.Y, Y: d.X - d.Y, Z: d.Z}
}

func (CoreXY) AxisMovement(d Point) Point {
	return Point{X: (d.X + d.Y) / 2, Y: (d.X - d.Y) / 2, Z: d.Z}
}

func (CoreXY) ToolheadPosition(axisPositions map[objects.AxisType]float64) Point {
	return Point{
		X: axisPositions[objects.AxisX],
		Y: axisPositions[objects.AxisY],
		Z: axisPositions[objects.AxisZ],
	}
}

// --- CoreXZ ------------------------------------------------------------

// CoreXZ couples the X and Z motors analogous to CoreXY with Z in place
// of Y; Y is untouched.
type CoreXZ struct{}

func (CoreXZ) Kind() Kind { return KindCoreXZ }

func (CoreXZ) MotorMovement(d Point) Point {
	return Point{X: d.X + d.Z, Z: d.X - d.Z, Y: d.Y}
}

func (CoreXZ) AxisMovement(d Point) Point {
	return Point{X: (d.X + d.Z) / 2, Z: (d.X - d.Z) / 2, Y: d.Y}
}

func (CoreXZ) ToolheadPosition(axisPositions map[objects.AxisType]float64) Point {
	return Point{
		X: axisPositions[objects.AxisX],
		Y: axisPositions[objects.AxisY],
		Z: axisPositions[objects.AxisZ],
	}
}

// --- Delta ---------------------------------------------------------

// Tower is one of a delta printer's three linear-rail towers, positioned
// at angle-derived (tx, ty) in the horizontal plane.
type Tower struct {
	X, Y float64 // tower base position, mm
}

// Delta implements the trilateration kinematics of a three-tower delta
// printer (spec §4.10): motor positions are the tower carriage heights;
// forward kinematics is three-sphere trilateration taking the lower root.
type Delta struct {
	ArmLength float64
	Towers    [3]Tower
	MinZ, MaxZ float64
	Radius     float64 // configured work-volume radius, for Limits()
}

// NewDelta builds a Delta kinematics model with towers placed at 120°
// spacing around radius, the first tower at 90 degrees.
func NewDelta(armLength, radius float64) Delta {
	d := Delta{ArmLength: armLength, Radius: radius}
	for i := 0; i < 3; i++ {
		angle := (90.0 + float64(i)*120.0) * math.Pi / 180.0
		d.Towers[i] = Tower{X: radius * math.Cos(angle), Y: radius * math.Sin(angle)}
	}
	return d
}

func (Delta) Kind() Kind { return KindDelta }

// TowerHeights computes each tower's carriage height for toolhead
// position p: `sqrt(arm^2 - (x-tx)^2 - (y-ty)^2) + z`.
func (d Delta) TowerHeights(p Point) [3]float64 {
	var out [3]float64
	for i, t := range d.Towers {
		dx := p.X - t.X
		dy := p.Y - t.Y
		under := d.ArmLength*d.ArmLength - dx*dx - dy*dy
		if under < 0 {
			under = 0 // outside reach; caller is expected to validate against Limits
		}
		out[i] = math.Sqrt(under) + p.Z
	}
	return out
}

// ForwardKinematics reconstructs the toolhead Cartesian position from
// three tower carriage heights via trilateration, taking the lower of the
// two sphere-intersection roots (the physically reachable one for a
// delta printer's effector below its towers).
func (d Delta) ForwardKinematics(heights [3]float64) Point {
	// Shift the problem into z'=0 centers by subtracting each tower's
	// carriage height; then solve the classic delta trilateration for
	// (x, y, z) against the three sphere equations centered at
	// (tx_i, ty_i, heights_i), radius ArmLength.
	t0, t1, t2 := d.Towers[0], d.Towers[1], d.Towers[2]
	z0, z1, z2 := heights[0], heights[1], heights[2]

	// Standard trilateration: build linear system from pairwise sphere
	// differences, solve for x, y, then back out z from the first sphere
	// equation (lower root).
	p1 := Point{t0.X, t0.Y, z0}
	p2 := Point{t1.X, t1.Y, z1}
	p3 := Point{t2.X, t2.Y, z2}

	ex := normalize(sub(p2, p1))
	i := dot(ex, sub(p3, p1))
	eyRaw := sub(sub(p3, p1), scale(ex, i))
	ey := normalize(eyRaw)
	ez := cross(ex, ey)

	dNorm := norm(sub(p2, p1))
	j := dot(ey, sub(p3, p1))

	r := d.ArmLength
	x := dNorm / 2
	y := (i*i+j*j)/(2*j) - (i/j)*x

	zSq := r*r - x*x - y*y
	if zSq < 0 {
		zSq = 0
	}
	z := math.Sqrt(zSq)
	// lower root: effector hangs below the tower-height plane
	z = -z

	result := Point{
		X: p1.X + x*ex.X + y*ey.X + z*ez.X,
		Y: p1.Y + x*ex.Y + y*ey.Y + z*ez.Y,
		Z: p1.Z + x*ex.Z + y*ey.Z + z*ez.Z,
	}
	return result
}

func (d Delta) ToolheadPosition(axisPositions map[objects.AxisType]float64) Point {
	heights := [3]float64{
		axisPositions[objects.AxisA],
		axisPositions[objects.AxisB],
		axisPositions[objects.AxisC],
	}
	return d.ForwardKinematics(heights)
}

// Limits reports the configured per-axis travel limits.
func (d Delta) Limits() (min, max Point) {
	return Point{X: -d.Radius, Y: -d.Radius, Z: d.MinZ},
		Point{X: d.Radius, Y: d.Radius, Z: d.MaxZ}
}

// --- small 3-vector helpers, kept local so Delta's trilateration reads
// as the textbook formula rather than inline arithmetic. ---

func sub(a, b Point) Point   { return Point{a.X - b.X, a.Y - b.Y, a.Z - b.Z} }
func scale(a Point, s float64) Point {
	return Point{a.X * s, a.Y * s, a.Z * s}
}
func dot(a, b Point) float64 { return a.X*b.X + a.Y*b.Y + a.Z*b.Z }
func norm(a Point) float64   { return math.Sqrt(dot(a, a)) }
func normalize(a Point) Point {
	n := norm(a)
	if n == 0 {
		return Point{}
	}
	return scale(a, 1/n)
}
func cross(a, b Point) Point {
	return Point{
		X: a.Y*b.Z - a.Z*b.Y,
		Y: a.Z*b.X - a.X*b.Z,
		Z: a.X*b.Y - a.Y*b.X,
	}
}
