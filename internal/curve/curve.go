// Package curve holds the lift and drag coefficient tables of the sail and
// the piecewise-linear lookup over them.
package curve

import "math"

// Point is one breakpoint of a coefficient curve.
type Point struct {
	AngleDeg    float64
	Coefficient float64
}

// Table is an immutable coefficient curve with breakpoints in ascending
// angle order.
type Table []Point

// Lift is the sail lift coefficient against angle of attack.
var Lift = Table{
	{0, 0},
	{10, 0.5},
	{20, 1},
	{30, 1.1},
	{40, 0.95},
	{50, 0.75},
	{60, 0.6},
	{70, 0.4},
	{80, 0.2},
	{90, 0},
	{100, -0.2},
	{110, -0.4},
	{120, -0.6},
	{130, -0.75},
	{140, -0.95},
	{150, -1.1},
	{160, -1},
	{170, -0.5},
}

// Drag is the sail drag coefficient against angle of attack.
var Drag = Table{
	{0, 0.1},
	{10, 0.1},
	{20, 0.2},
	{30, 0.4},
	{40, 0.8},
	{50, 1.2},
	{60, 1.5},
	{70, 1.7},
	{80, 1.9},
	{90, 1.95},
	{100, 1.9},
	{110, 1.7},
	{120, 1.5},
	{130, 1.2},
	{140, 0.8},
	{150, 0.4},
	{160, 0.2},
	{170, 0.1},
}

// Lookup returns the coefficient at the absolute value of angleDeg.
// Angles past the last breakpoint return the last coefficient. Below the
// first breakpoint the curve runs from (0, first coefficient) unless the
// table starts at zero.
func (t Table) Lookup(angleDeg float64) float64 {
	if len(t) == 0 {
		return 0
	}
	a := math.Abs(WrapDeg180(angleDeg))

	first := t[0]
	if a <= first.AngleDeg {
		if first.AngleDeg <= 0 {
			return first.Coefficient
		}
		// flat from the origin at the first coefficient
		return interpolate(a, Point{0, first.Coefficient}, first)
	}

	last := t[len(t)-1]
	if a >= last.AngleDeg {
		return last.Coefficient
	}

	for i := 1; i < len(t); i++ {
		if a <= t[i].AngleDeg {
			return interpolate(a, t[i-1], t[i])
		}
	}
	return last.Coefficient
}

func interpolate(a float64, lo, hi Point) float64 {
	span := hi.AngleDeg - lo.AngleDeg
	if span <= 0 {
		return hi.Coefficient
	}
	f := (a - lo.AngleDeg) / span
	return lo.Coefficient + f*(hi.Coefficient-lo.Coefficient)
}

// WrapDeg180 wraps an angle in degrees into [-180, 180].
func WrapDeg180(deg float64) float64 {
	if deg >= -180 && deg <= 180 {
		return deg
	}
	w := math.Mod(deg+180, 360)
	if w < 0 {
		w += 360
	}
	return w - 180
}
