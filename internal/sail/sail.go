// Package sail computes the aerodynamic force of the sail from its trim and
// the apparent wind, resolved into the boat's forward and heel axes.
package sail

import (
	"fmt"
	"math"
	"strings"

	"github.com/sailsitl/sailsim/internal/curve"
	"github.com/sailsitl/sailsim/pkg/core"
)

// DefaultAirDensity is sea-level air density in kg/m^3.
const DefaultAirDensity = 1.225

// Type selects how the sail is actuated.
type Type int

const (
	// Mainsail is trimmed by a sheet: the winch sets the maximum boom
	// angle and the wind pushes the sail out to it.
	Mainsail Type = iota
	// DirectWing is a wing sail whose angle is set directly by a servo.
	DirectWing
)

func (t Type) String() string {
	switch t {
	case Mainsail:
		return "mainsail"
	case DirectWing:
		return "wing"
	default:
		return fmt.Sprintf("Type(%d)", int(t))
	}
}

// ParseType maps a configuration value onto a Type.
func ParseType(s string) (Type, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "mainsail", "sheet", "0":
		return Mainsail, nil
	case "wing", "directwing", "direct_wing", "1":
		return DirectWing, nil
	}
	return Mainsail, fmt.Errorf("unknown sail type %q", s)
}

// Scaling selects the force scaling applied to the coefficients.
type Scaling int

const (
	// SI scales by dynamic pressure, 1/2 * rho * v^2 * A.
	SI Scaling = iota
	// Quasi scales by v^2 * A only.
	Quasi
)

func (s Scaling) String() string {
	if s == Quasi {
		return "quasi"
	}
	return "si"
}

// ParseScaling maps a configuration value onto a Scaling.
func ParseScaling(s string) (Scaling, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "si":
		return SI, nil
	case "quasi":
		return Quasi, nil
	}
	return SI, fmt.Errorf("unknown force scaling %q", s)
}

// ForcePair is lift (normal to the apparent wind) and drag (along it), in N.
type ForcePair struct {
	Lift float64
	Drag float64
}

// Result is the outcome of one sail force evaluation.
type Result struct {
	SailAngle     float64 // body frame, degrees
	AngleOfAttack float64 // signed, degrees
	ForcePair
	Forward float64 // body x, N
	Heel    float64 // body y, N
}

// Model holds the sail configuration. The zero value is not useful; fill
// Area and AirDensity.
type Model struct {
	Type       Type
	Scaling    Scaling
	Area       float64 // m^2
	AirDensity float64 // kg/m^3
}

// SailAngle returns the sail deflection in degrees commanded by in.
func (m Model) SailAngle(in core.ControlInput) float64 {
	switch m.Type {
	case Mainsail:
		pwm := float64(in.Servos[core.MainsailChannel])
		return clamp((pwm-core.PWMMin)/1000*90, 0, 90)
	case DirectWing:
		pwm := float64(in.Servos[core.DirectWingChannel])
		return clamp((pwm-core.PWMTrim)/500*90, -90, 90)
	default:
		panic(fmt.Sprintf("sail: unknown type %d", int(m.Type)))
	}
}

// AngleOfAttack returns the signed angle of attack in degrees for an
// apparent wind angle (body frame) and a sail angle.
func (m Model) AngleOfAttack(apparentDeg, sailDeg float64) float64 {
	switch m.Type {
	case DirectWing:
		return apparentDeg - sailDeg
	case Mainsail:
		// a sheet cannot push, so the sail never sits past the wind
		return math.Max(math.Abs(apparentDeg)-sailDeg, 0) * sign(apparentDeg)
	default:
		panic(fmt.Sprintf("sail: unknown type %d", int(m.Type)))
	}
}

// LiftDrag returns the wind-frame forces for an apparent wind speed in m/s
// and a signed angle of attack in degrees.
func (m Model) LiftDrag(windSpeed, aoaDeg float64) ForcePair {
	aoa := curve.WrapDeg180(aoaDeg)
	cl := curve.Lift.Lookup(aoa)
	cd := curve.Drag.Lookup(aoa)

	k := windSpeed * windSpeed * m.Area
	if m.Scaling == SI {
		k *= 0.5 * m.AirDensity
	}

	lift := cl * k
	if aoa < 0 {
		lift = -lift
	}
	return ForcePair{Lift: lift, Drag: cd * k}
}

// Resolve rotates wind-frame lift and drag into body-frame forward and heel
// forces for the apparent wind at apparentDeg off the bow.
func Resolve(f ForcePair, apparentDeg float64) (forward, heel float64) {
	s, c := math.Sincos(apparentDeg * math.Pi / 180)
	forward = f.Lift*s - f.Drag*c
	heel = f.Lift*c + f.Drag*s
	return forward, heel
}

// Forces evaluates the full sail model for one step.
func (m Model) Forces(in core.ControlInput, apparentDeg, windSpeed float64) Result {
	r := Result{SailAngle: m.SailAngle(in)}
	r.AngleOfAttack = m.AngleOfAttack(apparentDeg, r.SailAngle)
	r.ForcePair = m.LiftDrag(windSpeed, r.AngleOfAttack)
	r.Forward, r.Heel = Resolve(r.ForcePair, apparentDeg)
	return r
}

func sign(v float64) float64 {
	if v < 0 {
		return -1
	}
	return 1
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}
