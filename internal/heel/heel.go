// Package heel models how the boat rolls under the sail's side force.
//
// Two policies exist and exactly one is active per vehicle: DirectAngle
// sets the roll angle from the heel force every step, Torque integrates a
// roll rate from a keel torque balance.
package heel

import (
	"fmt"
	"math"
	"strings"
)

// Gravity is standard gravity in m/s/s.
const Gravity = 9.80665

// MaxAngleDeg bounds the DirectAngle roll.
const MaxAngleDeg = 45

// Policy selects the heel model.
type Policy int

const (
	DirectAngle Policy = iota
	Torque
)

func (p Policy) String() string {
	switch p {
	case DirectAngle:
		return "direct"
	case Torque:
		return "torque"
	default:
		return fmt.Sprintf("Policy(%d)", int(p))
	}
}

// ParsePolicy maps a configuration value onto a Policy.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "direct", "angle", "direct_angle":
		return DirectAngle, nil
	case "torque":
		return Torque, nil
	}
	return DirectAngle, fmt.Errorf("unknown heel policy %q", s)
}

// Keel is the geometry used by the torque balance.
type Keel struct {
	CenterOfEffort float64 // height of the sail's centre of effort, m
	Mass           float64 // kg
	Depth          float64 // m
	Chord          float64 // m
	Damping        float64
	Gravity        float64 // m/s/s
}

// DefaultKeel is a small model-boat keel.
func DefaultKeel() Keel {
	return Keel{
		CenterOfEffort: 0.5,
		Mass:           1.0,
		Depth:          0.5,
		Chord:          0.1,
		Damping:        50,
		Gravity:        Gravity,
	}
}

// Inertia is the roll moment of inertia of the keel as a point mass.
func (k Keel) Inertia() float64 {
	return k.Mass * k.Depth * k.Depth
}

// AngularAccel returns the roll acceleration in rad/s/s from the heel force
// (N), the roll angle (rad) and the roll rate (rad/s). It is zero while the
// vehicle is disarmed.
func (k Keel) AngularAccel(heelForce, roll, rollRate float64, armed bool) float64 {
	if !armed {
		return 0
	}
	inertia := k.Inertia()
	if inertia <= 0 {
		return 0
	}
	overturning := heelForce * k.CenterOfEffort * math.Cos(roll)
	righting := -k.Mass * k.Gravity * k.Depth * math.Sin(roll)
	damping := -k.Depth * k.Depth * k.Chord * rollRate * k.Damping
	return (overturning + righting + damping) / inertia
}

// Angle returns the DirectAngle roll in radians for a heel force and gain
// (degrees per newton), bounded to MaxAngleDeg.
func Angle(heelForce, gain float64) float64 {
	deg := math.Min(math.Max(heelForce*gain, -MaxAngleDeg), MaxAngleDeg)
	return deg * math.Pi / 180
}

// Model is the per-vehicle heel state under one policy.
type Model struct {
	Policy    Policy
	Keel      Keel
	AngleGain float64 // DirectAngle, degrees per newton

	RollRate float64 // Torque, rad/s
	Accel    float64 // last Torque acceleration, rad/s/s
}

// NewModel returns a model for policy with the default keel.
func NewModel(p Policy) *Model {
	return &Model{Policy: p, Keel: DefaultKeel(), AngleGain: 0.05}
}

// Step advances the torque balance by dt and returns the roll rate to feed
// the attitude integration. DirectAngle contributes no roll rate.
func (m *Model) Step(heelForce, roll, dt float64, armed bool) float64 {
	switch m.Policy {
	case DirectAngle:
		return 0
	case Torque:
		m.Accel = m.Keel.AngularAccel(heelForce, roll, m.RollRate, armed)
		m.RollRate += m.Accel * dt
		if !armed {
			m.RollRate = 0
		}
		return m.RollRate
	default:
		panic(fmt.Sprintf("heel: unknown policy %d", int(m.Policy)))
	}
}

// OverridesRoll reports whether the policy sets the roll angle directly.
func (m *Model) OverridesRoll() bool {
	return m.Policy == DirectAngle
}

// Roll returns the DirectAngle roll in radians.
func (m *Model) Roll(heelForce float64) float64 {
	return Angle(heelForce, m.AngleGain)
}
