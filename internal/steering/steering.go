// Package steering maps a rudder command and boat speed to turning
// kinematics.
package steering

import "math"

// zeroEpsilon matches the tolerance used to treat a float as zero.
const zeroEpsilon = 1.1920929e-07

// Kinematics describes the boat's turning geometry.
type Kinematics struct {
	MaxAngleDeg   float64 // rudder deflection at full steering
	TurningCircle float64 // diameter in m at full steering
}

// Default returns the stock sailboat geometry.
func Default() Kinematics {
	return Kinematics{MaxAngleDeg: 35, TurningCircle: 1.8}
}

// FromPWM converts a steering servo pulse width to a fraction in [-1, 1].
func FromPWM(pwm uint16) float64 {
	return 2 * ((float64(pwm)-1000)/1000 - 0.5)
}

// TurnCircle returns the turning circle diameter in metres for a steering
// fraction in [-1, 1]. Zero steering returns 0, meaning no turn.
func (k Kinematics) TurnCircle(steering float64) float64 {
	if isZero(steering) {
		return 0
	}
	maxRad := radians(k.MaxAngleDeg)
	return k.TurningCircle * math.Sin(maxRad) / math.Sin(radians(steering*k.MaxAngleDeg))
}

// YawRate returns the yaw rate in deg/s for a steering fraction and a
// forward speed in m/s.
func (k Kinematics) YawRate(steering, speed float64) float64 {
	if isZero(steering) || isZero(speed) {
		return 0
	}
	d := k.TurnCircle(steering)
	lap := math.Pi * d / speed
	return 360 / lap
}

// LateralAccel returns the centripetal acceleration in m/s/s.
func (k Kinematics) LateralAccel(steering, speed float64) float64 {
	return radians(k.YawRate(steering, speed)) * speed
}

func isZero(v float64) bool {
	return math.Abs(v) < zeroEpsilon
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}
