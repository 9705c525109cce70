// Package wave generates the deterministic swell disturbance applied to the
// boat: an attitude-rate term pulling roll and pitch toward the local wave
// surface, and a vertical heave velocity.
package wave

import (
	"math"

	"github.com/sailsitl/sailsim/pkg/core"
)

const twoPi = 2 * math.Pi

// Mode is the wave enable setting.
type Mode int

const (
	Off      Mode = 0 // no waves
	Attitude Mode = 1 // roll and pitch only
	Heave    Mode = 2 // roll, pitch and vertical heave
)

// Settings describe the swell.
type Settings struct {
	Mode         Mode    `json:"mode"`
	Amplitude    float64 `json:"amplitude"` // crest to trough, m
	Length       float64 `json:"length"`    // m
	Speed        float64 `json:"speed"`     // m/s
	DirectionDeg float64 `json:"direction"` // travel heading, degrees
}

// Gains scale the disturbance terms.
type Gains struct {
	Angle float64
	Heave float64
}

// DefaultGains are unit gains.
func DefaultGains() Gains {
	return Gains{Angle: 1, Heave: 1}
}

// State is carried from one step to the next.
type State struct {
	Phase float64      // radians, in [0, 2pi)
	Gyro  core.Vector3 // body rate disturbance, rad/s
	Heave float64      // earth z velocity disturbance, m/s
	Slope float64      // surface slope at the current phase
}

// Generator owns the wave state of one vehicle.
type Generator struct {
	Gains Gains
	State
}

// NewGenerator returns a generator at zero phase.
func NewGenerator(g Gains) *Generator {
	return &Generator{Gains: g}
}

func (s Settings) enabled() bool {
	return s.Mode != Off && s.Amplitude != 0 && s.Length > 0
}

// Update advances the wave by dt seconds. roll, pitch and yaw are the
// current attitude in radians and velocity the earth-frame velocity.
// When waves are off, flat or the vehicle is disarmed, the state resets to
// a stabilizing term that only depends on the current attitude.
func (g *Generator) Update(dt float64, s Settings, armed bool, att core.Attitude, velocity core.Vector3) {
	if !armed || !s.enabled() {
		g.Gyro = core.Vector3{X: -att.Roll, Y: -att.Pitch}.Scale(g.Gains.Angle)
		g.Heave = -velocity.Z * g.Gains.Heave
		g.Phase = 0
		g.Slope = 0
		return
	}

	heading := s.DirectionDeg * math.Pi / 180
	sh, ch := math.Sincos(heading)
	boatSpeed := velocity.X*ch + velocity.Y*sh

	distance := (s.Speed - boatSpeed) * dt
	g.Phase = WrapTwoPi(g.Phase + distance/s.Length*twoPi)

	g.Slope = (s.Amplitude * 0.5) * (twoPi / s.Length) * math.Cos(g.Phase)
	angle := math.Atan(g.Slope)

	sd, cd := math.Sincos(heading - att.Yaw)
	g.Gyro = core.Vector3{
		X: (sd*angle - att.Roll) * g.Gains.Angle,
		Y: (cd*angle - att.Pitch) * g.Gains.Angle,
	}

	if s.Mode == Heave {
		g.Heave = (g.Slope - velocity.Z) * g.Gains.Heave
	} else {
		g.Heave = 0
	}
}

// WrapTwoPi wraps an angle in radians into [0, 2pi).
func WrapTwoPi(rad float64) float64 {
	w := math.Mod(rad, twoPi)
	if w < 0 {
		w += twoPi
	}
	if w >= twoPi {
		return 0
	}
	return w
}
