package sailboat

import (
	"errors"
	"fmt"

	"github.com/sailsitl/sailsim/internal/heel"
	"github.com/sailsitl/sailsim/internal/sail"
	"github.com/sailsitl/sailsim/internal/steering"
	"github.com/sailsitl/sailsim/internal/wave"
)

// Frame names understood by FrameHasMotor.
const (
	FrameSailboat      = "sailboat"
	FrameSailboatMotor = "sailboat-motor"
)

// ErrInvalidParams is returned by New for unusable parameters.
var ErrInvalidParams = errors.New("invalid sailboat parameters")

// Params holds every physical constant of the boat.
type Params struct {
	Frame    string
	Motor    bool
	TimeStep float64 // seconds per Update

	Sail     sail.Model
	Steering steering.Kinematics

	HeelPolicy    heel.Policy
	Keel          heel.Keel
	HeelAngleGain float64 // DirectAngle, degrees per newton

	WaveGains wave.Gains

	Mass         float64 // kg
	HullDrag     float64 // N per (m/s)^2
	ThrottleGain float64 // N per microsecond off trim
	Gravity      float64 // m/s/s
}

// DefaultParams returns the stock sailboat at 400 Hz.
func DefaultParams() Params {
	return Params{
		Frame:    FrameSailboat,
		TimeStep: 1.0 / 400,
		Sail: sail.Model{
			Type:       sail.Mainsail,
			Scaling:    sail.SI,
			Area:       1.0,
			AirDensity: sail.DefaultAirDensity,
		},
		Steering:      steering.Default(),
		HeelPolicy:    heel.DirectAngle,
		Keel:          heel.DefaultKeel(),
		HeelAngleGain: 0.05,
		WaveGains:     wave.DefaultGains(),
		Mass:          2.0,
		HullDrag:      0.5,
		ThrottleGain:  0.1,
		Gravity:       heel.Gravity,
	}
}

// FrameHasMotor reports whether a frame name carries an auxiliary motor.
func FrameHasMotor(frame string) bool {
	return frame == FrameSailboatMotor
}

// Validate checks the parameters that would make a step non-finite.
func (p Params) Validate() error {
	switch {
	case p.TimeStep <= 0:
		return fmt.Errorf("%w: time step %v", ErrInvalidParams, p.TimeStep)
	case p.Mass <= 0:
		return fmt.Errorf("%w: mass %v", ErrInvalidParams, p.Mass)
	case p.Steering.MaxAngleDeg <= 0 || p.Steering.MaxAngleDeg >= 90:
		return fmt.Errorf("%w: steering angle max %v", ErrInvalidParams, p.Steering.MaxAngleDeg)
	case p.Steering.TurningCircle <= 0:
		return fmt.Errorf("%w: turning circle %v", ErrInvalidParams, p.Steering.TurningCircle)
	case p.Sail.Area < 0:
		return fmt.Errorf("%w: sail area %v", ErrInvalidParams, p.Sail.Area)
	case p.Sail.Type != sail.Mainsail && p.Sail.Type != sail.DirectWing:
		return fmt.Errorf("%w: sail type %v", ErrInvalidParams, p.Sail.Type)
	case p.HeelPolicy != heel.DirectAngle && p.HeelPolicy != heel.Torque:
		return fmt.Errorf("%w: heel policy %v", ErrInvalidParams, p.HeelPolicy)
	}
	return nil
}
