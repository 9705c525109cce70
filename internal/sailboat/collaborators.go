package sailboat

import (
	"math"

	"github.com/sailsitl/sailsim/internal/attitude"
	"github.com/sailsitl/sailsim/internal/wave"
	"github.com/sailsitl/sailsim/pkg/core"
)

// Environment supplies the ambient conditions around the boat.
type Environment interface {
	// UpdateWind refreshes the wind for the current step.
	UpdateWind(in core.ControlInput)
	// Wind is the earth-frame velocity of the air, m/s.
	Wind() core.Vector3
	// Tide returns the tide speed in m/s and the direction it comes from
	// in degrees.
	Tide() (speed, directionDeg float64)
	Waves() wave.Settings
	Armed() bool
}

// Locator turns the NED position into a geodetic location.
type Locator interface {
	UpdatePosition(position core.Vector3)
	Location() core.Geodetic
}

// Clock is advanced once per step.
type Clock interface {
	TimeAdvance(dt float64)
	TimeUS() uint64
}

// MagField returns the earth magnetic field in body frame for an attitude.
type MagField interface {
	UpdateMagFieldBF(dcm attitude.Matrix3) core.Vector3
}

// Collaborators groups the services a Sailboat steps against. Env is
// required; the rest may be nil.
type Collaborators struct {
	Env     Environment
	Locator Locator
	Clock   Clock
	Mag     MagField
}

// SimClock is a microsecond simulation clock.
type SimClock struct {
	us uint64
}

// TimeAdvance moves the clock forward by dt seconds.
func (c *SimClock) TimeAdvance(dt float64) {
	c.us += uint64(math.Round(dt * 1e6))
}

// TimeUS returns the simulated time in microseconds.
func (c *SimClock) TimeUS() uint64 {
	return c.us
}

// Seconds returns the simulated time in seconds.
func (c *SimClock) Seconds() float64 {
	return float64(c.us) / 1e6
}
