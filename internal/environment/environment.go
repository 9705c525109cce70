// Package environment provides the ambient conditions a simulated boat
// steps against: wind, tide, swell and the armed state of the autopilot.
package environment

import (
	"math"

	"github.com/sailsitl/sailsim/internal/wave"
	"github.com/sailsitl/sailsim/pkg/core"
)

// Config describes a fixed environment. Directions are where the wind or
// tide comes from, in degrees clockwise from north.
type Config struct {
	WindSpeed     float64 `json:"windSpeed"`     // m/s
	WindDirection float64 `json:"windDirection"` // degrees
	GustAmplitude float64 `json:"gustAmplitude"` // m/s
	GustPeriod    float64 `json:"gustPeriod"`    // seconds
	TideSpeed     float64 `json:"tideSpeed"`     // m/s
	TideDirection float64 `json:"tideDirection"` // degrees

	Waves wave.Settings `json:"waves"`
	Armed bool          `json:"armed"`
}

// TimeSource reports the simulated time in seconds.
type TimeSource interface {
	Seconds() float64
}

// Environment is a deterministic environment. Gusts depend only on the
// simulated time, never on wall time or random state.
type Environment struct {
	cfg   Config
	clock TimeSource
	wind  core.Vector3
	armed bool
}

// New returns an environment reading time from clock. A nil clock freezes
// the gust at its starting value.
func New(cfg Config, clock TimeSource) *Environment {
	e := &Environment{cfg: cfg, clock: clock, armed: cfg.Armed}
	e.wind = e.windAt(0)
	return e
}

// UpdateWind recomputes the wind vector for the current simulated time.
func (e *Environment) UpdateWind(core.ControlInput) {
	var t float64
	if e.clock != nil {
		t = e.clock.Seconds()
	}
	e.wind = e.windAt(t)
}

func (e *Environment) windAt(t float64) core.Vector3 {
	speed := e.cfg.WindSpeed
	if e.cfg.GustAmplitude != 0 && e.cfg.GustPeriod > 0 {
		speed += e.cfg.GustAmplitude * math.Sin(2*math.Pi*t/e.cfg.GustPeriod)
	}
	speed = math.Max(speed, 0)
	s, c := math.Sincos(e.cfg.WindDirection * math.Pi / 180)
	// the air moves away from where it comes from
	return core.Vector3{X: -c * speed, Y: -s * speed}
}

// Wind returns the earth-frame velocity of the air.
func (e *Environment) Wind() core.Vector3 {
	return e.wind
}

// Tide returns the tide speed and the direction it comes from.
func (e *Environment) Tide() (speed, directionDeg float64) {
	return e.cfg.TideSpeed, e.cfg.TideDirection
}

// Waves returns the swell settings.
func (e *Environment) Waves() wave.Settings {
	return e.cfg.Waves
}

// Armed reports whether the autopilot is armed.
func (e *Environment) Armed() bool {
	return e.armed
}

// SetArmed changes the armed state.
func (e *Environment) SetArmed(armed bool) {
	e.armed = armed
}

// Config returns the configuration the environment was built from.
func (e *Environment) Config() Config {
	return e.cfg
}
