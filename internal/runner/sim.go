package runner

import (
	"fmt"
	"log/slog"

	"github.com/sailsitl/sailsim/internal/config"
	"github.com/sailsitl/sailsim/internal/environment"
	"github.com/sailsitl/sailsim/internal/geo"
	"github.com/sailsitl/sailsim/internal/heel"
	"github.com/sailsitl/sailsim/internal/magfield"
	"github.com/sailsitl/sailsim/internal/sail"
	"github.com/sailsitl/sailsim/internal/sailboat"
	"github.com/sailsitl/sailsim/internal/steering"
	"github.com/sailsitl/sailsim/internal/wave"
	"github.com/sailsitl/sailsim/pkg/core"
)

// Sim is a sailboat wired to its collaborators.
type Sim struct {
	Boat    *sailboat.Sailboat
	Env     *environment.Environment
	Locator *geo.Locator
	Clock   *sailboat.SimClock
	Mag     *magfield.Field
	Params  sailboat.Params
	Home    core.Geodetic
}

// ParamsFromConfig fills sailboat parameters from the boat configuration.
func ParamsFromConfig(boat config.BoatConfig, timeStep float64) (sailboat.Params, error) {
	p := sailboat.DefaultParams()

	sailType, err := sail.ParseType(boat.SailType)
	if err != nil {
		return p, err
	}
	scaling, err := sail.ParseScaling(boat.ForceScaling)
	if err != nil {
		return p, err
	}
	policy, err := heel.ParsePolicy(boat.Heel.Policy)
	if err != nil {
		return p, err
	}

	if boat.Frame != "" {
		p.Frame = boat.Frame
	}
	p.TimeStep = timeStep
	p.Sail = sail.Model{
		Type:       sailType,
		Scaling:    scaling,
		Area:       boat.SailArea,
		AirDensity: boat.AirDensity,
	}
	p.Steering = steering.Kinematics{
		MaxAngleDeg:   boat.SteeringAngleMax,
		TurningCircle: boat.TurningCircle,
	}
	p.HeelPolicy = policy
	p.HeelAngleGain = boat.Heel.AngleGain
	p.Keel = heel.Keel{
		CenterOfEffort: boat.Heel.CenterOfEffort,
		Mass:           boat.Heel.KeelMass,
		Depth:          boat.Heel.KeelDepth,
		Chord:          boat.Heel.KeelChord,
		Damping:        boat.Heel.Damping,
		Gravity:        heel.Gravity,
	}
	p.WaveGains = wave.Gains{Angle: boat.WaveGains.Angle, Heave: boat.WaveGains.Heave}
	p.Mass = boat.Mass
	p.HullDrag = boat.HullDrag
	p.ThrottleGain = boat.ThrottleGain

	return p, p.Validate()
}

// EnvironmentFromConfig converts the environment configuration.
func EnvironmentFromConfig(env config.EnvironmentConfig) environment.Config {
	return environment.Config{
		WindSpeed:     env.WindSpeed,
		WindDirection: env.WindDirection,
		GustAmplitude: env.GustAmplitude,
		GustPeriod:    env.GustPeriod,
		TideSpeed:     env.TideSpeed,
		TideDirection: env.TideDirection,
		Waves: wave.Settings{
			Mode:         wave.Mode(env.WaveEnable),
			Amplitude:    env.WaveAmplitude,
			Length:       env.WaveLength,
			Speed:        env.WaveSpeed,
			DirectionDeg: env.WaveDirection,
		},
		Armed: env.Armed,
	}
}

// NewSim builds a boat from configuration. The magnetic model is evaluated
// at the configured start time.
func NewSim(boat config.BoatConfig, env config.EnvironmentConfig, timeStep float64, logger *slog.Logger) (*Sim, error) {
	params, err := ParamsFromConfig(boat, timeStep)
	if err != nil {
		return nil, fmt.Errorf("boat config: %w", err)
	}

	home, err := geo.GeodeticFromString(env.Home)
	if err != nil {
		return nil, fmt.Errorf("home %q: %w", env.Home, err)
	}

	clock := &sailboat.SimClock{}
	environ := environment.New(EnvironmentFromConfig(env), clock)
	locator := geo.NewLocator(home)
	mag := magfield.New(locator, env.StartTime, logger)

	b, err := sailboat.New(params, sailboat.Collaborators{
		Env:     environ,
		Locator: locator,
		Clock:   clock,
		Mag:     mag,
	})
	if err != nil {
		return nil, err
	}

	return &Sim{
		Boat:    b,
		Env:     environ,
		Locator: locator,
		Clock:   clock,
		Mag:     mag,
		Params:  params,
		Home:    home,
	}, nil
}
