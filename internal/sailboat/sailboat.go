// Package sailboat integrates the sailboat's motion one lock-step frame at a
// time from its control input and the ambient environment.
package sailboat

import (
	"fmt"
	"math"

	"github.com/sailsitl/sailsim/internal/attitude"
	"github.com/sailsitl/sailsim/internal/curve"
	"github.com/sailsitl/sailsim/internal/heel"
	"github.com/sailsitl/sailsim/internal/sail"
	"github.com/sailsitl/sailsim/internal/steering"
	"github.com/sailsitl/sailsim/internal/wave"
	"github.com/sailsitl/sailsim/pkg/core"
)

// StepInfo exposes the intermediate values of the last Update.
type StepInfo struct {
	Steering     float64
	WindSpeed    float64 // apparent, m/s
	WindAngle    float64 // apparent, body frame, degrees
	Sail         sail.Result
	Speed        float64 // body-frame forward speed through the water, m/s
	YawRate      float64 // deg/s
	HullDrag     float64 // N
	Throttle     float64 // N
	AccelEarth   core.Vector3
	TideVelocity core.Vector3
}

// Sailboat is one simulated vehicle. It is not safe for concurrent use;
// every instance owns its own wave and heel state.
type Sailboat struct {
	params Params
	env    Environment
	loc    Locator
	clock  Clock
	mag    MagField

	// LockStepScheduled is set because the boat is only ever advanced by
	// an explicit Update from its driver.
	LockStepScheduled bool

	DCM           attitude.Matrix3
	Gyro          core.Vector3 // body rad/s
	AccelBody     core.Vector3 // sensed, m/s/s
	VelocityWater core.Vector3 // earth, relative to water
	Velocity      core.Vector3 // earth, over ground
	Position      core.Vector3 // NED, m
	MagBody       core.Vector3
	Airspeed      float64
	RPM           float64

	wave *wave.Generator
	heel *heel.Model
	last StepInfo
}

// New builds a sailboat at the origin, level and pointing north.
func New(p Params, c Collaborators) (*Sailboat, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if c.Env == nil {
		return nil, fmt.Errorf("%w: environment is required", ErrInvalidParams)
	}
	if FrameHasMotor(p.Frame) {
		p.Motor = true
	}

	hm := heel.NewModel(p.HeelPolicy)
	hm.Keel = p.Keel
	hm.AngleGain = p.HeelAngleGain

	return &Sailboat{
		params:            p,
		env:               c.Env,
		loc:               c.Locator,
		clock:             c.Clock,
		mag:               c.Mag,
		LockStepScheduled: true,
		DCM:               attitude.Identity(),
		wave:              wave.NewGenerator(p.WaveGains),
		heel:              hm,
	}, nil
}

// Params returns the parameters the boat was built with.
func (b *Sailboat) Params() Params {
	return b.params
}

// Last returns the intermediate values of the most recent Update.
func (b *Sailboat) Last() StepInfo {
	return b.last
}

// Wave returns the current wave state.
func (b *Sailboat) Wave() wave.State {
	return b.wave.State
}

// RollRate returns the heel model's roll rate in rad/s.
func (b *Sailboat) RollRate() float64 {
	return b.heel.RollRate
}

// SetHeading points the boat at yawDeg without changing roll or pitch.
func (b *Sailboat) SetHeading(yawDeg float64) {
	r, p, _ := b.DCM.ToEuler()
	b.DCM = attitude.FromEuler(r, p, radians(yawDeg))
}

// Update advances the boat by one time step.
func (b *Sailboat) Update(in core.ControlInput) {
	p := &b.params
	dt := p.TimeStep
	armed := b.env.Armed()
	var info StepInfo

	b.env.UpdateWind(in)

	info.Steering = steering.FromPWM(in.Servos[core.SteeringChannel])

	// apparent wind, pointing to where it comes from
	apparent := b.Velocity.Sub(b.env.Wind())
	dirEF := degrees(math.Atan2(apparent.Y, apparent.X))
	info.WindSpeed = apparent.HorizontalLength()

	roll, _, yaw := b.DCM.ToEuler()
	info.WindAngle = curve.WrapDeg180(dirEF - degrees(yaw))

	b.RPM = info.WindSpeed
	b.Airspeed = info.WindSpeed

	info.Sail = p.Sail.Forces(in, info.WindAngle, info.WindSpeed)

	velBody := b.DCM.Transposed().MulVec(b.VelocityWater)
	info.Speed = velBody.X

	info.YawRate = p.Steering.YawRate(info.Steering, info.Speed)
	rollRate := b.heel.Step(info.Sail.Heel, roll, dt, armed)
	b.Gyro = core.Vector3{X: rollRate, Z: radians(info.YawRate)}.Add(b.wave.Gyro)

	b.DCM.Rotate(b.Gyro.Scale(dt))
	b.DCM.Normalize()

	if b.heel.OverridesRoll() {
		_, pitch, yaw := b.DCM.ToEuler()
		b.DCM = attitude.FromEuler(b.heel.Roll(info.Sail.Heel), pitch, yaw)
		b.DCM.Normalize()
	}

	info.HullDrag = info.Speed * info.Speed * p.HullDrag * signum(info.Speed)
	if p.Motor {
		pwm := math.Min(math.Max(float64(in.Servos[core.ThrottleChannel]), core.PWMMin), core.PWMMax)
		info.Throttle = (pwm - core.PWMTrim) * p.ThrottleGain
	}

	accel := core.Vector3{X: (info.Throttle + info.Sail.Forward - info.HullDrag) / p.Mass}
	accel.Y += radians(info.YawRate) * info.Speed

	// heading only, wave roll and pitch do not move the hull
	_, _, yaw = b.DCM.ToEuler()
	accelEarth := attitude.FromEuler(0, 0, yaw).MulVec(accel)
	accelEarth.Z = b.wave.Heave
	info.AccelEarth = accelEarth

	b.AccelBody = b.DCM.Transposed().MulVec(accelEarth.Add(core.Vector3{Z: -p.Gravity}))

	if speed, dir := b.env.Tide(); armed && speed != 0 {
		s, c := math.Sincos(radians(dir))
		info.TideVelocity = core.Vector3{X: -c * speed, Y: -s * speed}
	}

	b.VelocityWater = b.VelocityWater.Add(accelEarth.Scale(dt))
	b.Velocity = b.VelocityWater.Add(info.TideVelocity)

	b.Position = b.Position.Add(b.Velocity.Scale(dt))

	if b.loc != nil {
		b.loc.UpdatePosition(b.Position)
	}
	if b.clock != nil {
		b.clock.TimeAdvance(dt)
	}
	if b.mag != nil {
		b.MagBody = b.mag.UpdateMagFieldBF(b.DCM)
	}

	b.wave.Update(dt, b.env.Waves(), armed, b.DCM.Euler(), b.Velocity)
	b.last = info
}

// State returns a copy of the vehicle state.
func (b *Sailboat) State() core.VehicleState {
	s := core.VehicleState{
		Attitude:      b.DCM.Euler(),
		Gyro:          b.Gyro,
		AccelBody:     b.AccelBody,
		VelocityWater: b.VelocityWater,
		Velocity:      b.Velocity,
		Position:      b.Position,
		MagBody:       b.MagBody,
		Airspeed:      b.Airspeed,
		RPM:           b.RPM,
	}
	if b.clock != nil {
		s.TimeUS = b.clock.TimeUS()
	}
	if b.loc != nil {
		s.Location = b.loc.Location()
	}
	return s
}

func signum(v float64) float64 {
	if v < 0 {
		return -1
	}
	return 1
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}

func degrees(rad float64) float64 {
	return rad * 180 / math.Pi
}
