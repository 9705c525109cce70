// pkg/core/vehicle.go
package core

import "time"

// Attitude is an Euler attitude in radians.
type Attitude struct {
	Roll  float64 `json:"roll"`
	Pitch float64 `json:"pitch"`
	Yaw   float64 `json:"yaw"`
}

// Geodetic is a WGS84 position.
type Geodetic struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lon"`
	Altitude  float64 `json:"alt"` // metres above mean sea level
}

// VehicleState is a copy of the simulated vehicle state after a step.
type VehicleState struct {
	TimeUS        uint64   `json:"timeUs"`
	Attitude      Attitude `json:"attitude"`
	Gyro          Vector3  `json:"gyro"`          // body rad/s
	AccelBody     Vector3  `json:"accelBody"`     // accelerometer, m/s/s
	VelocityWater Vector3  `json:"velocityWater"` // earth frame, relative to water
	Velocity      Vector3  `json:"velocity"`      // earth frame, over ground
	Position      Vector3  `json:"position"`      // NED metres from home
	Location      Geodetic `json:"location"`
	MagBody       Vector3  `json:"magBody"` // milligauss
	Airspeed      float64  `json:"airspeed"`
	RPM           float64  `json:"rpm"`
}

// StepSample is the record published once per simulation step.
type StepSample struct {
	RunID     string       `json:"runId"`
	Step      uint64       `json:"step"`
	SimTime   float64      `json:"simTime"` // seconds since the run started
	WallTime  time.Time    `json:"wallTime"`
	Input     ControlInput `json:"input"`
	State     VehicleState `json:"state"`
	WindSpeed float64      `json:"windSpeed"` // apparent, m/s
	WindAngle float64      `json:"windAngle"` // apparent, body frame, degrees
	SailAngle float64      `json:"sailAngle"` // degrees
	ForceFwd  float64      `json:"forceFwd"`  // N
	ForceHeel float64      `json:"forceHeel"` // N
	WavePhase float64      `json:"wavePhase"` // radians
	WaveHeave float64      `json:"waveHeave"` // m/s
	RollRate  float64      `json:"rollRate"`  // heel model roll rate, rad/s
}

// Run describes one simulation run.
type Run struct {
	ID        uint           `json:"id"`
	UUID      string         `json:"uuid"`
	Name      string         `json:"name"`
	Frame     string         `json:"frame"`
	StartTime time.Time      `json:"startTime"` // simulated epoch of step 0
	TimeStep  float64        `json:"timeStep"`  // seconds
	Duration  float64        `json:"duration"`  // seconds
	Home      Geodetic       `json:"home"`
	Config    map[string]any `json:"config,omitempty"`
}

// RunSummary is produced when a run ends.
type RunSummary struct {
	RunID       string   `json:"runId"`
	Steps       uint64   `json:"steps"`
	SimTime     float64  `json:"simTime"`     // seconds
	Distance    float64  `json:"distance"`    // over ground, m
	TrackLength float64  `json:"trackLength"` // length of the recorded track, m
	MaxSpeed    float64  `json:"maxSpeed"`    // over ground, m/s
	Final       Geodetic `json:"final"`
	Cancelled   bool     `json:"cancelled"`
}
