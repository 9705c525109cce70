package model

import (
	"time"

	"github.com/google/uuid"
	geom "github.com/peterstace/simplefeatures/geom"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

////////////////////////
// DATABASE STRUCTURES //
////////////////////////

// DatabaseModels is a list of all the structs exported here which represent tables in the database schema
var DatabaseModels = []interface{}{
	&Run{},
	&StepSample{},
}

////////////////////////
// RUNS
////////////////////////

// Run is one simulation run
type Run struct {
	gorm.Model
	UUID      uuid.UUID       `json:"uuid" gorm:"uniqueIndex;size:36"`
	Name      string          `json:"name" gorm:"size:127"`
	Frame     string          `json:"frame" gorm:"size:32"`
	StartTime time.Time       `json:"startTime"` // simulated epoch of step 0
	TimeStep  float64         `json:"timeStep"`  // seconds
	Duration  float64         `json:"duration"`  // configured seconds
	Home      geom.Point      `json:"home"`      // lon/lat/alt
	Config    datatypes.JSON  `json:"config"`    // configuration snapshot
	Track     geom.LineString `json:"track"`     // lon/lat, written when the run ends
	Summary   RunSummary      `json:"summary" gorm:"embedded;embeddedPrefix:summary_"`
}

func (*Run) TableName() string {
	return "runs"
}

// RunSummary is filled in when the run ends
type RunSummary struct {
	Ended       bool    `json:"ended"`
	Cancelled   bool    `json:"cancelled"`
	Steps       uint64  `json:"steps"`
	SimTime     float64 `json:"simTime"`
	Distance    float64 `json:"distance"`
	TrackLength float64 `json:"trackLength"`
	MaxSpeed    float64 `json:"maxSpeed"`
	FinalLat    float64 `json:"finalLat"`
	FinalLon    float64 `json:"finalLon"`
	FinalAlt    float64 `json:"finalAlt"`
}

////////////////////////
// SAMPLES
////////////////////////

// StepSample is the vehicle state after one simulation step
type StepSample struct {
	ID       uint       `json:"id" gorm:"primarykey;autoIncrement"`
	RunID    uint       `json:"runId" gorm:"index:idx_stepsample_run_step,priority:1"`
	Run      Run        `json:"-" gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:RunID;"`
	Step     uint64     `json:"step" gorm:"index:idx_stepsample_run_step,priority:2"`
	SimTime  float64    `json:"simTime"`
	WallTime time.Time  `json:"wallTime"`
	Position geom.Point `json:"position"` // lon/lat/alt

	Local    Vec3     `json:"local" gorm:"embedded;embeddedPrefix:local_"`  // NED metres from home
	Velocity Vec3     `json:"velocity" gorm:"embedded;embeddedPrefix:vel_"` // earth frame, over ground
	Water    Vec3     `json:"water" gorm:"embedded;embeddedPrefix:water_"`  // earth frame, through water
	Gyro     Vec3     `json:"gyro" gorm:"embedded;embeddedPrefix:gyro_"`    // body rad/s
	Accel    Vec3     `json:"accel" gorm:"embedded;embeddedPrefix:accel_"`  // body m/s/s
	Mag      Vec3     `json:"mag" gorm:"embedded;embeddedPrefix:mag_"`      // body milligauss
	Attitude Attitude `json:"attitude" gorm:"embedded;embeddedPrefix:att_"` // radians
	Servos   Servos   `json:"servos" gorm:"embedded;embeddedPrefix:servo_"` // PWM

	Airspeed  float64 `json:"airspeed"`
	WindSpeed float64 `json:"windSpeed"`
	WindAngle float64 `json:"windAngle"`
	SailAngle float64 `json:"sailAngle"`
	ForceFwd  float64 `json:"forceFwd"`
	ForceHeel float64 `json:"forceHeel"`
	WavePhase float64 `json:"wavePhase"`
	WaveHeave float64 `json:"waveHeave"`
	RollRate  float64 `json:"rollRate"`
}

func (*StepSample) TableName() string {
	return "step_samples"
}

// Vec3 is a three axis value stored as columns
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Attitude holds Euler angles
type Attitude struct {
	Roll  float64 `json:"roll"`
	Pitch float64 `json:"pitch"`
	Yaw   float64 `json:"yaw"`
}

// Servos holds the control channels the boat reads
type Servos struct {
	Steering uint16 `json:"steering"`
	Throttle uint16 `json:"throttle"`
	Mainsail uint16 `json:"mainsail"`
	Wing     uint16 `json:"wing"`
}
