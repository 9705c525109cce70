package convert

import (
	"encoding/json"

	geom "github.com/peterstace/simplefeatures/geom"
	"github.com/sailsitl/sailsim/internal/model"
	"github.com/sailsitl/sailsim/pkg/core"
)

// pointToGeodetic reads a lon/lat/alt point. An empty point gives the zero value.
func pointToGeodetic(p geom.Point) core.Geodetic {
	c, ok := p.Coordinates()
	if !ok {
		return core.Geodetic{}
	}
	return core.Geodetic{Longitude: c.XY.X, Latitude: c.XY.Y, Altitude: c.Z}
}

func vector(v model.Vec3) core.Vector3 {
	return core.Vector3{X: v.X, Y: v.Y, Z: v.Z}
}

// RunToCore converts a GORM Run back to a core.Run.
func RunToCore(r model.Run) core.Run {
	var cfg map[string]any
	if len(r.Config) > 0 {
		_ = json.Unmarshal(r.Config, &cfg)
	}
	return core.Run{
		ID:        r.ID,
		UUID:      r.UUID.String(),
		Name:      r.Name,
		Frame:     r.Frame,
		StartTime: r.StartTime,
		TimeStep:  r.TimeStep,
		Duration:  r.Duration,
		Home:      pointToGeodetic(r.Home),
		Config:    cfg,
	}
}

// RunSummaryToCore converts a stored summary. ok is false while the run is
// still open.
func RunSummaryToCore(r model.Run) (s core.RunSummary, ok bool) {
	if !r.Summary.Ended {
		return core.RunSummary{}, false
	}
	return core.RunSummary{
		RunID:       r.UUID.String(),
		Steps:       r.Summary.Steps,
		SimTime:     r.Summary.SimTime,
		Distance:    r.Summary.Distance,
		TrackLength: r.Summary.TrackLength,
		MaxSpeed:    r.Summary.MaxSpeed,
		Final: core.Geodetic{
			Latitude:  r.Summary.FinalLat,
			Longitude: r.Summary.FinalLon,
			Altitude:  r.Summary.FinalAlt,
		},
		Cancelled: r.Summary.Cancelled,
	}, true
}

// StepSampleToCore converts a GORM StepSample to a core.StepSample. The run
// UUID is not stored per sample and has to be supplied.
func StepSampleToCore(runUUID string, s model.StepSample) core.StepSample {
	var in core.ControlInput
	in.Servos[core.SteeringChannel] = s.Servos.Steering
	in.Servos[core.ThrottleChannel] = s.Servos.Throttle
	in.Servos[core.MainsailChannel] = s.Servos.Mainsail
	in.Servos[core.DirectWingChannel] = s.Servos.Wing

	return core.StepSample{
		RunID:    runUUID,
		Step:     s.Step,
		SimTime:  s.SimTime,
		WallTime: s.WallTime,
		Input:    in,
		State: core.VehicleState{
			Attitude: core.Attitude{
				Roll:  s.Attitude.Roll,
				Pitch: s.Attitude.Pitch,
				Yaw:   s.Attitude.Yaw,
			},
			Gyro:          vector(s.Gyro),
			AccelBody:     vector(s.Accel),
			VelocityWater: vector(s.Water),
			Velocity:      vector(s.Velocity),
			Position:      vector(s.Local),
			Location:      pointToGeodetic(s.Position),
			MagBody:       vector(s.Mag),
			Airspeed:      s.Airspeed,
		},
		WindSpeed: s.WindSpeed,
		WindAngle: s.WindAngle,
		SailAngle: s.SailAngle,
		ForceFwd:  s.ForceFwd,
		ForceHeel: s.ForceHeel,
		WavePhase: s.WavePhase,
		WaveHeave: s.WaveHeave,
		RollRate:  s.RollRate,
	}
}
