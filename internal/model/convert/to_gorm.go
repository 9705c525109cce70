// Package convert maps run records between the core types and the GORM models.
package convert

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	geom "github.com/peterstace/simplefeatures/geom"
	"github.com/sailsitl/sailsim/internal/geo"
	"github.com/sailsitl/sailsim/internal/model"
	"github.com/sailsitl/sailsim/pkg/core"
	"gorm.io/datatypes"
)

func vec3(v core.Vector3) model.Vec3 {
	return model.Vec3{X: v.X, Y: v.Y, Z: v.Z}
}

// configToJSON snapshots the run configuration. A nil config is stored as {}.
func configToJSON(cfg map[string]any) (datatypes.JSON, error) {
	if len(cfg) == 0 {
		return datatypes.JSON("{}"), nil
	}
	data, err := json.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("marshal run config: %w", err)
	}
	return datatypes.JSON(data), nil
}

// CoreToRun converts a core.Run to a GORM model.Run. An empty UUID gets a
// fresh one.
func CoreToRun(r core.Run) (model.Run, error) {
	id := uuid.New()
	if r.UUID != "" {
		parsed, err := uuid.Parse(r.UUID)
		if err != nil {
			return model.Run{}, fmt.Errorf("run uuid: %w", err)
		}
		id = parsed
	}

	cfg, err := configToJSON(r.Config)
	if err != nil {
		return model.Run{}, err
	}

	m := model.Run{
		UUID:      id,
		Name:      r.Name,
		Frame:     r.Frame,
		StartTime: r.StartTime,
		TimeStep:  r.TimeStep,
		Duration:  r.Duration,
		Home:      geo.PointFromGeodetic(r.Home),
		Config:    cfg,
	}
	m.ID = r.ID
	return m, nil
}

// CoreToStepSample converts a core.StepSample to a GORM model.StepSample.
func CoreToStepSample(runID uint, s core.StepSample) model.StepSample {
	st := s.State
	return model.StepSample{
		RunID:    runID,
		Step:     s.Step,
		SimTime:  s.SimTime,
		WallTime: s.WallTime,
		Position: geo.PointFromGeodetic(st.Location),
		Local:    vec3(st.Position),
		Velocity: vec3(st.Velocity),
		Water:    vec3(st.VelocityWater),
		Gyro:     vec3(st.Gyro),
		Accel:    vec3(st.AccelBody),
		Mag:      vec3(st.MagBody),
		Attitude: model.Attitude{
			Roll:  st.Attitude.Roll,
			Pitch: st.Attitude.Pitch,
			Yaw:   st.Attitude.Yaw,
		},
		Servos: model.Servos{
			Steering: s.Input.Servos[core.SteeringChannel],
			Throttle: s.Input.Servos[core.ThrottleChannel],
			Mainsail: s.Input.Servos[core.MainsailChannel],
			Wing:     s.Input.Servos[core.DirectWingChannel],
		},
		Airspeed:  st.Airspeed,
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

// CoreToRunSummary converts the end-of-run summary.
func CoreToRunSummary(s core.RunSummary) model.RunSummary {
	return model.RunSummary{
		Ended:       true,
		Cancelled:   s.Cancelled,
		Steps:       s.Steps,
		SimTime:     s.SimTime,
		Distance:    s.Distance,
		TrackLength: s.TrackLength,
		MaxSpeed:    s.MaxSpeed,
		FinalLat:    s.Final.Latitude,
		FinalLon:    s.Final.Longitude,
		FinalAlt:    s.Final.Altitude,
	}
}

// TrackFromSamples builds the lon/lat track of a run from its samples.
func TrackFromSamples(samples []model.StepSample) geom.LineString {
	var tr geo.Track
	for _, s := range samples {
		tr.Add(core.Vector3{X: s.Local.X, Y: s.Local.Y, Z: s.Local.Z}, pointToGeodetic(s.Position))
	}
	return tr.LineString()
}
