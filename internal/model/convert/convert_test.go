package convert

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sailsitl/sailsim/internal/model"
	"github.com/sailsitl/sailsim/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoreToRun_AssignsUUID(t *testing.T) {
	m, err := CoreToRun(core.Run{Name: "beat"})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, m.UUID)
	assert.JSONEq(t, `{}`, string(m.Config))
}

func TestCoreToRun_KeepsUUIDAndConfig(t *testing.T) {
	id := uuid.New()
	r := core.Run{
		UUID:      id.String(),
		Name:      "reach",
		Frame:     "sailboat",
		StartTime: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		TimeStep:  0.0025,
		Duration:  60,
		Home:      core.Geodetic{Latitude: -35.36, Longitude: 149.16, Altitude: 584},
		Config:    map[string]any{"sailArea": 1.5},
	}
	m, err := CoreToRun(r)
	require.NoError(t, err)
	assert.Equal(t, id, m.UUID)

	back := RunToCore(m)
	assert.Equal(t, r.UUID, back.UUID)
	assert.Equal(t, r.Home, back.Home)
	assert.Equal(t, 1.5, back.Config["sailArea"])
	assert.Equal(t, r.StartTime, back.StartTime)
}

func TestCoreToRun_BadUUID(t *testing.T) {
	_, err := CoreToRun(core.Run{UUID: "not-a-uuid"})
	require.Error(t, err)
}

func TestStepSample_Conversion(t *testing.T) {
	in := core.NeutralInput()
	in.Servos[core.SteeringChannel] = 1700

	s := core.StepSample{
		RunID:   "r1",
		Step:    12,
		SimTime: 0.03,
		Input:   in,
		State: core.VehicleState{
			Attitude: core.Attitude{Roll: 0.1, Yaw: 1.2},
			Velocity: core.Vector3{X: 1, Y: 2},
			Position: core.Vector3{X: 3, Y: 4, Z: -0.1},
			Location: core.Geodetic{Latitude: 10, Longitude: 20, Altitude: 1},
			Airspeed: 5,
		},
		WindSpeed: 5,
		SailAngle: 30,
		RollRate:  0.2,
	}

	m := CoreToStepSample(7, s)
	assert.Equal(t, uint(7), m.RunID)
	assert.Equal(t, uint16(1700), m.Servos.Steering)
	assert.Equal(t, uint16(core.PWMMax), m.Servos.Mainsail)

	back := StepSampleToCore("r1", m)
	assert.Equal(t, s.State.Location, back.State.Location)
	assert.Equal(t, s.State.Position, back.State.Position)
	assert.Equal(t, s.State.Attitude, back.State.Attitude)
	assert.Equal(t, s.Input.Servos[core.SteeringChannel], back.Input.Servos[core.SteeringChannel])
	assert.Equal(t, s.SailAngle, back.SailAngle)
	assert.Equal(t, s.RollRate, back.RollRate)
}

func TestRunSummary(t *testing.T) {
	var r model.Run
	_, ok := RunSummaryToCore(r)
	assert.False(t, ok)

	r.Summary = CoreToRunSummary(core.RunSummary{
		Steps:    400,
		Distance: 12.5,
		Final:    core.Geodetic{Latitude: 1, Longitude: 2},
	})
	got, ok := RunSummaryToCore(r)
	require.True(t, ok)
	assert.Equal(t, uint64(400), got.Steps)
	assert.Equal(t, 12.5, got.Distance)
	assert.Equal(t, core.Geodetic{Latitude: 1, Longitude: 2}, got.Final)
}

func TestTrackFromSamples(t *testing.T) {
	samples := []model.StepSample{
		CoreToStepSample(1, core.StepSample{State: core.VehicleState{Location: core.Geodetic{Latitude: 10, Longitude: 20}}}),
		CoreToStepSample(1, core.StepSample{State: core.VehicleState{Location: core.Geodetic{Latitude: 10.001, Longitude: 20}}}),
	}
	ls := TrackFromSamples(samples)
	require.Equal(t, 2, ls.Coordinates().Length())
	assert.Equal(t, 20.0, ls.Coordinates().GetXY(0).X)
	assert.Equal(t, 10.001, ls.Coordinates().GetXY(1).Y)

	assert.True(t, TrackFromSamples(samples[:1]).IsEmpty())
}
