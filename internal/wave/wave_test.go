package wave

import (
	"math"
	"math/rand"
	"testing"

	"github.com/sailsitl/sailsim/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func swell() Settings {
	return Settings{Mode: Heave, Amplitude: 0.5, Length: 10, Speed: 2, DirectionDeg: 45}
}

func TestUpdate_PhaseStaysInRange(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	g := NewGenerator(DefaultGains())

	for i := 0; i < 5000; i++ {
		s := Settings{
			Mode:         Attitude,
			Amplitude:    1,
			Length:       0.1 + rng.Float64()*50,
			Speed:        (rng.Float64() - 0.5) * 40,
			DirectionDeg: rng.Float64() * 360,
		}
		vel := core.Vector3{X: (rng.Float64() - 0.5) * 30, Y: (rng.Float64() - 0.5) * 30}
		dt := rng.Float64() * 2

		g.Update(dt, s, true, core.Attitude{}, vel)
		require.GreaterOrEqual(t, g.Phase, 0.0)
		require.Less(t, g.Phase, 2*math.Pi)
	}
}

func TestUpdate_PhaseAdvance(t *testing.T) {
	g := NewGenerator(DefaultGains())
	s := swell()
	s.DirectionDeg = 0

	// boat at rest, 2 m/s wave over 10 m wavelength for 1 s
	g.Update(1, s, true, core.Attitude{}, core.Vector3{})
	assert.InDelta(t, 0.2*2*math.Pi, g.Phase, 1e-12)

	// boat matching wave speed leaves phase unchanged
	before := g.Phase
	g.Update(1, s, true, core.Attitude{}, core.Vector3{X: 2})
	assert.InDelta(t, before, g.Phase, 1e-12)
}

func TestUpdate_RidingEastboundWaveHoldsPhase(t *testing.T) {
	g := NewGenerator(DefaultGains())
	s := swell()
	s.DirectionDeg = 90

	// the along-wave speed is the east component for an eastbound swell
	g.Update(1, s, true, core.Attitude{}, core.Vector3{Y: s.Speed})
	assert.InDelta(t, 0, g.Phase, 1e-12)

	g.Update(1, s, true, core.Attitude{}, core.Vector3{X: s.Speed})
	assert.InDelta(t, 0.2*2*math.Pi, g.Phase, 1e-12)
}

func TestUpdate_DisabledIsPureFunctionOfAttitude(t *testing.T) {
	att := core.Attitude{Roll: 0.2, Pitch: -0.1, Yaw: 1}
	vel := core.Vector3{X: 1, Y: 2, Z: 0.3}

	cases := []struct {
		name  string
		s     Settings
		armed bool
	}{
		{"mode off", Settings{Mode: Off, Amplitude: 1, Length: 10, Speed: 2}, true},
		{"zero amplitude", Settings{Mode: Heave, Length: 10, Speed: 2}, true},
		{"disarmed", swell(), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			g := NewGenerator(DefaultGains())
			// run enabled first so there is prior phase to discard
			for i := 0; i < 13; i++ {
				g.Update(0.37, swell(), true, core.Attitude{}, core.Vector3{})
			}
			require.NotZero(t, g.Phase)

			g.Update(0.1, tc.s, tc.armed, att, vel)
			assert.Equal(t, core.Vector3{X: -0.2, Y: 0.1}, g.Gyro)
			assert.Equal(t, -0.3, g.Heave)
			assert.Equal(t, 0.0, g.Phase)

			fresh := NewGenerator(DefaultGains())
			fresh.Update(0.1, tc.s, tc.armed, att, vel)
			assert.Equal(t, fresh.State, g.State)
		})
	}
}

func TestUpdate_GyroZAlwaysZero(t *testing.T) {
	g := NewGenerator(DefaultGains())
	for i := 0; i < 50; i++ {
		g.Update(0.05, swell(), true, core.Attitude{Roll: 0.1, Yaw: 0.5}, core.Vector3{X: 1})
		assert.Equal(t, 0.0, g.Gyro.Z)
	}
}

func TestUpdate_HeaveOnlyInHeaveMode(t *testing.T) {
	s := swell()
	vel := core.Vector3{Z: 0.1}

	g := NewGenerator(DefaultGains())
	g.Update(0.5, s, true, core.Attitude{}, vel)
	assert.InDelta(t, g.Slope-0.1, g.Heave, 1e-12)

	s.Mode = Attitude
	g.Update(0.5, s, true, core.Attitude{}, vel)
	assert.Equal(t, 0.0, g.Heave)
}

func TestUpdate_SlopeAndAngleError(t *testing.T) {
	s := Settings{Mode: Attitude, Amplitude: 1, Length: 4, Speed: 0, DirectionDeg: 90}
	g := NewGenerator(Gains{Angle: 2, Heave: 1})

	// zero speeds keep phase at 0, so the slope is at its maximum
	g.Update(1, s, true, core.Attitude{Roll: 0.05, Yaw: 0}, core.Vector3{})
	slope := 0.5 * (2 * math.Pi / 4)
	assert.InDelta(t, slope, g.Slope, 1e-12)

	angle := math.Atan(slope)
	assert.InDelta(t, (angle-0.05)*2, g.Gyro.X, 1e-12)
	assert.InDelta(t, 0, g.Gyro.Y, 1e-12)
}

func TestWrapTwoPi(t *testing.T) {
	assert.Equal(t, 0.0, WrapTwoPi(0))
	assert.Equal(t, 0.0, WrapTwoPi(2*math.Pi))
	assert.InDelta(t, math.Pi, WrapTwoPi(-math.Pi), 1e-12)
	assert.InDelta(t, 1, WrapTwoPi(1+6*math.Pi), 1e-9)
	assert.Less(t, WrapTwoPi(-1e-18), 2*math.Pi)
}
