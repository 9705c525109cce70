package heel

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAngularAccel_DisarmedIsZero(t *testing.T) {
	k := DefaultKeel()
	for _, force := range []float64{-500, -1, 0, 3, 1e6} {
		assert.Equal(t, 0.0, k.AngularAccel(force, 0.3, 2, false))
	}
}

func TestAngularAccel_Balance(t *testing.T) {
	k := DefaultKeel()

	// upright with no rate only the overturning moment acts
	a := k.AngularAccel(10, 0, 0, true)
	assert.InDelta(t, 10*0.5/(1*0.25), a, 1e-12)

	// righting moment opposes positive roll
	a = k.AngularAccel(0, 0.2, 0, true)
	assert.InDelta(t, -1*Gravity*0.5*math.Sin(0.2)/0.25, a, 1e-12)

	// damping opposes roll rate
	a = k.AngularAccel(0, 0, 1, true)
	assert.InDelta(t, -0.25*0.1*50/0.25, a, 1e-12)
}

func TestAngularAccel_ZeroInertia(t *testing.T) {
	k := DefaultKeel()
	k.Mass = 0
	assert.Equal(t, 0.0, k.AngularAccel(100, 0, 0, true))
}

func TestAngle_Clamped(t *testing.T) {
	assert.InDelta(t, 45*math.Pi/180, Angle(5000, 0.05), 1e-12)
	assert.InDelta(t, -45*math.Pi/180, Angle(-5000, 0.05), 1e-12)
	assert.InDelta(t, 10*math.Pi/180, Angle(200, 0.05), 1e-12)
	assert.Equal(t, 0.0, Angle(0, 0.05))
}

func TestModel_TorqueSettlesToEquilibrium(t *testing.T) {
	m := NewModel(Torque)
	roll := 0.0
	for i := 0; i < 20000; i++ {
		rate := m.Step(10, roll, 0.001, true)
		roll += rate * 0.001
	}
	// heel*zce*cos(r) == m*g*d*sin(r)  =>  tan(r) = 5 / 4.903325
	assert.InDelta(t, math.Atan(5/(Gravity*0.5)), roll, 1e-3)
	assert.InDelta(t, 0, m.RollRate, 1e-3)
}

func TestModel_DisarmedResetsRate(t *testing.T) {
	m := NewModel(Torque)
	m.RollRate = 0.4
	assert.Equal(t, 0.0, m.Step(100, 0, 0.1, false))
	assert.Equal(t, 0.0, m.Accel)
	assert.Equal(t, 0.0, m.RollRate)
}

func TestModel_DirectAngle(t *testing.T) {
	m := NewModel(DirectAngle)
	assert.True(t, m.OverridesRoll())
	assert.Equal(t, 0.0, m.Step(100, 0, 0.1, true))
	assert.InDelta(t, 5*math.Pi/180, m.Roll(100), 1e-12)
}

func TestModel_UnknownPolicyPanics(t *testing.T) {
	m := &Model{Policy: Policy(9)}
	assert.Panics(t, func() { m.Step(1, 0, 0.1, true) })
}

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy("torque")
	require.NoError(t, err)
	assert.Equal(t, Torque, p)

	p, err = ParsePolicy("")
	require.NoError(t, err)
	assert.Equal(t, DirectAngle, p)

	_, err = ParsePolicy("free")
	require.Error(t, err)
}
