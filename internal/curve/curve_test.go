package curve

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLookup_Breakpoints(t *testing.T) {
	assert.Equal(t, 0.0, Lift.Lookup(0))
	assert.Equal(t, 1.0, Lift.Lookup(20))
	assert.Equal(t, 0.2, Drag.Lookup(20))
	assert.Equal(t, 1.95, Drag.Lookup(90))
}

func TestLookup_Interpolates(t *testing.T) {
	assert.InDelta(t, 0.25, Lift.Lookup(5), 1e-12)
	assert.InDelta(t, 1.05, Lift.Lookup(25), 1e-12)
	assert.InDelta(t, 0.6, Drag.Lookup(35), 1e-12)
}

func TestLookup_ClampsPastLastBreakpoint(t *testing.T) {
	assert.Equal(t, -0.5, Lift.Lookup(175))
	assert.Equal(t, -0.5, Lift.Lookup(180))
	assert.Equal(t, 0.1, Drag.Lookup(179.9))
}

func TestLookup_SymmetricAboutZero(t *testing.T) {
	for a := 0.0; a <= 180; a += 2.5 {
		assert.Equal(t, Lift.Lookup(a), Lift.Lookup(-a), "lift at %v", a)
		assert.Equal(t, Drag.Lookup(a), Drag.Lookup(-a), "drag at %v", a)
	}
}

func TestLookup_MatchesDirectInterpolation(t *testing.T) {
	direct := func(tbl Table, a float64) float64 {
		for i := 1; i < len(tbl); i++ {
			lo, hi := tbl[i-1], tbl[i]
			if a >= lo.AngleDeg && a <= hi.AngleDeg {
				return lo.Coefficient + (a-lo.AngleDeg)/(hi.AngleDeg-lo.AngleDeg)*(hi.Coefficient-lo.Coefficient)
			}
		}
		return tbl[len(tbl)-1].Coefficient
	}

	for a := 0.5; a < 170; a += 3.7 {
		assert.InDelta(t, direct(Lift, a), Lift.Lookup(-a), 1e-12, "lift at %v", a)
		assert.InDelta(t, direct(Drag, a), Drag.Lookup(-a), 1e-12, "drag at %v", a)
	}
}

func TestLookup_WrapsBeforeAbs(t *testing.T) {
	// 350 deg is -10 deg
	assert.InDelta(t, Lift.Lookup(10), Lift.Lookup(350), 1e-12)
	assert.InDelta(t, Drag.Lookup(10), Drag.Lookup(-370), 1e-12)
}

func TestLookup_FirstBreakpointAboveZero(t *testing.T) {
	tbl := Table{{10, 0.4}, {20, 0.8}}
	assert.Equal(t, 0.4, tbl.Lookup(0))
	assert.Equal(t, 0.4, tbl.Lookup(5))
	assert.InDelta(t, 0.6, tbl.Lookup(15), 1e-12)
	assert.Equal(t, 0.0, Table{}.Lookup(10))
}

func TestWrapDeg180(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{0, 0},
		{180, 180},
		{-180, -180},
		{190, -170},
		{-190, 170},
		{370, 10},
		{-725, -5},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, WrapDeg180(tt.in), 1e-9, "wrap %v", tt.in)
	}
}
