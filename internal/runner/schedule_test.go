package runner

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sailsitl/sailsim/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSchedule_HoldsValues(t *testing.T) {
	s, err := ParseSchedule([]byte(`[
		{"t": 1, "servos": {"0": 1600, "3": 1500}},
		{"t": 2.5, "servos": {"0": 1400}, "armed": false}
	]`))
	require.NoError(t, err)
	assert.Equal(t, 2, s.Len())

	sp, ok := s.At(0.5)
	assert.False(t, ok)
	assert.Equal(t, core.NeutralInput(), sp.Input)

	sp, ok = s.At(1)
	require.True(t, ok)
	assert.Equal(t, uint16(1600), sp.Input.Servos[core.SteeringChannel])
	assert.Equal(t, uint16(1500), sp.Input.Servos[core.MainsailChannel])
	assert.Nil(t, sp.Armed)

	sp, ok = s.At(100)
	require.True(t, ok)
	assert.Equal(t, uint16(1400), sp.Input.Servos[core.SteeringChannel])
	assert.Equal(t, uint16(1500), sp.Input.Servos[core.MainsailChannel], "unnamed channels keep their value")
	require.NotNil(t, sp.Armed)
	assert.False(t, *sp.Armed)
}

func TestParseSchedule_Invalid(t *testing.T) {
	tests := map[string]string{
		"not json":        `{`,
		"negative time":   `[{"t": -1}]`,
		"not increasing":  `[{"t": 1}, {"t": 1}]`,
		"unknown channel": `[{"t": 0, "servos": {"16": 1500}}]`,
		"channel name":    `[{"t": 0, "servos": {"rudder": 1500}}]`,
		"pwm too low":     `[{"t": 0, "servos": {"0": 900}}]`,
		"pwm too high":    `[{"t": 0, "servos": {"0": 2100}}]`,
	}

	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseSchedule([]byte(body))
			assert.ErrorIs(t, err, ErrInvalidSchedule)
		})
	}
}

func TestNilSchedule(t *testing.T) {
	var s *Schedule
	assert.Equal(t, 0, s.Len())
	sp, ok := s.At(3)
	assert.False(t, ok)
	assert.Equal(t, core.NeutralInput(), sp.Input)
}

func TestLoadSchedule(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schedule.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"t": 0, "servos": {"3": 1000}}]`), 0644))

	s, err := LoadSchedule(path)
	require.NoError(t, err)
	sp, ok := s.At(0)
	require.True(t, ok)
	assert.Equal(t, uint16(1000), sp.Input.Servos[core.MainsailChannel])

	_, err = LoadSchedule(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
