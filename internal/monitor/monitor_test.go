package monitor

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	mu      sync.Mutex
	runID   string
	step    uint64
	simTime float64
	speed   float64
}

func (f *fakeSource) set(runID string, step uint64, simTime float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runID, f.step, f.simTime = runID, step, simTime
}

func (f *fakeSource) RunID() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.runID
}

func (f *fakeSource) Step() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.step
}

func (f *fakeSource) SimTime() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.simTime
}

func (f *fakeSource) Speed() float64 { return 1.5 }

func TestSnapshot_NoRun(t *testing.T) {
	s := NewService(Dependencies{Source: &fakeSource{}})
	_, ok := s.Snapshot(time.Now())
	assert.False(t, ok)
}

func TestSnapshot_Rates(t *testing.T) {
	src := &fakeSource{}
	s := NewService(Dependencies{Source: src})
	t0 := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	src.set("run-1", 100, 0.25)
	st, ok := s.Snapshot(t0)
	require.True(t, ok)
	assert.Zero(t, st.StepsPerSec, "no rate on the first snapshot")

	src.set("run-1", 900, 2.25)
	st, ok = s.Snapshot(t0.Add(2 * time.Second))
	require.True(t, ok)
	assert.InDelta(t, 400.0, st.StepsPerSec, 1e-9)
	assert.InDelta(t, 1.0, st.RealTime, 1e-9)
	assert.Equal(t, 1.5, st.Speed)

	// a new run restarts the rate
	src.set("run-2", 10, 0.025)
	st, ok = s.Snapshot(t0.Add(3 * time.Second))
	require.True(t, ok)
	assert.Zero(t, st.StepsPerSec)
}

func TestStartStop_WritesStatusFile(t *testing.T) {
	src := &fakeSource{}
	src.set("run-1", 40, 0.1)
	path := filepath.Join(t.TempDir(), "status.json")

	s := NewService(Dependencies{Source: src, StatusPath: path, Interval: 5 * time.Millisecond})
	s.Start()
	s.Start()
	assert.True(t, s.IsRunning())

	assert.Eventually(t, func() bool {
		_, err := os.Stat(path)
		return err == nil
	}, 2*time.Second, 5*time.Millisecond)

	s.Stop()
	s.Stop()
	assert.False(t, s.IsRunning())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var st Status
	require.NoError(t, json.Unmarshal(data, &st))
	assert.Equal(t, "run-1", st.RunID)
	assert.Equal(t, uint64(40), st.Step)
}
