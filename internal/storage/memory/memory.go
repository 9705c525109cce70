// Package memory keeps a run in memory and exports it as JSON when the run
// ends.
package memory

import (
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/sailsitl/sailsim/internal/config"
	"github.com/sailsitl/sailsim/internal/geo"
	"github.com/sailsitl/sailsim/pkg/core"
)

// ErrNoActiveRun is returned when samples arrive outside StartRun/EndRun.
var ErrNoActiveRun = errors.New("no active run")

// Backend stores run data in memory and exports to JSON
type Backend struct {
	cfg config.MemoryConfig

	mu      sync.RWMutex
	run     *core.Run
	samples []core.StepSample
	track   geo.Track
	nextID  uint

	lastExportPath string
}

// New creates a new memory backend
func New(cfg config.MemoryConfig) *Backend {
	return &Backend{cfg: cfg}
}

// Init initializes the backend
func (b *Backend) Init() error {
	return nil
}

// Close cleans up resources
func (b *Backend) Close() error {
	return nil
}

// StartRun begins recording a run and discards any previous one.
func (b *Backend) StartRun(run *core.Run) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	run.ID = b.nextID
	if run.UUID == "" {
		run.UUID = uuid.NewString()
	}

	r := *run
	b.run = &r
	b.samples = nil
	b.track = geo.Track{}
	return nil
}

// RecordStep appends a sample to the active run.
func (b *Backend) RecordStep(s *core.StepSample) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.run == nil {
		return ErrNoActiveRun
	}
	b.samples = append(b.samples, *s)
	b.track.Add(s.State.Position, s.State.Location)
	return nil
}

// EndRun exports the run. The data stays readable until the next StartRun.
func (b *Backend) EndRun(summary *core.RunSummary) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.run == nil {
		return ErrNoActiveRun
	}
	err := b.exportJSON(summary)
	b.run = nil
	return err
}

// Samples returns a copy of the recorded samples.
func (b *Backend) Samples() []core.StepSample {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]core.StepSample, len(b.samples))
	copy(out, b.samples)
	return out
}

// ExportedFilePath returns the file written by the last EndRun.
func (b *Backend) ExportedFilePath() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastExportPath
}
