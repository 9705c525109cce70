// Package storage records simulation runs.
package storage

import "github.com/sailsitl/sailsim/pkg/core"

// Backend is the interface all storage implementations must satisfy
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// StartRun begins a run and assigns run.ID when the backend has one.
	StartRun(run *core.Run) error
	// RecordStep stores one sample of the current run.
	RecordStep(s *core.StepSample) error
	// EndRun flushes the current run and stores its summary.
	EndRun(summary *core.RunSummary) error
}

// Exporter is implemented by backends that write a file per run.
type Exporter interface {
	ExportedFilePath() string
}

// Nop discards everything. It backs the "none" storage type.
type Nop struct{}

func (Nop) Init() error { return nil }
func (Nop) Close() error { return nil }
func (Nop) StartRun(*core.Run) error { return nil }
func (Nop) RecordStep(*core.StepSample) error { return nil }
func (Nop) EndRun(*core.RunSummary) error { return nil }
