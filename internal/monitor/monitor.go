// Package monitor writes a status file while a run is in progress.
package monitor

import (
	"encoding/json"
	"log/slog"
	"os"
	"sync"
	"time"
)

const defaultInterval = time.Second

// Source reports the progress of the active run. An empty RunID means no
// run is active.
type Source interface {
	RunID() string
	Step() uint64
	SimTime() float64
	Speed() float64
}

// Status is one snapshot written to the status file.
type Status struct {
	Time        time.Time `json:"time"`
	RunID       string    `json:"runId"`
	Step        uint64    `json:"step"`
	SimTime     float64   `json:"simTime"`
	Speed       float64   `json:"speed"`
	StepsPerSec float64   `json:"stepsPerSec"`
	RealTime    float64   `json:"realTime"` // simulated seconds per wall second
}

// Dependencies holds all dependencies for the monitor service
type Dependencies struct {
	Source     Source
	Logger     *slog.Logger
	StatusPath string
	Interval   time.Duration
}

// Service manages status monitoring
type Service struct {
	deps      Dependencies
	isRunning bool
	mu        sync.RWMutex
	stopChan  chan struct{}
	done      chan struct{}

	last     Status
	lastTick time.Time
}

// NewService creates a new monitor service
func NewService(deps Dependencies) *Service {
	if deps.Interval <= 0 {
		deps.Interval = defaultInterval
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Service{deps: deps}
}

// IsRunning returns whether the status monitor is running
func (s *Service) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Snapshot reads the source and derives the rates since the previous
// snapshot. ok is false when no run is active.
func (s *Service) Snapshot(now time.Time) (st Status, ok bool) {
	src := s.deps.Source
	st = Status{
		Time:    now,
		RunID:   src.RunID(),
		Step:    src.Step(),
		SimTime: src.SimTime(),
		Speed:   src.Speed(),
	}
	if st.RunID == "" {
		return st, false
	}

	if s.last.RunID == st.RunID && !s.lastTick.IsZero() {
		if dt := now.Sub(s.lastTick).Seconds(); dt > 0 {
			st.StepsPerSec = float64(st.Step-s.last.Step) / dt
			st.RealTime = (st.SimTime - s.last.SimTime) / dt
		}
	}
	s.last = st
	s.lastTick = now
	return st, true
}

// Start starts the status monitor goroutine
func (s *Service) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		return
	}
	s.isRunning = true
	s.stopChan = make(chan struct{})
	s.done = make(chan struct{})

	go s.loop(s.stopChan, s.done)
}

// Stop stops the status monitor and waits for the last write
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = false
	close(s.stopChan)
	done := s.done
	s.mu.Unlock()

	<-done
}

func (s *Service) loop(stop, done chan struct{}) {
	defer close(done)

	logger := s.deps.Logger
	logger.Debug("Starting status monitor", "path", s.deps.StatusPath, "interval", s.deps.Interval)

	ticker := time.NewTicker(s.deps.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case now := <-ticker.C:
			st, ok := s.Snapshot(now)
			if !ok {
				continue
			}
			logger.Debug("Run status", "step", st.Step, "simTime", st.SimTime, "stepsPerSec", st.StepsPerSec)
			if err := s.write(st); err != nil {
				logger.Error("Error writing status file", "error", err)
			}
		}
	}
}

func (s *Service) write(st Status) error {
	if s.deps.StatusPath == "" {
		return nil
	}
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.deps.StatusPath, append(data, '\n'), 0644)
}
