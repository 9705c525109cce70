// Package gormstorage writes runs to any gorm database. Samples are queued
// by RecordStep and inserted in batches by a background writer.
package gormstorage

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sailsitl/sailsim/internal/database"
	"github.com/sailsitl/sailsim/internal/geo"
	"github.com/sailsitl/sailsim/internal/model"
	"github.com/sailsitl/sailsim/internal/model/convert"
	"github.com/sailsitl/sailsim/internal/queue"
	"github.com/sailsitl/sailsim/pkg/core"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	defaultFlushInterval = time.Second
	defaultBatchSize     = 2000
)

// ErrNoActiveRun is returned when samples arrive outside StartRun/EndRun.
var ErrNoActiveRun = errors.New("no active run")

// Dependencies holds what the backend needs. A nil DB keeps samples queued,
// which is how the unit tests drive it.
type Dependencies struct {
	DB            *gorm.DB
	Logger        *slog.Logger
	FlushInterval time.Duration
	BatchSize     int
}

// Backend implements storage.Backend over gorm.
type Backend struct {
	db        *gorm.DB
	logger    *slog.Logger
	interval  time.Duration
	batchSize int

	samples *queue.Queue[model.StepSample]

	mu    sync.Mutex
	run   *model.Run
	track geo.Track

	writeMu  sync.Mutex
	stopChan chan struct{}
	done     chan struct{}
}

// New creates a gorm backend.
func New(deps Dependencies) *Backend {
	b := &Backend{
		db:        deps.DB,
		logger:    deps.Logger,
		interval:  deps.FlushInterval,
		batchSize: deps.BatchSize,
	}
	if b.logger == nil {
		b.logger = slog.Default()
	}
	if b.interval <= 0 {
		b.interval = defaultFlushInterval
	}
	if b.batchSize <= 0 {
		b.batchSize = defaultBatchSize
	}
	return b
}

// DB returns the underlying database, nil in queue-only mode.
func (b *Backend) DB() *gorm.DB {
	return b.db
}

// Init migrates the schema and starts the batch writer.
func (b *Backend) Init() error {
	b.samples = queue.New[model.StepSample]()
	b.stopChan = make(chan struct{})
	b.done = make(chan struct{})

	if b.db == nil {
		close(b.done)
		return nil
	}

	if err := database.Migrate(b.db); err != nil {
		return err
	}

	go b.writeLoop()
	return nil
}

// Close stops the writer and flushes what is still queued.
func (b *Backend) Close() error {
	if b.stopChan == nil {
		return nil
	}
	select {
	case <-b.stopChan:
		return nil
	default:
		close(b.stopChan)
	}
	<-b.done
	return b.flush()
}

// StartRun inserts the run row and fills in run.ID and run.UUID.
func (b *Backend) StartRun(run *core.Run) error {
	m, err := convert.CoreToRun(*run)
	if err != nil {
		return err
	}

	if b.db != nil {
		if err := b.db.Create(&m).Error; err != nil {
			return fmt.Errorf("insert run: %w", err)
		}
	}

	run.ID = m.ID
	run.UUID = m.UUID.String()

	b.mu.Lock()
	b.run = &m
	b.track = geo.Track{}
	b.mu.Unlock()

	b.logger.Info("Run started", "run", run.UUID, "id", run.ID, "name", run.Name)
	return nil
}

// RecordStep queues one sample of the active run.
func (b *Backend) RecordStep(s *core.StepSample) error {
	b.mu.Lock()
	if b.run == nil {
		b.mu.Unlock()
		return ErrNoActiveRun
	}
	runID := b.run.ID
	b.track.Add(s.State.Position, s.State.Location)
	b.mu.Unlock()

	b.samples.Push(convert.CoreToStepSample(runID, *s))
	return nil
}

// EndRun writes the remaining samples, then the track and summary.
func (b *Backend) EndRun(summary *core.RunSummary) error {
	b.mu.Lock()
	run := b.run
	b.run = nil
	track := b.track.LineString()
	b.mu.Unlock()

	if run == nil {
		return ErrNoActiveRun
	}

	if err := b.flush(); err != nil {
		return err
	}

	run.Track = track
	if summary != nil {
		run.Summary = convert.CoreToRunSummary(*summary)
	} else {
		run.Summary.Ended = true
	}

	if b.db == nil {
		return nil
	}
	if err := b.db.Save(run).Error; err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	b.logger.Info("Run stored", "run", run.UUID.String(), "points", track.Coordinates().Length())
	return nil
}

// Pending returns the number of queued samples.
func (b *Backend) Pending() int {
	if b.samples == nil {
		return 0
	}
	return b.samples.Len()
}

func (b *Backend) writeLoop() {
	defer close(b.done)

	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			return
		case <-ticker.C:
			if err := b.flush(); err != nil {
				b.logger.Error("Failed to write samples", "error", err)
			}
		}
	}
}

// flush inserts every queued sample in batches.
func (b *Backend) flush() error {
	if b.db == nil || b.samples == nil {
		return nil
	}

	b.writeMu.Lock()
	defer b.writeMu.Unlock()

	for {
		batch := b.samples.Drain(b.batchSize)
		if len(batch) == 0 {
			return nil
		}
		start := time.Now()
		if err := b.db.Omit(clause.Associations).CreateInBatches(batch, b.batchSize).Error; err != nil {
			return fmt.Errorf("insert %d samples: %w", len(batch), err)
		}
		b.logger.Debug("Wrote samples", "count", len(batch), "duration", time.Since(start))
	}
}
