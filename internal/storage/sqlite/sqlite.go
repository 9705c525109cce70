// Package sqlitestorage records runs into an in-memory SQLite database and
// periodically snapshots it to disk with VACUUM INTO. Everything else is the
// gorm backend.
package sqlitestorage

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sailsitl/sailsim/internal/database"
	gormstorage "github.com/sailsitl/sailsim/internal/storage/gorm"
	"github.com/sailsitl/sailsim/pkg/core"
	"gorm.io/gorm"
)

// Config holds configuration for the SQLite storage backend.
type Config struct {
	DSN          string // empty for the shared in-memory database
	DumpInterval time.Duration
	DumpPath     string // target of the VACUUM INTO snapshots
}

// Backend wraps the gorm backend with the dump loop.
type Backend struct {
	*gormstorage.Backend
	db       *gorm.DB
	cfg      Config
	logger   *slog.Logger
	stopChan chan struct{}
	wg       sync.WaitGroup
}

// New creates a new SQLite storage backend.
func New(cfg Config, logger *slog.Logger) (*Backend, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := database.OpenSQLite(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory SQLite DB: %w", err)
	}

	return &Backend{
		Backend:  gormstorage.New(gormstorage.Dependencies{DB: db, Logger: logger}),
		db:       db,
		cfg:      cfg,
		logger:   logger,
		stopChan: make(chan struct{}),
	}, nil
}

// Init initializes the embedded gorm backend and starts the dump goroutine.
func (b *Backend) Init() error {
	if err := b.Backend.Init(); err != nil {
		return err
	}

	if b.cfg.DumpPath != "" && b.cfg.DumpInterval > 0 {
		b.wg.Add(1)
		go b.dumpLoop()
	}

	return nil
}

// EndRun stores the run and writes a snapshot so a finished run is always
// on disk.
func (b *Backend) EndRun(summary *core.RunSummary) error {
	if err := b.Backend.EndRun(summary); err != nil {
		return err
	}
	return b.Dump()
}

// Dump writes a snapshot now. It is a no-op without a dump path.
func (b *Backend) Dump() error {
	if b.cfg.DumpPath == "" {
		return nil
	}
	start := time.Now()
	if err := database.DumpMemoryDBToDisk(b.db, b.cfg.DumpPath); err != nil {
		return err
	}
	b.logger.Debug("Dumped to disk", "path", b.cfg.DumpPath, "duration", time.Since(start))
	return nil
}

// Close stops the dump goroutine and closes the embedded gorm backend.
func (b *Backend) Close() error {
	select {
	case <-b.stopChan:
	default:
		close(b.stopChan)
	}
	b.wg.Wait()
	return b.Backend.Close()
}

func (b *Backend) dumpLoop() {
	defer b.wg.Done()

	ticker := time.NewTicker(b.cfg.DumpInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			return
		case <-ticker.C:
			if err := b.Dump(); err != nil {
				b.logger.Error("Error dumping to disk", "error", err)
			}
		}
	}
}
