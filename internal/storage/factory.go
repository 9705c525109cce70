package storage

import (
	"fmt"
	"log/slog"

	"github.com/rs/zerolog"
	"github.com/sailsitl/sailsim/internal/config"
	"github.com/sailsitl/sailsim/internal/database"
	gormstorage "github.com/sailsitl/sailsim/internal/storage/gorm"
	"github.com/sailsitl/sailsim/internal/storage/memory"
	sqlitestorage "github.com/sailsitl/sailsim/internal/storage/sqlite"
	"github.com/sailsitl/sailsim/internal/storage/websocket"
)

// Dependencies are the loggers handed to the backends.
type Dependencies struct {
	Logger *slog.Logger
	ZLog   zerolog.Logger
}

// NewBackend creates a storage backend based on configuration
func NewBackend(cfg config.StorageConfig, deps Dependencies) (Backend, error) {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	switch cfg.Type {
	case "memory":
		return memory.New(cfg.Memory), nil
	case "sqlite":
		return sqlitestorage.New(sqlitestorage.Config{
			DumpInterval: cfg.SQLite.DumpInterval,
			DumpPath:     cfg.SQLite.DumpPath,
		}, deps.Logger)
	case "postgres":
		mgr := database.NewManager(cfg.DB, deps.ZLog)
		if err := mgr.Connect(); err != nil {
			return nil, err
		}
		return &managedBackend{
			Backend: gormstorage.New(gormstorage.Dependencies{DB: mgr.DB, Logger: deps.Logger}),
			mgr:     mgr,
		}, nil
	case "websocket":
		return websocket.New(websocket.Config{URL: cfg.WebSocket.URL, Secret: cfg.WebSocket.Secret}, deps.Logger), nil
	case "none", "":
		return Nop{}, nil
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}

// managedBackend owns the connection opened for it.
type managedBackend struct {
	*gormstorage.Backend
	mgr *database.Manager
}

func (b *managedBackend) Init() error {
	if err := b.mgr.Setup(); err != nil {
		return err
	}
	return b.Backend.Init()
}

func (b *managedBackend) Close() error {
	err := b.Backend.Close()
	if cerr := b.mgr.Close(); err == nil {
		err = cerr
	}
	return err
}
