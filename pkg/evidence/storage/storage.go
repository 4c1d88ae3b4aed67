package storage

import (
	"fmt"
	"log/slog"

	"mercator-hq/covenant/pkg/config"
	"mercator-hq/covenant/pkg/evidence"
)

// New creates the backend selected by cfg.Backend.
func New(cfg *config.EvidenceConfig, logger *slog.Logger) (evidence.Storage, error) {
	switch cfg.Backend {
	case "memory":
		return NewMemoryStorage(), nil
	case "sqlite", "":
		wal := cfg.SQLite.WALMode == nil || *cfg.SQLite.WALMode
		return NewSQLiteStorage(&SQLiteConfig{
			Driver:       cfg.SQLite.Driver,
			Path:         cfg.SQLite.Path,
			MaxOpenConns: cfg.SQLite.MaxOpenConns,
			WALMode:      wal,
			BusyTimeout:  cfg.SQLite.BusyTimeout,
		}, logger)
	default:
		return nil, evidence.NewStorageError(cfg.Backend, "open", fmt.Errorf("unknown evidence backend %q", cfg.Backend))
	}
}
