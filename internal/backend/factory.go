package backend

import (
	"fmt"
	"log/slog"

	"cashops/internal/storage"
	"cashops/internal/storage/local"
)

// CleanupFunc releases resources held by a store.
type CleanupFunc func() error

// Result bundles a store with its cleanup function.
type Result struct {
	Store   Store
	Cleanup CleanupFunc
}

// Config holds what each implementation needs to open.
type Config struct {
	Type Type

	// SQLite
	DBPath string

	// Local (guest mode)
	DataDirectory string
}

// Open creates the configured store.
func Open(cfg Config, logger *slog.Logger) (*Result, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if !cfg.Type.IsValid() {
		return nil, fmt.Errorf("invalid backend type: %s", cfg.Type)
	}

	switch cfg.Type {
	case SQLiteStore:
		repo, err := storage.NewSQLiteRepository(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("initialize sqlite store: %w", err)
		}
		logger.Info("Initialized sqlite backend", "db_path", cfg.DBPath)
		return &Result{Store: repo, Cleanup: repo.Close}, nil

	case LocalStore:
		dir := cfg.DataDirectory
		if dir == "" {
			dir = "data"
		}
		store, err := local.Open(dir)
		if err != nil {
			return nil, fmt.Errorf("initialize local store: %w", err)
		}
		logger.Info("Initialized local guest backend", "data_directory", dir)
		return &Result{Store: store, Cleanup: store.Close}, nil
	}

	return nil, fmt.Errorf("unsupported backend type: %s", cfg.Type)
}
