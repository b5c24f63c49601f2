package cmd

import (
	"fmt"
	"log/slog"

	"github.com/lehigh-university-libraries/studio/internal/config"
	"github.com/lehigh-university-libraries/studio/internal/ids"
	"github.com/lehigh-university-libraries/studio/internal/persistence"
	"github.com/lehigh-university-libraries/studio/internal/storage"
)

// openStorage opens the configured durable store.
func openStorage(cfg *config.Config) (storage.KV, error) {
	switch cfg.Storage.Backend {
	case config.StorageMemory:
		slog.Warn("Using in-memory storage, saved projects are lost on exit")
		return storage.NewMemory(cfg.Storage.Quota), nil
	default:
		path := cfg.DatabasePath()
		kv, err := storage.OpenSQLite(path, cfg.Storage.Quota)
		if err != nil {
			return nil, fmt.Errorf("failed to open project database: %w", err)
		}
		slog.Debug("Opened project database", "path", path, "quota", cfg.Storage.Quota)
		return kv, nil
	}
}

func openProjects(cfg *config.Config, gen *ids.Generator) (storage.KV, *persistence.Store, error) {
	kv, err := openStorage(cfg)
	if err != nil {
		return nil, nil, err
	}
	projects, err := persistence.Open(kv, gen)
	if err != nil {
		kv.Close()
		return nil, nil, err
	}
	return kv, projects, nil
}
