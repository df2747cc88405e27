package storage

import (
	"fmt"

	"optable/adscript/pkg/analytics"
	"optable/adscript/pkg/config"
)

// New creates the storage backend selected by the configuration.
func New(cfg *config.StorageConfig) (analytics.Storage, error) {
	switch cfg.Backend {
	case "sqlite", "":
		return NewSQLiteStorage(cfg)
	case "memory":
		return NewMemoryStorage(), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}
