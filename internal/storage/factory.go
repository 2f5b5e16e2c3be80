// internal/storage/factory.go
package storage

import (
	"fmt"
	"log/slog"

	"github.com/virtualmission/vlm/internal/config"
	gormstorage "github.com/virtualmission/vlm/internal/storage/gorm"
	"github.com/virtualmission/vlm/internal/storage/memory"
	"github.com/virtualmission/vlm/internal/storage/postgres"
	sqlitestorage "github.com/virtualmission/vlm/internal/storage/sqlite"
)

// NewBackend creates a storage backend based on configuration. The "none"
// type (or an empty one) returns a nil Backend: conversions are not archived.
func NewBackend(cfg config.StorageConfig, log *slog.Logger) (Backend, error) {
	switch cfg.Type {
	case "", "none":
		return nil, nil
	case "memory":
		return memory.New(cfg.Memory, log), nil
	case "sqlite":
		return sqlitestorage.New(sqlitestorage.Config{
			Path:          cfg.SQLite.Path,
			DumpPath:      cfg.SQLite.DumpPath,
			DumpInterval:  cfg.SQLite.DumpInterval,
			QueueCapacity: cfg.QueueCapacity,
		}, log)
	case "postgres":
		return postgres.New(gormstorage.Dependencies{
			Logger:        log,
			QueueCapacity: cfg.QueueCapacity,
		}), nil
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}
