// Package postgres implements the storage.Backend interface on PostgreSQL by
// wrapping the GORM backend with connection setup from the db.* configuration.
package postgres

import (
	"fmt"
	"log/slog"

	"github.com/virtualmission/vlm/internal/database"
	gormstorage "github.com/virtualmission/vlm/internal/storage/gorm"

	"gorm.io/gorm"
)

const maxOpenConns = 10

// Backend wraps the GORM backend for PostgreSQL.
type Backend struct {
	*gormstorage.Backend
	deps gormstorage.Dependencies
}

// New creates a new PostgreSQL storage backend. If deps.DB is nil, Init
// connects using the db.* configuration keys.
func New(deps gormstorage.Dependencies) *Backend {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Backend{deps: deps}
}

// Init connects if needed, validates the connection and initializes the
// embedded GORM backend.
func (b *Backend) Init() error {
	if b.deps.DB == nil {
		db, err := database.GetPostgresDB()
		if err != nil {
			return fmt.Errorf("failed to connect to postgres: %w", err)
		}
		b.deps.DB = db
	}

	if err := ping(b.deps.DB); err != nil {
		return err
	}

	b.Backend = gormstorage.New(b.deps)
	if err := b.Backend.Init(); err != nil {
		return err
	}
	b.deps.Logger.Info("Connected to database", "dialect", b.deps.DB.Name())
	return nil
}

// Close closes the embedded GORM backend if it was initialized.
func (b *Backend) Close() error {
	if b.Backend == nil {
		return nil
	}
	return b.Backend.Close()
}

func ping(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to access sql interface: %w", err)
	}
	if err = sqlDB.Ping(); err != nil {
		return fmt.Errorf("failed to validate connection: %w", err)
	}
	sqlDB.SetMaxOpenConns(maxOpenConns)
	return nil
}
