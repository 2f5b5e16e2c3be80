// Package sqlitestorage implements the storage.Backend interface on SQLite.
// It wraps the GORM backend via composition. The only SQLite-specific concerns
// are creating the database (in memory unless a file path is set) and
// periodically dumping an in-memory database to disk.
package sqlitestorage

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/virtualmission/vlm/internal/database"
	gormstorage "github.com/virtualmission/vlm/internal/storage/gorm"
)

// Config holds configuration for the SQLite storage backend.
type Config struct {
	Path          string // database file; empty keeps the archive in memory
	DumpInterval  time.Duration
	DumpPath      string // Path for periodic VACUUM INTO dumps
	QueueCapacity int
}

// Backend wraps the GORM backend for SQLite-specific behavior.
type Backend struct {
	*gormstorage.Backend
	cfg      Config
	log      *slog.Logger
	stopChan chan struct{}
	done     chan struct{}
}

// New creates a new SQLite storage backend.
func New(cfg Config, log *slog.Logger) (*Backend, error) {
	if log == nil {
		log = slog.Default()
	}

	db, err := database.GetSqliteDB(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite DB: %w", err)
	}

	gormBackend := gormstorage.New(gormstorage.Dependencies{
		DB:            db,
		Logger:        log,
		QueueCapacity: cfg.QueueCapacity,
	})

	return &Backend{
		Backend: gormBackend,
		cfg:     cfg,
		log:     log,
	}, nil
}

// dumping reports whether the periodic disk dump is configured.
func (b *Backend) dumping() bool {
	return b.cfg.Path == "" && b.cfg.DumpPath != "" && b.cfg.DumpInterval > 0
}

// Init initializes the embedded GORM backend and starts the dump goroutine.
func (b *Backend) Init() error {
	if err := b.Backend.Init(); err != nil {
		return err
	}

	if b.dumping() {
		b.stopChan = make(chan struct{})
		b.done = make(chan struct{})
		go b.dumpLoop()
	}

	return nil
}

// Close stops the dump goroutine, closes the embedded GORM backend and
// writes a final dump.
func (b *Backend) Close() error {
	if b.stopChan != nil {
		close(b.stopChan)
		<-b.done
		b.stopChan = nil
	}
	if err := b.Backend.Close(); err != nil {
		return err
	}
	if b.dumping() {
		return b.Dump()
	}
	return nil
}

// Dump writes a point-in-time copy of the in-memory database to DumpPath.
func (b *Backend) Dump() error {
	return database.DumpMemoryDBToDisk(b.DB(), b.cfg.DumpPath)
}

// dumpLoop periodically dumps the in-memory SQLite database to disk via VACUUM INTO.
// VACUUM INTO creates a point-in-time snapshot, so no pause mechanism is needed.
func (b *Backend) dumpLoop() {
	defer close(b.done)
	ticker := time.NewTicker(b.cfg.DumpInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			return
		case <-ticker.C:
			start := time.Now()
			if err := b.Flush(); err != nil {
				b.log.Error("Error writing queued conversions before dump", "error", err)
			}
			if err := b.Dump(); err != nil {
				b.log.Error("Error dumping to disk", "error", err)
			} else {
				b.log.Debug("Dumped to disk", "path", b.cfg.DumpPath, "duration", time.Since(start))
			}
		}
	}
}
