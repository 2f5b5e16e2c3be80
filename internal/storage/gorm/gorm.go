// Package gormstorage implements the storage.Backend interface on any GORM
// dialect, with an internal queue and a background DB writer goroutine.
package gormstorage

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/virtualmission/vlm/internal/database"
	"github.com/virtualmission/vlm/internal/model"
	"github.com/virtualmission/vlm/internal/model/convert"
	"github.com/virtualmission/vlm/internal/queue"
	"github.com/virtualmission/vlm/pkg/core"

	"gorm.io/gorm"
)

const defaultFlushInterval = 2 * time.Second

// Dependencies holds all dependencies for the GORM storage backend.
type Dependencies struct {
	DB     *gorm.DB
	Logger *slog.Logger
	// QueueCapacity bounds conversions waiting to be written; zero is unbounded.
	QueueCapacity int
	// FlushInterval is the writer period; zero uses two seconds.
	FlushInterval time.Duration
}

// Backend implements storage.Backend using GORM with queue-based batch writes.
type Backend struct {
	deps     Dependencies
	pending  *queue.Queue[model.Conversion]
	stopChan chan struct{}
	done     chan struct{}
	// serializes queue drains between the writer and Flush callers
	flushMu sync.Mutex
}

// New creates a new GORM storage backend.
func New(deps Dependencies) *Backend {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.FlushInterval <= 0 {
		deps.FlushInterval = defaultFlushInterval
	}
	return &Backend{
		deps:    deps,
		pending: queue.NewBounded[model.Conversion](deps.QueueCapacity),
	}
}

// DB returns the underlying connection.
func (b *Backend) DB() *gorm.DB {
	return b.deps.DB
}

// Init runs schema migration and starts the DB writer goroutine.
func (b *Backend) Init() error {
	if b.deps.DB == nil {
		return errors.New("gorm backend requires a database connection")
	}
	if err := database.Setup(b.deps.DB, b.deps.Logger); err != nil {
		return fmt.Errorf("failed to setup DB: %w", err)
	}

	b.stopChan = make(chan struct{})
	b.done = make(chan struct{})
	b.startDBWriter()
	return nil
}

// Close stops the writer and writes anything still queued.
func (b *Backend) Close() error {
	if b.stopChan != nil {
		close(b.stopChan)
		<-b.done
		b.stopChan = nil
	}
	if b.deps.DB == nil {
		return nil
	}
	return b.Flush()
}

// SaveConversion queues c for the next write cycle.
func (b *Backend) SaveConversion(c *core.Conversion) error {
	if c == nil {
		return errors.New("nil conversion")
	}
	row, err := convert.CoreToConversion(*c)
	if err != nil {
		return err
	}
	b.pending.Push(row)
	return nil
}

// ListConversions writes pending conversions, then returns up to limit rows newest first.
func (b *Backend) ListConversions(limit int) ([]core.Conversion, error) {
	if err := b.Flush(); err != nil {
		return nil, err
	}

	var rows []model.Conversion
	q := b.deps.DB.Omit("kml").Order("created_at desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list conversions: %w", err)
	}

	out := make([]core.Conversion, 0, len(rows))
	for _, r := range rows {
		c, err := convert.ConversionToCore(r, false)
		if err != nil {
			return nil, fmt.Errorf("conversion %s: %w", r.ID, err)
		}
		out = append(out, c)
	}
	return out, nil
}

// GetConversion returns one conversion with its KML body.
func (b *Backend) GetConversion(id string) (*core.Conversion, error) {
	if err := b.Flush(); err != nil {
		return nil, err
	}

	var row model.Conversion
	err := b.deps.DB.Where("id = ?", id).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, core.ErrConversionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load conversion: %w", err)
	}

	c, err := convert.ConversionToCore(row, true)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Pending returns the number of conversions waiting to be written.
func (b *Backend) Pending() int {
	return b.pending.Len()
}

// Flush writes all queued conversions now.
func (b *Backend) Flush() error {
	b.flushMu.Lock()
	defer b.flushMu.Unlock()
	return writeQueue(b.deps.DB, b.pending, "conversions", b.deps.Logger)
}

// writeQueue writes all items from a queue to the database in a transaction.
// On failure the items go back to the head of the queue.
func writeQueue[T any](db *gorm.DB, q *queue.Queue[T], name string, log *slog.Logger) error {
	if q.Empty() {
		return nil
	}

	items := q.GetAndEmpty()
	start := time.Now()
	err := db.Transaction(func(tx *gorm.DB) error {
		return tx.Create(&items).Error
	})
	if err != nil {
		log.Error("Error writing to DB", "queue", name, "count", len(items), "error", err)
		q.Requeue(items...)
		return fmt.Errorf("failed to write %s: %w", name, err)
	}

	log.Debug("Wrote to DB", "queue", name, "count", len(items), "duration", time.Since(start))
	return nil
}

// startDBWriter starts the background goroutine that periodically drains the queue into the DB.
func (b *Backend) startDBWriter() {
	ticker := time.NewTicker(b.deps.FlushInterval)

	go func() {
		defer close(b.done)
		defer ticker.Stop()
		for {
			select {
			case <-b.stopChan:
				return
			case <-ticker.C:
				// failures are logged and retried next cycle
				_ = b.Flush()
			}
		}
	}()
}
