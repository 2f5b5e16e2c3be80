// internal/storage/memory/memory.go
package memory

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/virtualmission/vlm/internal/config"
	"github.com/virtualmission/vlm/pkg/core"
)

// defaultKeep is used when the configuration does not bound the archive.
const defaultKeep = 100

// Backend keeps recent conversions in memory and optionally exports each
// KML document to OutputDir.
type Backend struct {
	cfg config.MemoryConfig
	log *slog.Logger

	// newest last
	conversions []core.Conversion

	lastExportPath string
	mu             sync.RWMutex
}

// New creates a new memory backend
func New(cfg config.MemoryConfig, log *slog.Logger) *Backend {
	if cfg.Keep <= 0 {
		cfg.Keep = defaultKeep
	}
	if log == nil {
		log = slog.Default()
	}
	return &Backend{
		cfg: cfg,
		log: log,
	}
}

// Init initializes the backend
func (b *Backend) Init() error {
	return nil
}

// Close cleans up resources
func (b *Backend) Close() error {
	return nil
}

// SaveConversion records c and, when an output directory is configured,
// writes its KML document there.
func (b *Backend) SaveConversion(c *core.Conversion) error {
	if c == nil {
		return fmt.Errorf("nil conversion")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.conversions = append(b.conversions, *c)
	if over := len(b.conversions) - b.cfg.Keep; over > 0 {
		b.conversions = append(b.conversions[:0:0], b.conversions[over:]...)
	}

	if b.cfg.OutputDir == "" {
		return nil
	}
	path, err := b.exportKML(c)
	if err != nil {
		return err
	}
	b.lastExportPath = path
	b.log.Debug("Exported KML", "path", path, "mission", c.MissionName)
	return nil
}

// ListConversions returns up to limit conversions, newest first, without KML.
func (b *Backend) ListConversions(limit int) ([]core.Conversion, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	n := len(b.conversions)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]core.Conversion, 0, n)
	for i := len(b.conversions) - 1; i >= 0 && len(out) < n; i-- {
		c := b.conversions[i]
		c.KML = nil
		out = append(out, c)
	}
	return out, nil
}

// GetConversion returns the conversion with the given id.
func (b *Backend) GetConversion(id string) (*core.Conversion, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for i := len(b.conversions) - 1; i >= 0; i-- {
		if b.conversions[i].ID == id {
			c := b.conversions[i]
			return &c, nil
		}
	}
	return nil, core.ErrConversionNotFound
}

// LastExportPath returns the path of the most recently exported KML file.
func (b *Backend) LastExportPath() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastExportPath
}
