// internal/storage/storage.go
package storage

import "github.com/virtualmission/vlm/pkg/core"

// Backend is the interface all conversion archive implementations must satisfy
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// SaveConversion archives a finished conversion. Implementations may
	// write asynchronously; the conversion must not be modified afterwards.
	SaveConversion(c *core.Conversion) error

	// ListConversions returns up to limit conversions, newest first, without
	// their KML bodies. A limit of zero or less returns all of them.
	ListConversions(limit int) ([]core.Conversion, error)

	// GetConversion returns one conversion including its KML body, or
	// core.ErrConversionNotFound.
	GetConversion(id string) (*core.Conversion, error)
}

// Exporter is an optional interface for storage backends that also write
// each conversion's KML document to disk.
type Exporter interface {
	LastExportPath() string
}
