package elevation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/virtualmission/vlm/internal/cache"
	"github.com/virtualmission/vlm/internal/config"
	"github.com/virtualmission/vlm/pkg/core"
)

// Report summarizes the lookups made for one mission.
type Report struct {
	Source    string
	Points    int
	CacheHits int
	Batches   int
	// Warnings holds one ErrLookupDegraded wrapped error per zero-filled batch.
	Warnings []error
}

// Degraded returns the number of batches that were zero-filled.
func (r Report) Degraded() int {
	return len(r.Warnings)
}

// Corrector fetches ground elevations in bounded batches and applies them to missions.
// A failed batch never fails the mission: its points get 0 and a warning is reported.
type Corrector struct {
	lookup        Lookup
	cache         *cache.ElevationCache
	maxPerRequest int
	timeout       time.Duration
	logger        *slog.Logger
}

// CorrectorOption configures a Corrector.
type CorrectorOption func(*Corrector)

// WithCache serves repeat positions from c. Zero-filled results are never stored.
func WithCache(c *cache.ElevationCache) CorrectorOption {
	return func(k *Corrector) { k.cache = c }
}

// WithMaxPerRequest sets the batch size.
func WithMaxPerRequest(n int) CorrectorOption {
	return func(k *Corrector) {
		if n > 0 {
			k.maxPerRequest = n
		}
	}
}

// WithTimeout bounds each batch request.
func WithTimeout(d time.Duration) CorrectorOption {
	return func(k *Corrector) {
		if d > 0 {
			k.timeout = d
		}
	}
}

// WithLogger sets the logger that reports degraded elevation batches.
// A nil logger keeps the default.
func WithLogger(l *slog.Logger) CorrectorOption {
	return func(k *Corrector) {
		if l != nil {
			k.logger = l
		}
	}
}

// NewCorrector creates a Corrector over lookup.
func NewCorrector(lookup Lookup, opts ...CorrectorOption) *Corrector {
	c := &Corrector{
		lookup:        lookup,
		maxPerRequest: DefaultMaxPerRequest,
		timeout:       30 * time.Second,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Cache returns the elevation cache, or nil when caching is off.
func (c *Corrector) Cache() *cache.ElevationCache {
	return c.cache
}

// Source returns the name of the underlying lookup service.
func (c *Corrector) Source() string {
	return c.lookup.Name()
}

// Elevations returns one ground elevation per point, in order.
// The only error is cancellation of ctx itself.
func (c *Corrector) Elevations(ctx context.Context, points []core.LatLon) ([]float64, Report, error) {
	report := Report{Source: c.lookup.Name(), Points: len(points)}
	out := make([]float64, len(points))

	// indexes of points that still need a lookup
	pending := make([]int, 0, len(points))
	for i, p := range points {
		if c.cache != nil {
			if e, ok := c.cache.Get(p); ok {
				out[i] = e
				report.CacheHits++
				continue
			}
		}
		pending = append(pending, i)
	}

	for start := 0; start < len(pending); start += c.maxPerRequest {
		end := min(start+c.maxPerRequest, len(pending))
		idx := pending[start:end]
		batch := make([]core.LatLon, len(idx))
		for j, i := range idx {
			batch[j] = points[i]
		}

		report.Batches++
		elevs, err := c.requestBatch(ctx, batch)
		if err != nil {
			if ctx.Err() != nil {
				return nil, report, ctx.Err()
			}
			warn := fmt.Errorf("batch %d (%d points): %w: %w", report.Batches, len(batch), ErrLookupDegraded, err)
			c.logger.WarnContext(ctx, "Elevation API error, assuming zero ground elevation",
				"source", report.Source,
				"batch", report.Batches,
				"points", len(batch),
				"error", err)
			report.Warnings = append(report.Warnings, warn)
			// out already holds zeros for these indexes
			continue
		}

		for j, i := range idx {
			out[i] = elevs[j]
			if c.cache != nil {
				c.cache.Add(points[i], elevs[j])
			}
		}
	}

	c.logger.DebugContext(ctx, "Elevations resolved",
		"source", report.Source,
		"points", report.Points,
		"cacheHits", report.CacheHits,
		"batches", report.Batches,
		"degraded", report.Degraded())
	return out, report, nil
}

func (c *Corrector) requestBatch(ctx context.Context, batch []core.LatLon) ([]float64, error) {
	bctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	elevs, err := c.lookup.Elevations(bctx, batch)
	if err != nil {
		return nil, err
	}
	if len(elevs) != len(batch) {
		return nil, fmt.Errorf("got %d elevations for %d points", len(elevs), len(batch))
	}
	return elevs, nil
}

// Correct looks up ground elevation for every waypoint and POI of m and
// converts their altitudes to MSL. takeoff overrides the ground elevation of
// the first waypoint as the takeoff reference.
func (c *Corrector) Correct(ctx context.Context, m *core.Mission, takeoff *float64) (Report, error) {
	elevs, report, err := c.Elevations(ctx, m.LatLons())
	if err != nil {
		return report, err
	}
	if err := Apply(m, elevs, takeoff); err != nil {
		return report, err
	}
	return report, nil
}

// Apply writes ground elevations onto m. elevations are in Mission.LatLons order.
func Apply(m *core.Mission, elevations []float64, takeoff *float64) error {
	want := len(m.Waypoints) + m.POIs.Len()
	if len(elevations) != want {
		return fmt.Errorf("got %d elevations for %d points", len(elevations), want)
	}

	var takeoffAlt float64
	switch {
	case takeoff != nil:
		takeoffAlt = *takeoff
	case len(m.Waypoints) > 0:
		takeoffAlt = elevations[0]
	}

	for i := range m.Waypoints {
		m.Waypoints[i].CorrectAltitude(takeoffAlt, elevations[i])
	}
	offset := len(m.Waypoints)
	m.POIs.Update(func(ref core.POIRef, p *core.POI) {
		p.CorrectAltitude(takeoffAlt, elevations[offset+int(ref)-1])
	})
	return nil
}

// FromConfig builds the corrector described by cfg: the lookup service chosen
// by the presence of a Google key, and an LRU cache when cacheSize is positive.
func FromConfig(cfg config.ElevationConfig, log *slog.Logger) (*Corrector, error) {
	opts := []CorrectorOption{
		WithMaxPerRequest(cfg.MaxPerRequest),
		WithTimeout(cfg.Timeout),
		WithLogger(log),
	}
	if cfg.CacheSize > 0 {
		c, err := cache.NewElevationCache(cfg.CacheSize)
		if err != nil {
			return nil, fmt.Errorf("failed to create elevation cache: %w", err)
		}
		opts = append(opts, WithCache(c))
	}
	return NewCorrector(New(cfg.GoogleURL, cfg.GoogleKey, cfg.OpenURL), opts...), nil
}
