package converter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/virtualmission/vlm/internal/config"
	"github.com/virtualmission/vlm/internal/elevation"
	"github.com/virtualmission/vlm/internal/geo"
	"github.com/virtualmission/vlm/internal/logging"
	"github.com/virtualmission/vlm/internal/orientation"
	"github.com/virtualmission/vlm/internal/parser"
	"github.com/virtualmission/vlm/internal/render"
	"github.com/virtualmission/vlm/internal/smoothing"
	"github.com/virtualmission/vlm/internal/storage"
	"github.com/virtualmission/vlm/internal/util"
	"github.com/virtualmission/vlm/pkg/core"
)

// ErrInvalidSettings is returned when the conversion parameters cannot be used.
var ErrInvalidSettings = errors.New("invalid conversion settings")

// Result values reported to metrics and telemetry.
const (
	ResultOK       = "ok"
	ResultDegraded = "degraded"
	ResultFailed   = "failed"
)

const meterName = "github.com/virtualmission/vlm/internal/converter"

// Corrector resolves ground elevations for a mission in place.
type Corrector interface {
	Source() string
	Correct(ctx context.Context, m *core.Mission, takeoff *float64) (elevation.Report, error)
}

// Telemetry receives one record per conversion run.
type Telemetry interface {
	WriteConversion(ctx context.Context, c *core.Conversion, result string, duration time.Duration) error
}

// Dependencies holds the collaborators of a Converter. Only Corrector is required.
type Dependencies struct {
	Corrector Corrector
	Archive   storage.Backend
	Telemetry Telemetry
	Logger    *slog.Logger
	Meter     metric.Meter
}

// Request is one mission to convert.
type Request struct {
	// Filename is the source file name; the mission is named after it.
	Filename string
	CSV      io.Reader
	Settings core.Settings
}

// Result is a finished conversion.
type Result struct {
	Conversion *core.Conversion
	Report     elevation.Report
	Path       []core.Waypoint
}

type instruments struct {
	conversions metric.Int64Counter
	degraded    metric.Int64Counter
	duration    metric.Float64Histogram
}

// Converter runs the ingest, elevation, smoothing, orientation and render
// stages for a mission. It is safe for concurrent use.
type Converter struct {
	deps     Dependencies
	defaults core.Settings
	metrics  instruments
}

// New creates a Converter that fills unset request settings from defaults.
func New(deps Dependencies, defaults core.Settings) (*Converter, error) {
	if deps.Corrector == nil {
		return nil, errors.New("converter needs an elevation corrector")
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Meter == nil {
		deps.Meter = otel.Meter(meterName)
	}

	c := &Converter{deps: deps, defaults: defaults}
	if err := c.setupMetrics(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Converter) setupMetrics() error {
	var err error
	c.metrics.conversions, err = c.deps.Meter.Int64Counter("vlm.conversions",
		metric.WithDescription("Number of mission conversions"),
	)
	if err != nil {
		return fmt.Errorf("failed to create conversions counter: %w", err)
	}
	c.metrics.degraded, err = c.deps.Meter.Int64Counter("vlm.elevation.degraded_batches",
		metric.WithDescription("Elevation batches replaced by zeros"),
	)
	if err != nil {
		return fmt.Errorf("failed to create degraded batches counter: %w", err)
	}
	c.metrics.duration, err = c.deps.Meter.Float64Histogram("vlm.conversion.duration",
		metric.WithDescription("Conversion wall time"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return fmt.Errorf("failed to create duration histogram: %w", err)
	}
	return nil
}

// Defaults returns the settings used for fields a request leaves at zero.
func (c *Converter) Defaults() core.Settings {
	return c.defaults
}

// Source names the elevation service in use.
func (c *Converter) Source() string {
	return c.deps.Corrector.Source()
}

// Settings merges s over the converter defaults and derives the horizontal FOV.
func (c *Converter) Settings(s core.Settings) (core.Settings, error) {
	d := c.defaults
	if s.DefaultSpeed == 0 {
		s.DefaultSpeed = d.DefaultSpeed
	}
	if s.DiagonalFOV == 0 {
		s.DiagonalFOV = d.DiagonalFOV
	}
	if s.TakeoffAltitude == nil {
		s.TakeoffAltitude = d.TakeoffAltitude
	}
	if s.MinCurve == 0 {
		s.MinCurve = d.MinCurve
	}
	if s.BezierPoints == 0 {
		s.BezierPoints = d.BezierPoints
	}
	if s.InfillDistance == 0 {
		s.InfillDistance = d.InfillDistance
	}

	if s.DiagonalFOV <= 0 || s.DiagonalFOV >= 180 {
		return s, fmt.Errorf("fov must be between 0 and 180, got %v: %w", s.DiagonalFOV, ErrInvalidSettings)
	}
	if s.DefaultSpeed < 0 {
		return s, fmt.Errorf("speed must not be negative, got %v: %w", s.DefaultSpeed, ErrInvalidSettings)
	}
	s.HorizontalFOV = render.HFOV(s.DiagonalFOV)
	return s, nil
}

// Convert turns a CSV mission into a KML flythrough. Elevation failures
// degrade the result but never fail it; parse and settings errors do.
// Archive and telemetry failures are logged only.
func (c *Converter) Convert(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	name := util.MissionName(req.Filename)
	ctx = logging.WithMission(ctx, name)
	log := c.deps.Logger

	res, err := c.convert(ctx, name, req)
	elapsed := time.Since(start)

	result := ResultOK
	switch {
	case err != nil:
		result = ResultFailed
	case res.Report.Degraded() > 0:
		result = ResultDegraded
	}
	c.record(ctx, res, result, elapsed)

	if err != nil {
		log.WarnContext(ctx, "Conversion failed", "error", err, "duration", elapsed)
		return nil, err
	}

	conv := res.Conversion
	log.InfoContext(ctx, "Conversion finished",
		"id", conv.ID,
		"waypoints", conv.WaypointCount,
		"pois", conv.POICount,
		"points", conv.SmoothedCount,
		"pathLength", conv.PathLength,
		"flightTime", conv.FlightTime,
		"degraded", conv.DegradedBatches,
		"duration", elapsed)

	if c.deps.Archive != nil {
		if err := c.deps.Archive.SaveConversion(conv); err != nil {
			log.ErrorContext(ctx, "Failed to archive conversion", "id", conv.ID, "error", err)
		}
	}
	return res, nil
}

func (c *Converter) convert(ctx context.Context, name string, req Request) (*Result, error) {
	settings, err := c.Settings(req.Settings)
	if err != nil {
		return nil, err
	}
	engine, err := smoothing.NewEngine(config.Smoothing(settings))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSettings, err)
	}

	m, err := parser.NewParser(c.deps.Logger, settings.DefaultSpeed).ParseMission(req.CSV, name)
	if err != nil {
		return nil, fmt.Errorf("failed to parse mission: %w", err)
	}

	report, err := c.deps.Corrector.Correct(ctx, m, settings.TakeoffAltitude)
	if err != nil {
		return nil, fmt.Errorf("failed to correct elevations: %w", err)
	}

	path, err := engine.Smooth(m.Waypoints)
	if err != nil {
		return nil, fmt.Errorf("failed to smooth path: %w", err)
	}
	orientation.Interpolate(path, m.POIs)

	kml, err := render.NewRenderer(settings.HorizontalFOV).Render(render.Input{
		Name:      m.Name,
		Waypoints: m.Waypoints,
		POIs:      m.POIs,
		Path:      path,
	})
	if err != nil {
		return nil, err
	}

	conv := &core.Conversion{
		ID:              uuid.NewString(),
		MissionName:     m.Name,
		CreatedAt:       time.Now().UTC(),
		Settings:        settings,
		ElevationSource: report.Source,
		WaypointCount:   len(m.Waypoints),
		POICount:        m.POIs.Len(),
		SmoothedCount:   len(path),
		DegradedBatches: report.Degraded(),
		Path:            make([]core.GeoPoint, len(path)),
		KML:             kml,
	}
	for i, p := range path {
		conv.Path[i] = p.GeoPoint
		conv.FlightTime += p.LegTime
		if i > 0 {
			conv.PathLength += geo.Distance3D(path[i-1].GeoPoint, p.GeoPoint)
		}
	}

	return &Result{Conversion: conv, Report: report, Path: path}, nil
}

func (c *Converter) record(ctx context.Context, res *Result, result string, elapsed time.Duration) {
	attrs := metric.WithAttributes(attribute.String("result", result))
	c.metrics.conversions.Add(ctx, 1, attrs)
	c.metrics.duration.Record(ctx, float64(elapsed.Microseconds())/1000, attrs)

	if res == nil {
		return
	}
	if n := res.Report.Degraded(); n > 0 {
		c.metrics.degraded.Add(ctx, int64(n))
	}
	if c.deps.Telemetry != nil {
		if err := c.deps.Telemetry.WriteConversion(ctx, res.Conversion, result, elapsed); err != nil {
			c.deps.Logger.WarnContext(ctx, "Failed to write conversion telemetry", "error", err)
		}
	}
}
