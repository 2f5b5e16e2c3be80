package influx

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	influxdb2_api "github.com/influxdata/influxdb-client-go/v2/api"
	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/influxdata/influxdb-client-go/v2/domain"
	"github.com/virtualmission/vlm/internal/config"
	"github.com/virtualmission/vlm/pkg/core"
)

// ConversionMeasurement is the measurement every conversion is recorded under.
const ConversionMeasurement = "conversion"

// retention for the conversion bucket when it has to be created
const bucketRetentionSeconds = 60 * 60 * 24 * 90

// ErrDisabled is returned by Connect when telemetry is switched off.
var ErrDisabled = errors.New("influx telemetry is disabled")

// Manager handles InfluxDB connections and writes.
type Manager struct {
	cfg    config.InfluxConfig
	log    *slog.Logger
	client influxdb2.Client
	writer influxdb2_api.WriteAPI

	// mu guards the backup writer
	mu           sync.Mutex
	backupFile   *os.File
	backupWriter *gzip.Writer
	valid        bool
}

// NewManager creates a new InfluxDB manager.
func NewManager(cfg config.InfluxConfig, log *slog.Logger) *Manager {
	if log == nil {
		log = slog.Default()
	}
	return &Manager{
		cfg: cfg,
		log: log,
	}
}

// Connect establishes a connection to InfluxDB. When the server cannot be
// reached, points go to the gzip line protocol backup file instead.
func (m *Manager) Connect(ctx context.Context) error {
	if !m.cfg.Enabled {
		return ErrDisabled
	}

	m.client = influxdb2.NewClientWithOptions(
		fmt.Sprintf("%s://%s:%s", m.cfg.Protocol, m.cfg.Host, m.cfg.Port),
		m.cfg.Token,
		influxdb2.DefaultOptions().
			SetBatchSize(100).
			SetFlushInterval(1000),
	)

	// validate client connection health
	running, err := m.client.Ping(ctx)
	if err != nil || !running {
		m.log.Warn("InfluxDB unreachable, writing to backup file", "backupPath", m.cfg.BackupPath, "error", err)
		return m.openBackup()
	}

	if err := m.setupBucket(ctx); err != nil {
		return err
	}
	m.createWriter()
	m.valid = true
	m.log.Info("InfluxDB client initialized", "bucket", m.cfg.Bucket)
	return nil
}

func (m *Manager) openBackup() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.backupWriter != nil {
		return nil
	}
	if m.cfg.BackupPath == "" {
		return errors.New("influx backup path not set")
	}

	file, err := os.OpenFile(m.cfg.BackupPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("error creating backup file: %w", err)
	}
	m.backupFile = file
	m.backupWriter = gzip.NewWriter(file)
	return nil
}

func (m *Manager) setupBucket(ctx context.Context) error {
	// ensure org exists
	org, err := m.client.OrganizationsAPI().FindOrganizationByName(ctx, m.cfg.Org)
	if err != nil {
		m.log.Info("Organization not found, creating", "org", m.cfg.Org)
		org, err = m.client.OrganizationsAPI().CreateOrganizationWithName(ctx, m.cfg.Org)
		if err != nil {
			return fmt.Errorf("error creating organization %s: %w", m.cfg.Org, err)
		}
	}

	if _, err = m.client.BucketsAPI().FindBucketByName(ctx, m.cfg.Bucket); err == nil {
		return nil
	}
	m.log.Info("Bucket not found, creating", "bucket", m.cfg.Bucket)

	rule := domain.RetentionRuleTypeExpire
	_, err = m.client.BucketsAPI().CreateBucketWithName(ctx, org, m.cfg.Bucket, domain.RetentionRule{
		Type:         &rule,
		EverySeconds: bucketRetentionSeconds,
	})
	if err != nil {
		return fmt.Errorf("error creating bucket %s: %w", m.cfg.Bucket, err)
	}
	return nil
}

func (m *Manager) createWriter() {
	m.writer = m.client.WriteAPI(m.cfg.Org, m.cfg.Bucket)

	errorsCh := m.writer.Errors()
	go func() {
		for writeErr := range errorsCh {
			m.log.Error("Error sending data to InfluxDB", "bucket", m.cfg.Bucket, "error", writeErr)
		}
	}()
}

// ConversionPoint builds the telemetry point for one conversion run. c may be
// nil for runs that failed before a conversion existed.
func ConversionPoint(c *core.Conversion, result string, duration time.Duration, at time.Time) *influxdb2_write.Point {
	p := influxdb2_write.NewPointWithMeasurement(ConversionMeasurement).
		AddTag("result", result).
		AddField("duration_ms", float64(duration)/float64(time.Millisecond)).
		SetTime(at)

	if c == nil {
		return p
	}
	return p.
		AddTag("mission", c.MissionName).
		AddTag("elevation_source", c.ElevationSource).
		AddField("waypoints", c.WaypointCount).
		AddField("pois", c.POICount).
		AddField("smoothed_points", c.SmoothedCount).
		AddField("path_length_m", c.PathLength).
		AddField("flight_time_s", c.FlightTime).
		AddField("degraded_batches", c.DegradedBatches)
}

// WriteConversion records one conversion run.
func (m *Manager) WriteConversion(ctx context.Context, c *core.Conversion, result string, duration time.Duration) error {
	return m.WritePoint(ctx, ConversionPoint(c, result, duration, time.Now()))
}

// WritePoint writes a point to InfluxDB or backup file.
func (m *Manager) WritePoint(_ context.Context, point *influxdb2_write.Point) error {
	if m.valid {
		m.writer.WritePoint(point)
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.backupWriter == nil {
		return errors.New("influxDB client not initialized and backup writer not available")
	}

	lineProtocol := influxdb2_write.PointToLineProtocol(point, time.Nanosecond)
	if _, err := m.backupWriter.Write([]byte(lineProtocol)); err != nil {
		return fmt.Errorf("error writing to InfluxDB backup file: %w", err)
	}
	return nil
}

// Valid reports whether points go to a live InfluxDB server.
func (m *Manager) Valid() bool {
	return m.valid
}

// Close flushes pending points and closes the backup file.
func (m *Manager) Close() error {
	if m.writer != nil {
		m.writer.Flush()
	}
	if m.client != nil {
		m.client.Close()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.backupWriter == nil {
		return nil
	}
	err := m.backupWriter.Close()
	if cerr := m.backupFile.Close(); err == nil {
		err = cerr
	}
	m.backupWriter = nil
	return err
}
