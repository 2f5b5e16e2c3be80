package monitor

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"sync"
	"time"

	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/virtualmission/vlm/internal/cache"
)

// StatusMeasurement is the InfluxDB measurement status snapshots are written under.
const StatusMeasurement = "service_status"

const defaultInterval = time.Minute

// PendingReporter is implemented by archives that buffer writes.
type PendingReporter interface {
	Pending() int
}

// PointWriter receives status points.
type PointWriter interface {
	WritePoint(ctx context.Context, point *influxdb2_write.Point) error
}

// Status is a snapshot of the service state.
type Status struct {
	Time            time.Time `json:"time"`
	UptimeSeconds   float64   `json:"uptimeSeconds"`
	ElevationSource string    `json:"elevationSource"`
	CacheEntries    int       `json:"cacheEntries"`
	CacheHits       int       `json:"cacheHits"`
	CacheMisses     int       `json:"cacheMisses"`
	ArchivePending  int       `json:"archivePending"`
}

// Dependencies holds all dependencies for the monitor service. Every field
// but Logger is optional.
type Dependencies struct {
	Cache           *cache.ElevationCache
	Archive         PendingReporter
	Telemetry       PointWriter
	ElevationSource string
	// StatusFile is rewritten with the latest snapshot on every tick.
	StatusFile string
	Interval   time.Duration
	Logger     *slog.Logger
}

// Service manages status monitoring
type Service struct {
	deps      Dependencies
	started   time.Time
	isRunning bool
	mu        sync.RWMutex
	stopChan  chan struct{}
	done      chan struct{}
}

// NewService creates a new monitor service
func NewService(deps Dependencies) *Service {
	if deps.Interval <= 0 {
		deps.Interval = defaultInterval
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Service{
		deps:    deps,
		started: time.Now(),
	}
}

// IsRunning returns whether the status monitor is running
func (s *Service) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Status returns the current service status.
func (s *Service) Status() Status {
	now := time.Now()
	st := Status{
		Time:            now.UTC(),
		UptimeSeconds:   now.Sub(s.started).Seconds(),
		ElevationSource: s.deps.ElevationSource,
	}
	if s.deps.Cache != nil {
		st.CacheEntries = s.deps.Cache.Len()
		st.CacheHits, st.CacheMisses = s.deps.Cache.Stats()
	}
	if s.deps.Archive != nil {
		st.ArchivePending = s.deps.Archive.Pending()
	}
	return st
}

// Point converts a status snapshot to an InfluxDB point.
func Point(st Status) *influxdb2_write.Point {
	return influxdb2_write.NewPointWithMeasurement(StatusMeasurement).
		SetTime(st.Time).
		AddTag("elevation_source", st.ElevationSource).
		AddField("uptime_s", st.UptimeSeconds).
		AddField("cache_entries", st.CacheEntries).
		AddField("cache_hits", st.CacheHits).
		AddField("cache_misses", st.CacheMisses).
		AddField("archive_pending", st.ArchivePending)
}

// Report takes one snapshot and writes it to the status file and telemetry.
func (s *Service) Report(ctx context.Context) Status {
	st := s.Status()
	log := s.deps.Logger

	if s.deps.StatusFile != "" {
		data, err := json.MarshalIndent(st, "", "  ")
		if err == nil {
			err = os.WriteFile(s.deps.StatusFile, append(data, '\n'), 0644)
		}
		if err != nil {
			log.ErrorContext(ctx, "Error writing status file", "path", s.deps.StatusFile, "error", err)
		}
	}
	if s.deps.Telemetry != nil {
		if err := s.deps.Telemetry.WritePoint(ctx, Point(st)); err != nil {
			log.ErrorContext(ctx, "Error writing status point", "error", err)
		}
	}
	log.DebugContext(ctx, "Service status",
		"cacheEntries", st.CacheEntries,
		"cacheHits", st.CacheHits,
		"archivePending", st.ArchivePending)
	return st
}

// Start starts the status monitor goroutine
func (s *Service) Start() {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = true
	s.stopChan = make(chan struct{})
	s.done = make(chan struct{})
	stop, done := s.stopChan, s.done
	s.mu.Unlock()

	go func() {
		defer close(done)

		s.deps.Logger.Debug("Starting status monitor", "interval", s.deps.Interval)
		ticker := time.NewTicker(s.deps.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				s.Report(context.Background())
			}
		}
	}()
}

// Stop stops the status monitor and waits for it to exit.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = false
	close(s.stopChan)
	done := s.done
	s.mu.Unlock()
	<-done
}
