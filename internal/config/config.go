package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
	"github.com/virtualmission/vlm/internal/smoothing"
	"github.com/virtualmission/vlm/pkg/core"
)

// FileName is the configuration file looked up in the config directory.
const FileName = "vlm.cfg.json"

const (
	GoogleElevationURL = "https://maps.googleapis.com/maps/api/elevation/json"
	OpenElevationURL   = "https://api.open-elevation.com/api/v1/lookup"
)

// MemoryConfig holds in-memory storage backend settings
type MemoryConfig struct {
	OutputDir      string `json:"outputDir" mapstructure:"outputDir"`
	CompressOutput bool   `json:"compressOutput" mapstructure:"compressOutput"`
	Keep           int    `json:"keep" mapstructure:"keep"`
}

// SQLiteConfig holds SQLite storage backend settings
type SQLiteConfig struct {
	Path         string        `json:"path" mapstructure:"path"`
	DumpPath     string        `json:"dumpPath" mapstructure:"dumpPath"`
	DumpInterval time.Duration `json:"dumpInterval" mapstructure:"dumpInterval"`
}

// StorageConfig selects and configures the conversion archive.
type StorageConfig struct {
	Type          string       `json:"type" mapstructure:"type"`
	QueueCapacity int          `json:"queueCapacity" mapstructure:"queueCapacity"`
	Memory        MemoryConfig `json:"memory" mapstructure:"memory"`
	SQLite        SQLiteConfig `json:"sqlite" mapstructure:"sqlite"`
}

// ElevationConfig configures the ground elevation lookup.
type ElevationConfig struct {
	GoogleKey     string
	GoogleURL     string
	OpenURL       string
	MaxPerRequest int
	Timeout       time.Duration
	CacheSize     int
}

// ServerConfig configures the HTTP service.
type ServerConfig struct {
	Listen       string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	MaxBodyBytes int64
}

// InfluxConfig configures conversion telemetry.
type InfluxConfig struct {
	Enabled  bool
	Protocol string
	Host     string
	Port     string
	Token    string
	Org      string
	Bucket   string
	// BackupPath receives gzipped line protocol when InfluxDB is unreachable.
	BackupPath string
}

// OTelConfig configures the OpenTelemetry log provider.
type OTelConfig struct {
	Enabled      bool
	ServiceName  string
	BatchTimeout time.Duration
	Endpoint     string
	Insecure     bool
}

// MonitorConfig holds status monitor settings.
type MonitorConfig struct {
	Interval   time.Duration
	StatusFile string
}

// SetDefaults registers default values and environment bindings.
func SetDefaults() {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./vlmlogs")
	viper.SetDefault("graylog.address", "")

	viper.SetDefault("mission.defaultSpeed", 10.0)
	viper.SetDefault("mission.fov", 85.0)
	viper.SetDefault("mission.minCurve", 5.0)
	viper.SetDefault("mission.bezierPoints", 5)
	viper.SetDefault("mission.infillDistance", 1000.0)

	viper.SetDefault("elevation.googleKey", "")
	viper.SetDefault("elevation.googleUrl", GoogleElevationURL)
	viper.SetDefault("elevation.openUrl", OpenElevationURL)
	viper.SetDefault("elevation.maxPerRequest", 100)
	viper.SetDefault("elevation.timeout", "30s")
	viper.SetDefault("elevation.cacheSize", 4096)
	_ = viper.BindEnv("elevation.googleKey", "GOOGLEKEY")
	_ = viper.BindEnv("elevation.openUrl", "OPENAPIURL")

	viper.SetDefault("server.listen", ":5000")
	viper.SetDefault("server.readTimeout", "30s")
	viper.SetDefault("server.writeTimeout", "5m")
	viper.SetDefault("server.maxBodyBytes", 8<<20)

	viper.SetDefault("storage.type", "none")
	viper.SetDefault("storage.queueCapacity", 1000)
	viper.SetDefault("storage.memory.outputDir", "")
	viper.SetDefault("storage.memory.compressOutput", false)
	viper.SetDefault("storage.memory.keep", 100)
	viper.SetDefault("storage.sqlite.path", "")
	viper.SetDefault("storage.sqlite.dumpPath", "./vlm_archive.db")
	viper.SetDefault("storage.sqlite.dumpInterval", "3m")

	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", "5432")
	viper.SetDefault("db.username", "postgres")
	viper.SetDefault("db.password", "postgres")
	viper.SetDefault("db.database", "vlm")
	viper.SetDefault("db.sslmode", "disable")

	viper.SetDefault("influx.enabled", false)
	viper.SetDefault("influx.protocol", "http")
	viper.SetDefault("influx.host", "localhost")
	viper.SetDefault("influx.port", "8086")
	viper.SetDefault("influx.token", "")
	viper.SetDefault("influx.org", "vlm")
	viper.SetDefault("influx.bucket", "vlm-conversions")
	viper.SetDefault("influx.backupPath", "./vlm_influx_backup.lp.gz")

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.serviceName", "vlm")
	viper.SetDefault("otel.batchTimeout", "5s")
	viper.SetDefault("otel.endpoint", "")
	viper.SetDefault("otel.insecure", true)

	viper.SetDefault("monitor.interval", "1m")
	viper.SetDefault("monitor.statusFile", "")

	setDroneDefaults()
}

// Load sets default values and reads the JSON config file from configDir.
// Defaults stay in effect when the file is missing; the error says so.
func Load(configDir string) error {
	SetDefaults()

	viper.SetConfigName(FileName)
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	err := viper.ReadInConfig()
	if err != nil {
		return fmt.Errorf("error reading config file: %w", err)
	}

	return nil
}

// MissionSettings returns the configured conversion defaults.
func MissionSettings() core.Settings {
	s := core.Settings{
		DefaultSpeed:   viper.GetFloat64("mission.defaultSpeed"),
		DiagonalFOV:    viper.GetFloat64("mission.fov"),
		MinCurve:       viper.GetFloat64("mission.minCurve"),
		BezierPoints:   viper.GetInt("mission.bezierPoints"),
		InfillDistance: viper.GetFloat64("mission.infillDistance"),
	}
	if viper.IsSet("mission.takeoffAltitude") {
		t := viper.GetFloat64("mission.takeoffAltitude")
		s.TakeoffAltitude = &t
	}
	return s
}

// Smoothing returns the smoothing parameters carried by s.
func Smoothing(s core.Settings) smoothing.Config {
	return smoothing.Config{
		MinCurve:       s.MinCurve,
		BezierPoints:   s.BezierPoints,
		InfillDistance: s.InfillDistance,
	}
}

// Elevation returns the elevation lookup configuration.
func Elevation() ElevationConfig {
	return ElevationConfig{
		GoogleKey:     viper.GetString("elevation.googleKey"),
		GoogleURL:     viper.GetString("elevation.googleUrl"),
		OpenURL:       viper.GetString("elevation.openUrl"),
		MaxPerRequest: viper.GetInt("elevation.maxPerRequest"),
		Timeout:       viper.GetDuration("elevation.timeout"),
		CacheSize:     viper.GetInt("elevation.cacheSize"),
	}
}

// Server returns the HTTP service configuration.
func Server() ServerConfig {
	return ServerConfig{
		Listen:       viper.GetString("server.listen"),
		ReadTimeout:  viper.GetDuration("server.readTimeout"),
		WriteTimeout: viper.GetDuration("server.writeTimeout"),
		MaxBodyBytes: viper.GetInt64("server.maxBodyBytes"),
	}
}

// Storage returns the archive configuration.
func Storage() StorageConfig {
	return StorageConfig{
		Type:          viper.GetString("storage.type"),
		QueueCapacity: viper.GetInt("storage.queueCapacity"),
		Memory: MemoryConfig{
			OutputDir:      viper.GetString("storage.memory.outputDir"),
			CompressOutput: viper.GetBool("storage.memory.compressOutput"),
			Keep:           viper.GetInt("storage.memory.keep"),
		},
		SQLite: SQLiteConfig{
			Path:         viper.GetString("storage.sqlite.path"),
			DumpPath:     viper.GetString("storage.sqlite.dumpPath"),
			DumpInterval: viper.GetDuration("storage.sqlite.dumpInterval"),
		},
	}
}

// Influx returns the telemetry configuration.
func Influx() InfluxConfig {
	return InfluxConfig{
		Enabled:    viper.GetBool("influx.enabled"),
		Protocol:   viper.GetString("influx.protocol"),
		Host:       viper.GetString("influx.host"),
		Port:       viper.GetString("influx.port"),
		Token:      viper.GetString("influx.token"),
		Org:        viper.GetString("influx.org"),
		Bucket:     viper.GetString("influx.bucket"),
		BackupPath: viper.GetString("influx.backupPath"),
	}
}

// OTel returns the OpenTelemetry configuration.
func OTel() OTelConfig {
	return OTelConfig{
		Enabled:      viper.GetBool("otel.enabled"),
		ServiceName:  viper.GetString("otel.serviceName"),
		BatchTimeout: viper.GetDuration("otel.batchTimeout"),
		Endpoint:     viper.GetString("otel.endpoint"),
		Insecure:     viper.GetBool("otel.insecure"),
	}
}

// Monitor returns the status monitor configuration.
func Monitor() MonitorConfig {
	return MonitorConfig{
		Interval:   viper.GetDuration("monitor.interval"),
		StatusFile: viper.GetString("monitor.statusFile"),
	}
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetBool returns a bool config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}
