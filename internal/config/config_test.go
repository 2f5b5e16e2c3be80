package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_WithValidConfigFile(t *testing.T) {
	t.Cleanup(viper.Reset)

	dir := t.TempDir()
	cfg := `{
		"logLevel": "debug",
		"mission": { "defaultSpeed": 7.5, "takeoffAltitude": 420 },
		"storage": { "type": "sqlite", "sqlite": { "dumpInterval": "1m" } },
		"drones": { "mini": 82.1 }
	}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(cfg), 0644))

	err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "debug", viper.GetString("logLevel"))

	s := MissionSettings()
	assert.Equal(t, 7.5, s.DefaultSpeed)
	require.NotNil(t, s.TakeoffAltitude)
	assert.Equal(t, 420.0, *s.TakeoffAltitude)

	st := Storage()
	assert.Equal(t, "sqlite", st.Type)
	assert.Equal(t, time.Minute, st.SQLite.DumpInterval)

	assert.Equal(t, 82.1, DroneFOV("mini", nil))
	assert.Equal(t, 55.0, DroneFOV("m2phq", nil), "file entries extend the built-in table")
}

func TestLoad_DefaultValues(t *testing.T) {
	t.Cleanup(viper.Reset)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(`{}`), 0644))

	err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "info", viper.GetString("logLevel"))
	assert.Equal(t, "./vlmlogs", viper.GetString("logsDir"))

	s := MissionSettings()
	assert.Equal(t, 10.0, s.DefaultSpeed)
	assert.Equal(t, 85.0, s.DiagonalFOV)
	assert.Nil(t, s.TakeoffAltitude)

	sm := Smoothing(s)
	assert.Equal(t, 5.0, sm.MinCurve)
	assert.Equal(t, 5, sm.BezierPoints)
	assert.Equal(t, 1000.0, sm.InfillDistance)
	assert.NoError(t, sm.Validate())

	e := Elevation()
	assert.Equal(t, "", e.GoogleKey)
	assert.Equal(t, GoogleElevationURL, e.GoogleURL)
	assert.Equal(t, OpenElevationURL, e.OpenURL)
	assert.Equal(t, 100, e.MaxPerRequest)
	assert.Equal(t, 30*time.Second, e.Timeout)
	assert.Equal(t, 4096, e.CacheSize)

	srv := Server()
	assert.Equal(t, ":5000", srv.Listen)
	assert.Equal(t, int64(8<<20), srv.MaxBodyBytes)

	st := Storage()
	assert.Equal(t, "none", st.Type)
	assert.Equal(t, 100, st.Memory.Keep)
	assert.Equal(t, 3*time.Minute, st.SQLite.DumpInterval)

	in := Influx()
	assert.False(t, in.Enabled)
	assert.Equal(t, "vlm-conversions", in.Bucket)

	assert.Equal(t, "localhost", GetString("db.host"))
	assert.Equal(t, "disable", GetString("db.sslmode"))
	assert.False(t, GetBool("otel.enabled"))
	assert.Equal(t, "vlm", GetString("otel.serviceName"))

	o := OTel()
	assert.False(t, o.Enabled)
	assert.Equal(t, "vlm", o.ServiceName)
	assert.Equal(t, 5*time.Second, o.BatchTimeout)
	assert.True(t, o.Insecure)

	assert.Equal(t, MonitorConfig{Interval: time.Minute}, Monitor())
}

func TestLoad_MissingFileKeepsDefaults(t *testing.T) {
	t.Cleanup(viper.Reset)

	err := Load("/nonexistent/path")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading config file")
	assert.Equal(t, 10.0, MissionSettings().DefaultSpeed)
}

func TestEnvironmentBindings(t *testing.T) {
	t.Cleanup(viper.Reset)
	t.Setenv("GOOGLEKEY", "abc123")
	t.Setenv("OPENAPIURL", "http://elevation.local/api/v1/lookup")

	SetDefaults()
	e := Elevation()
	assert.Equal(t, "abc123", e.GoogleKey)
	assert.Equal(t, "http://elevation.local/api/v1/lookup", e.OpenURL)
}

func TestEnvironmentBindings_EmptyOpenURLKeepsDefault(t *testing.T) {
	t.Cleanup(viper.Reset)
	t.Setenv("OPENAPIURL", "")

	SetDefaults()
	assert.Equal(t, OpenElevationURL, Elevation().OpenURL)
}

func TestDroneFOV(t *testing.T) {
	t.Cleanup(viper.Reset)
	SetDefaults()

	tests := []struct {
		name   string
		model  string
		custom any
		want   float64
	}{
		{"default model", "m2phq", nil, 55},
		{"mavic air", "ma", nil, 85},
		{"spark", "spark", nil, 81.9},
		{"phantom 4 pro", "p4p", nil, 84},
		{"upper case", "MP", nil, 78.8},
		{"unknown falls back", "x9", nil, 55},
		{"empty falls back", "", nil, 55},
		{"custom number", "custom", 90.0, 90},
		{"custom string", "custom", "72.5", 72.5},
		{"custom garbage", "custom", "wide", 55},
		{"custom missing", "custom", nil, 55},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DroneFOV(tt.model, tt.custom))
		})
	}
}
