package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/beevik/etree"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/virtualmission/vlm/internal/config"
)

// elevationServer answers Open-Elevation lookups with a flat 100 m terrain.
func elevationServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Locations []json.RawMessage `json:"locations"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		results := make([]string, len(req.Locations))
		for i := range results {
			results[i] = `{"elevation": 100}`
		}
		fmt.Fprintf(w, `{"results": [%s]}`, strings.Join(results, ","))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func setup(t *testing.T) (dir, csvPath string) {
	t.Helper()
	t.Cleanup(viper.Reset)

	dir = t.TempDir()
	srv := elevationServer(t)
	cfg := fmt.Sprintf(`{"logLevel": "error", "elevation": {"openUrl": %q}}`, srv.URL)
	require.NoError(t, os.WriteFile(filepath.Join(dir, config.FileName), []byte(cfg), 0644))

	data, err := os.ReadFile("../../internal/converter/testdata/three_waypoints.csv")
	require.NoError(t, err)
	csvPath = filepath.Join(dir, "Lake Loop.csv")
	require.NoError(t, os.WriteFile(csvPath, data, 0644))
	return dir, csvPath
}

func TestRun_DefaultOutput(t *testing.T) {
	dir, csvPath := setup(t)

	var stdout, stderr bytes.Buffer
	err := run(context.Background(), []string{"-c", dir, csvPath}, &stdout, &stderr)
	require.NoError(t, err, stderr.String())

	kmlPath := filepath.Join(dir, "Lake Loop.kml")
	assert.Contains(t, stdout.String(), "Lake Loop: 3 waypoints, 0 POIs, 3 path points")
	assert.Contains(t, stdout.String(), kmlPath)

	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromFile(kmlPath))
	assert.Equal(t, "Lake Loop", doc.FindElement("/kml/Document/name").Text())
	cam := doc.FindElement("//gx:FlyTo/Camera")
	require.NotNil(t, cam)
	assert.Equal(t, "130", cam.FindElement("altitude").Text())
}

func TestRun_FlagsOverrideConfig(t *testing.T) {
	dir, csvPath := setup(t)
	data, err := os.ReadFile(csvPath)
	require.NoError(t, err)
	takeoff := strings.ReplaceAll(string(data), ",-1,0,1,10,", ",-1,0,0,10,")
	require.NoError(t, os.WriteFile(csvPath, []byte(takeoff), 0644))
	out := filepath.Join(dir, "out", "custom.kml")
	require.NoError(t, os.MkdirAll(filepath.Dir(out), 0755))

	var stdout, stderr bytes.Buffer
	err = run(context.Background(), []string{
		"--config", dir,
		"-g", "500",
		"-i", "50",
		"-f", "55",
		csvPath, out,
	}, &stdout, &stderr)
	require.NoError(t, err, stderr.String())

	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromFile(out))
	flys := doc.FindElements("//gx:FlyTo")
	assert.Greater(t, len(flys), 3, "short interval adds infill points")
	assert.Equal(t, "530", flys[0].FindElement("Camera/altitude").Text(), "takeoff override")
}

func TestRun_Errors(t *testing.T) {
	dir, csvPath := setup(t)

	tests := []struct {
		name string
		args []string
	}{
		{"no arguments", []string{"-c", dir}},
		{"too many arguments", []string{"-c", dir, csvPath, "a.kml", "b.kml"}},
		{"missing file", []string{"-c", dir, filepath.Join(dir, "nope.csv")}},
		{"unknown flag", []string{"--nope", csvPath}},
		{"bad bezier", []string{"-c", dir, "-b", "0", csvPath}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := run(context.Background(), tt.args, io.Discard, io.Discard)
			assert.Error(t, err)
		})
	}
}

func TestRun_BadCSV(t *testing.T) {
	dir, _ := setup(t)
	bad := filepath.Join(dir, "bad.csv")
	require.NoError(t, os.WriteFile(bad, []byte("foo,bar\n"), 0644))

	err := run(context.Background(), []string{"-c", dir, bad}, io.Discard, io.Discard)
	require.Error(t, err)
	_, statErr := os.Stat(filepath.Join(dir, "bad.kml"))
	assert.True(t, os.IsNotExist(statErr))
}
