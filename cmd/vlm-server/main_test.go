package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/virtualmission/vlm/internal/config"
)

func writeConfig(t *testing.T, extra string) string {
	t.Helper()
	t.Cleanup(viper.Reset)

	dir := t.TempDir()
	cfg := fmt.Sprintf(`{
		"logLevel": "debug",
		"logsDir": %q,
		"elevation": {"openUrl": "http://127.0.0.1:1"}
		%s
	}`, filepath.Join(dir, "logs"), extra)
	require.NoError(t, os.WriteFile(filepath.Join(dir, config.FileName), []byte(cfg), 0644))
	return dir
}

func TestSetup_Defaults(t *testing.T) {
	dir := writeConfig(t, "")
	config.SetDefaults()

	a, err := setup(context.Background(), dir, io.Discard)
	require.NoError(t, err)
	defer a.close(context.Background())

	assert.Nil(t, a.archive, "archive disabled by default")
	assert.Nil(t, a.telemetry)
	assert.Nil(t, a.otel)
	require.NotNil(t, a.logFile)

	srv := httptest.NewServer(a.server.Handler)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "HEALTH_OK\nUsing Open elevation API\n", string(body))

	logs, err := os.ReadFile(a.logFile.Name())
	require.NoError(t, err)
	assert.Contains(t, string(logs), "HTTP request")
	assert.Contains(t, string(logs), "request_id=")
}

func TestSetup_MemoryArchiveAndOTel(t *testing.T) {
	dir := writeConfig(t, `,
		"storage": {"type": "memory"},
		"otel": {"enabled": true},
		"graylog": {"address": "127.0.0.1:12201"},
		"server": {"listen": "127.0.0.1:0"}`)
	config.SetDefaults()

	a, err := setup(context.Background(), dir, io.Discard)
	require.NoError(t, err)
	defer a.close(context.Background())

	assert.NotNil(t, a.archive)
	require.NotNil(t, a.otel)
	assert.True(t, a.otel.Enabled())
	assert.Equal(t, "127.0.0.1:0", a.server.Addr)
	assert.NotNil(t, a.graylog)

	srv := httptest.NewServer(a.server.Handler)
	defer srv.Close()
	resp, err := http.Get(srv.URL + "/api/v1/conversions")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var list []json.RawMessage
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	assert.Empty(t, list)

	csv, err := os.ReadFile("../../internal/converter/testdata/three_waypoints.csv")
	require.NoError(t, err)
	body, err := json.Marshal(map[string]string{"0": string(csv), "1": "lake.csv"})
	require.NoError(t, err)
	conv, err := http.Post(srv.URL+"/convert", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer conv.Body.Close()
	require.Equal(t, http.StatusOK, conv.StatusCode)

	rm, err := a.otel.Collect(context.Background())
	require.NoError(t, err)
	var names []string
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			names = append(names, m.Name)
		}
	}
	assert.Contains(t, names, "vlm.conversions")
	assert.Contains(t, names, "vlm.conversion.duration")
}

func TestSetup_StatusMonitor(t *testing.T) {
	dir := writeConfig(t, `,
		"storage": {"type": "memory"},
		"monitor": {"interval": "10ms", "statusFile": "`+filepath.ToSlash(filepath.Join(t.TempDir(), "status.json"))+`"}`)
	config.SetDefaults()

	a, err := setup(context.Background(), dir, io.Discard)
	require.NoError(t, err)
	defer a.close(context.Background())

	srv := httptest.NewServer(a.server.Handler)
	defer srv.Close()
	resp, err := http.Get(srv.URL + "/api/v1/status")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var status map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
	assert.Equal(t, "Open", status["elevationSource"])

	a.monitor.Start()
	statusFile := viper.GetString("monitor.statusFile")
	assert.Eventually(t, func() bool {
		_, err := os.Stat(statusFile)
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSetup_UnknownStorage(t *testing.T) {
	dir := writeConfig(t, `, "storage": {"type": "tape"}`)
	config.SetDefaults()

	_, err := setup(context.Background(), dir, io.Discard)
	assert.ErrorContains(t, err, "unknown storage type")
}

func TestServe_GracefulShutdown(t *testing.T) {
	dir := writeConfig(t, "")
	config.SetDefaults()

	a, err := setup(context.Background(), dir, io.Discard)
	require.NoError(t, err)
	defer a.close(context.Background())

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.serve(ctx, l) }()

	url := "http://" + l.Addr().String() + "/healthz"
	require.Eventually(t, func() bool {
		resp, err := http.Get(url)
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestRun_BadFlag(t *testing.T) {
	t.Cleanup(viper.Reset)
	var stderr bytes.Buffer
	err := run(context.Background(), []string{"--bogus"}, &stderr)
	assert.ErrorContains(t, err, "unknown flag: --bogus")
	assert.Empty(t, stderr.String(), "main reports the returned error")
}
