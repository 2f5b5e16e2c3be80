package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/virtualmission/vlm/internal/config"
	"github.com/virtualmission/vlm/internal/converter"
	"github.com/virtualmission/vlm/internal/elevation"
	"github.com/virtualmission/vlm/internal/monitor"
	"github.com/virtualmission/vlm/internal/render"
	"github.com/virtualmission/vlm/internal/storage"
	"github.com/virtualmission/vlm/internal/storage/memory"
	"github.com/virtualmission/vlm/pkg/core"
)

type flatLookup struct{ name string }

func (l flatLookup) Name() string { return l.name }

func (l flatLookup) Elevations(_ context.Context, points []core.LatLon) ([]float64, error) {
	out := make([]float64, len(points))
	for i := range out {
		out[i] = 100
	}
	return out, nil
}

func missionCSV(t *testing.T) string {
	t.Helper()
	data, err := os.ReadFile("../converter/testdata/three_waypoints.csv")
	require.NoError(t, err)
	return string(data)
}

func newTestServer(t *testing.T, archive storage.Backend) *httptest.Server {
	t.Helper()
	config.SetDefaults()

	conv, err := converter.New(converter.Dependencies{
		Corrector: elevation.NewCorrector(flatLookup{name: "Open"}),
		Archive:   archive,
	}, config.MissionSettings())
	require.NoError(t, err)

	srv := httptest.NewServer(NewServer(conv, archive, config.ServerConfig{MaxBodyBytes: 1 << 20}, nil).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(b))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	var buf bytes.Buffer
	_, err := buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	return buf.String()
}

func TestConvert(t *testing.T) {
	srv := newTestServer(t, nil)

	resp := postJSON(t, srv.URL+"/convert", map[string]any{
		"0":          missionCSV(t),
		"1":          "Lake Loop.csv",
		"droneModel": "ma",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, contentTypeJSON, resp.Header.Get("Content-Type"))
	assert.NotEmpty(t, resp.Header.Get(RequestIDHeader))

	var out convertResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "Lake Loop", out.Mission)
	assert.True(t, strings.HasPrefix(out.KML, "<?xml"))
	assert.Contains(t, out.KML, "<name>Lake Loop</name>")
	// ma is the 85 degree drone
	assert.Contains(t, out.KML, "<gx:horizFov>"+strconv.FormatFloat(render.HFOV(85), 'f', -1, 64)+"</gx:horizFov>")
}

func TestConvert_BadRequest(t *testing.T) {
	srv := newTestServer(t, nil)

	tests := []struct {
		name string
		body string
	}{
		{"not json", "this is not json"},
		{"missing csv", `{"1": "m.csv"}`},
		{"missing name", `{"0": "latitude"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Post(srv.URL+"/convert", "application/json", strings.NewReader(tt.body))
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.Equal(t, "Bad request\n", readBody(t, resp))
		})
	}
}

func TestConvert_BadRequestData(t *testing.T) {
	srv := newTestServer(t, nil)

	tests := []struct {
		name string
		body map[string]any
	}{
		{"bad header", map[string]any{"0": "a,b,c\n1,2,3\n", "1": "m.csv"}},
		{"negative infill", map[string]any{"0": missionCSV(t), "1": "m.csv", "maxWPDist": -5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := postJSON(t, srv.URL+"/convert", tt.body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.Equal(t, contentTypeText, resp.Header.Get("Content-Type"))
			assert.Equal(t, "Bad request data\n", readBody(t, resp))
		})
	}
}

func TestConvert_MethodNotAllowed(t *testing.T) {
	srv := newTestServer(t, nil)
	resp, err := http.Get(srv.URL + "/convert")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestConvert_BodyTooLarge(t *testing.T) {
	config.SetDefaults()
	conv, err := converter.New(converter.Dependencies{
		Corrector: elevation.NewCorrector(flatLookup{name: "Open"}),
	}, config.MissionSettings())
	require.NoError(t, err)
	srv := httptest.NewServer(NewServer(conv, nil, config.ServerConfig{MaxBodyBytes: 64}, nil).Handler())
	defer srv.Close()

	resp := postJSON(t, srv.URL+"/convert", map[string]any{"0": missionCSV(t), "1": "m.csv"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRequestSettings(t *testing.T) {
	config.SetDefaults()

	tests := []struct {
		name string
		body map[string]any
		want core.Settings
	}{
		{
			name: "defaults",
			body: map[string]any{},
			want: core.Settings{DiagonalFOV: 55},
		},
		{
			name: "horizontal speed wins",
			body: map[string]any{"horizontalSpeed": 7.5, "defspeed": 3},
			want: core.Settings{DefaultSpeed: 7.5, DiagonalFOV: 55},
		},
		{
			name: "defspeed fallback on bad horizontal speed",
			body: map[string]any{"horizontalSpeed": "fast", "defspeed": "4"},
			want: core.Settings{DefaultSpeed: 4, DiagonalFOV: 55},
		},
		{
			name: "interval and drone",
			body: map[string]any{"maxWPDist": "250", "droneModel": "spark"},
			want: core.Settings{InfillDistance: 250, DiagonalFOV: 81.9},
		},
		{
			name: "custom drone",
			body: map[string]any{"droneModel": "custom", "customFOV": "70"},
			want: core.Settings{DiagonalFOV: 70},
		},
		{
			name: "unknown drone",
			body: map[string]any{"droneModel": "x9"},
			want: core.Settings{DiagonalFOV: 55},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, requestSettings(tt.body))
		})
	}
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t, nil)

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "HEALTH_OK\nUsing Open elevation API\n", readBody(t, resp))
}

func TestRequestIDPassthrough(t *testing.T) {
	srv := newTestServer(t, nil)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/healthz", nil)
	require.NoError(t, err)
	req.Header.Set(RequestIDHeader, "abc-123")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "abc-123", resp.Header.Get(RequestIDHeader))
}

func TestConversionArchive(t *testing.T) {
	archive := memory.New(config.MemoryConfig{}, nil)
	srv := newTestServer(t, archive)

	for _, name := range []string{"first.csv", "second.csv"} {
		resp := postJSON(t, srv.URL+"/convert", map[string]any{"0": missionCSV(t), "1": name})
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}

	resp, err := http.Get(srv.URL + "/api/v1/conversions?limit=1")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var list []conversionSummary
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	require.Len(t, list, 1)
	assert.Equal(t, "second", list[0].Mission)
	assert.Equal(t, 3, list[0].Waypoints)
	assert.Equal(t, "Open", list[0].ElevationSource)

	resp, err = http.Get(srv.URL + "/api/v1/conversions/" + list[0].ID)
	require.NoError(t, err)
	defer resp.Body.Close()
	var one conversionSummary
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&one))
	assert.Equal(t, list[0].ID, one.ID)

	resp, err = http.Get(srv.URL + "/api/v1/conversions/" + list[0].ID + "/kml")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, contentTypeKML, resp.Header.Get("Content-Type"))
	assert.Equal(t, `attachment; filename="second.kml"`, resp.Header.Get("Content-Disposition"))
	assert.Contains(t, readBody(t, resp), "<name>second</name>")
}

func TestConversionArchive_Errors(t *testing.T) {
	archived := newTestServer(t, memory.New(config.MemoryConfig{}, nil))
	disabled := newTestServer(t, nil)

	tests := []struct {
		name   string
		url    string
		status int
	}{
		{"unknown id", archived.URL + "/api/v1/conversions/nope", http.StatusNotFound},
		{"unknown kml", archived.URL + "/api/v1/conversions/nope/kml", http.StatusNotFound},
		{"bad limit", archived.URL + "/api/v1/conversions?limit=abc", http.StatusBadRequest},
		{"zero limit", archived.URL + "/api/v1/conversions?limit=0", http.StatusBadRequest},
		{"disabled list", disabled.URL + "/api/v1/conversions", http.StatusServiceUnavailable},
		{"disabled get", disabled.URL + "/api/v1/conversions/x", http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Get(tt.url)
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
}

func TestStatus(t *testing.T) {
	config.SetDefaults()
	conv, err := converter.New(converter.Dependencies{
		Corrector: elevation.NewCorrector(flatLookup{name: "Open"}),
	}, config.MissionSettings())
	require.NoError(t, err)

	api := NewServer(conv, nil, config.ServerConfig{}, nil)
	srv := httptest.NewServer(api.Handler())
	t.Cleanup(srv.Close)

	resp, err := http.Get(srv.URL + "/api/v1/status")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	api.SetMonitor(monitor.NewService(monitor.Dependencies{ElevationSource: conv.Source()}))
	resp, err = http.Get(srv.URL + "/api/v1/status")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var st monitor.Status
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&st))
	assert.Equal(t, "Open", st.ElevationSource)
}
