package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cast"

	"github.com/virtualmission/vlm/internal/config"
	"github.com/virtualmission/vlm/internal/converter"
	"github.com/virtualmission/vlm/internal/monitor"
	"github.com/virtualmission/vlm/internal/storage"
	"github.com/virtualmission/vlm/internal/util"
	"github.com/virtualmission/vlm/pkg/core"
)

const (
	msgBadRequest     = "Bad request\n"
	msgBadRequestData = "Bad request data\n"

	contentTypeText = "text/plain; charset=utf-8"
	contentTypeJSON = "application/json; charset=utf-8"
	contentTypeKML  = "application/vnd.google-earth.kml+xml"

	defaultListLimit = 20
	maxListLimit     = 500
)

// Server exposes the converter and the conversion archive over HTTP.
type Server struct {
	conv    *converter.Converter
	archive storage.Backend
	monitor *monitor.Service
	log     *slog.Logger
	maxBody int64
}

// NewServer creates a Server. archive may be nil, which disables the archive endpoints.
func NewServer(conv *converter.Converter, archive storage.Backend, cfg config.ServerConfig, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		conv:    conv,
		archive: archive,
		log:     log,
		maxBody: cfg.MaxBodyBytes,
	}
}

// SetMonitor enables the status endpoint.
func (s *Server) SetMonitor(m *monitor.Service) {
	s.monitor = m
}

// ServeMux returns the route table.
func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /convert", s.convertHandler)
	mux.HandleFunc("GET /healthz", s.healthHandler)
	mux.HandleFunc("GET /api/v1/status", s.statusHandler)
	mux.HandleFunc("GET /api/v1/conversions", s.listConversions)
	mux.HandleFunc("GET /api/v1/conversions/{id}", s.getConversion)
	mux.HandleFunc("GET /api/v1/conversions/{id}/kml", s.getConversionKML)
	return mux
}

// Handler returns the route table wrapped in request logging.
func (s *Server) Handler() http.Handler {
	return withRequestID(s.log, s.ServeMux())
}

type convertResponse struct {
	KML     string `json:"kml"`
	Mission string `json:"mission"`
}

func (s *Server) convertHandler(w http.ResponseWriter, r *http.Request) {
	if s.maxBody > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.maxBody)
	}

	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.log.DebugContext(r.Context(), "Rejected convert request", "error", err)
		writeText(w, http.StatusBadRequest, msgBadRequest)
		return
	}
	csvText, okCSV := body["0"]
	filename, okName := body["1"]
	if !okCSV || !okName {
		writeText(w, http.StatusBadRequest, msgBadRequest)
		return
	}

	res, err := s.conv.Convert(r.Context(), converter.Request{
		Filename: cast.ToString(filename),
		CSV:      strings.NewReader(cast.ToString(csvText)),
		Settings: requestSettings(body),
	})
	if err != nil {
		writeText(w, http.StatusBadRequest, msgBadRequestData)
		return
	}

	writeJSON(w, http.StatusOK, convertResponse{
		KML:     string(res.Conversion.KML),
		Mission: res.Conversion.MissionName,
	})
}

// requestSettings reads the optional conversion parameters of a convert
// request. Values that do not parse are left for the converter defaults.
func requestSettings(body map[string]any) core.Settings {
	var s core.Settings
	if v, ok := floatField(body, "horizontalSpeed"); ok {
		s.DefaultSpeed = v
	} else if v, ok := floatField(body, "defspeed"); ok {
		s.DefaultSpeed = v
	}
	if v, ok := floatField(body, "maxWPDist"); ok {
		s.InfillDistance = v
	}
	s.DiagonalFOV = config.DroneFOV(cast.ToString(body["droneModel"]), body["customFOV"])
	return s
}

func floatField(body map[string]any, key string) (float64, bool) {
	v, ok := body[key]
	if !ok || v == nil {
		return 0, false
	}
	f, err := cast.ToFloat64E(v)
	if err != nil {
		return 0, false
	}
	return f, true
}

func (s *Server) healthHandler(w http.ResponseWriter, _ *http.Request) {
	writeText(w, http.StatusOK, fmt.Sprintf("HEALTH_OK\nUsing %s elevation API\n", s.conv.Source()))
}

func (s *Server) statusHandler(w http.ResponseWriter, _ *http.Request) {
	if s.monitor == nil {
		http.Error(w, "Status monitor disabled", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, s.monitor.Status())
}

type conversionSummary struct {
	ID              string        `json:"id"`
	Mission         string        `json:"mission"`
	CreatedAt       time.Time     `json:"createdAt"`
	ElevationSource string        `json:"elevationSource"`
	Waypoints       int           `json:"waypoints"`
	POIs            int           `json:"pois"`
	Points          int           `json:"points"`
	PathLength      float64       `json:"pathLength"`
	FlightTime      float64       `json:"flightTime"`
	DegradedBatches int           `json:"degradedBatches"`
	Settings        core.Settings `json:"settings"`
}

func summarize(c core.Conversion) conversionSummary {
	return conversionSummary{
		ID:              c.ID,
		Mission:         c.MissionName,
		CreatedAt:       c.CreatedAt,
		ElevationSource: c.ElevationSource,
		Waypoints:       c.WaypointCount,
		POIs:            c.POICount,
		Points:          c.SmoothedCount,
		PathLength:      c.PathLength,
		FlightTime:      c.FlightTime,
		DegradedBatches: c.DegradedBatches,
		Settings:        c.Settings,
	}
}

func (s *Server) listConversions(w http.ResponseWriter, r *http.Request) {
	if s.archive == nil {
		http.Error(w, "Conversion archive disabled", http.StatusServiceUnavailable)
		return
	}

	limit := defaultListLimit
	if q := r.URL.Query().Get("limit"); q != "" {
		n, err := cast.ToIntE(q)
		if err != nil || n <= 0 {
			http.Error(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		limit = min(n, maxListLimit)
	}

	conversions, err := s.archive.ListConversions(limit)
	if err != nil {
		s.log.ErrorContext(r.Context(), "Failed to list conversions", "error", err)
		http.Error(w, "Failed to list conversions", http.StatusInternalServerError)
		return
	}

	out := make([]conversionSummary, len(conversions))
	for i, c := range conversions {
		out[i] = summarize(c)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (*core.Conversion, bool) {
	if s.archive == nil {
		http.Error(w, "Conversion archive disabled", http.StatusServiceUnavailable)
		return nil, false
	}
	c, err := s.archive.GetConversion(r.PathValue("id"))
	if errors.Is(err, core.ErrConversionNotFound) {
		http.Error(w, "Conversion not found", http.StatusNotFound)
		return nil, false
	}
	if err != nil {
		s.log.ErrorContext(r.Context(), "Failed to load conversion", "id", r.PathValue("id"), "error", err)
		http.Error(w, "Failed to load conversion", http.StatusInternalServerError)
		return nil, false
	}
	return c, true
}

func (s *Server) getConversion(w http.ResponseWriter, r *http.Request) {
	c, ok := s.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, summarize(*c))
}

func (s *Server) getConversionKML(w http.ResponseWriter, r *http.Request) {
	c, ok := s.lookup(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", contentTypeKML)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.kml"`, util.SafeFileName(c.MissionName)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(c.KML)
}

func writeText(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", contentTypeText)
	w.WriteHeader(status)
	_, _ = io.WriteString(w, msg)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
