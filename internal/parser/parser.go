package parser

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/virtualmission/vlm/internal/geo"
	"github.com/virtualmission/vlm/pkg/core"
)

var (
	// ErrMalformedHeader is returned when the first CSV row is not a waypoint export header.
	ErrMalformedHeader = errors.New("mismatching CSV header")
	// ErrMalformedRow is returned when a waypoint row holds an unparsable or
	// non-finite number, or a coordinate outside its valid range.
	ErrMalformedRow = errors.New("malformed waypoint row")
	// ErrNoWaypoints is returned when the file has a header but no waypoint rows.
	ErrNoWaypoints = errors.New("mission has no waypoints")
)

// FeetPerMeter converts imperial exports.
const FeetPerMeter = 3.28084

// column layout of a waypoint export
const (
	colLatitude    = 0
	colLongitude   = 1
	colAltitude    = 2
	colHeading     = 3
	colCurveSize   = 4
	colRotationDir = 5
	colGimbalMode  = 6
	colGimbalTilt  = 7
	colActionFirst = 8
	colActionLast  = 37
	colAltMode     = 38
	colSpeed       = 39
	colPOILat      = 40
	colPOILon      = 41
	colPOIAlt      = 42
	colPOIAltMode  = 43

	minColumns = 8
)

// parseIntFromFloat parses a string that may be an integer ("32") or float ("32.00") into int64.
// Some spreadsheet tools rewrite integer cells with a decimal part.
func parseIntFromFloat(s string) (int64, error) {
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if f != float64(int64(f)) {
		return 0, fmt.Errorf("parseIntFromFloat: %q is not a valid int64", s)
	}
	return int64(f), nil
}

// Parser turns waypoint CSV exports into missions.
type Parser struct {
	logger       *slog.Logger
	defaultSpeed float64
}

// NewParser creates a parser. defaultSpeed replaces a row speed of 0.
func NewParser(logger *slog.Logger, defaultSpeed float64) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	return &Parser{
		logger:       logger,
		defaultSpeed: defaultSpeed,
	}
}

// ParseMission reads a CSV export into an uncorrected mission named name.
func (p *Parser) ParseMission(r io.Reader, name string) (*core.Mission, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("empty file: %w", ErrMalformedHeader)
		}
		return nil, fmt.Errorf("error reading header: %w", errors.Join(ErrMalformedHeader, err))
	}
	metric, err := checkHeader(header)
	if err != nil {
		return nil, err
	}

	m := core.NewMission(name)
	m.Metric = metric

	line := 1
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, errors.Join(ErrMalformedRow, err))
		}
		if len(row) < minColumns {
			continue
		}

		wp, poi, err := parseRow(row)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		p.addWaypoint(m, wp, poi)
	}

	if len(m.Waypoints) == 0 {
		return nil, ErrNoWaypoints
	}

	p.logger.Debug("Parsed mission",
		"mission", m.Name,
		"waypoints", len(m.Waypoints),
		"pois", m.POIs.Len(),
		"metric", m.Metric)
	return m, nil
}

// addWaypoint applies unit, speed, gimbal and leg fixups against the previous waypoint.
func (p *Parser) addWaypoint(m *core.Mission, wp core.Waypoint, poi *core.POI) {
	if !m.Metric {
		wp.Altitude /= FeetPerMeter
		wp.CurveRadius /= FeetPerMeter
		if poi != nil {
			poi.Altitude /= FeetPerMeter
		}
	}
	if wp.Speed == 0 {
		wp.Speed = p.defaultSpeed
	}

	wp.GimbalTilt += core.TiltOffset
	if n := len(m.Waypoints); n > 0 {
		prev := m.Waypoints[n-1]
		wp.Distance = geo.Distance(prev.GeoPoint, wp.GeoPoint)
		wp.Bearing = geo.Bearing(prev.GeoPoint, wp.GeoPoint)
		if wp.GimbalMode == core.GimbalInherit {
			wp.GimbalTilt = prev.GimbalTilt
		}
	}

	if poi != nil {
		wp.POI = m.POIs.Intern(*poi)
	}
	wp.Num = len(m.Waypoints) + 1
	m.Waypoints = append(m.Waypoints, wp)
}

// checkHeader validates the export header and reports whether altitudes are metric.
func checkHeader(header []string) (bool, error) {
	if len(header) <= colRotationDir {
		return false, fmt.Errorf("%d columns: %w", len(header), ErrMalformedHeader)
	}
	first := strings.TrimPrefix(strings.TrimSpace(header[colLatitude]), "\ufeff")
	if first != "latitude" || strings.TrimSpace(header[colRotationDir]) != "rotationdir" {
		return false, ErrMalformedHeader
	}
	switch strings.TrimSpace(header[colAltitude]) {
	case "altitude(m)":
		return true, nil
	case "altitude(ft)":
		return false, nil
	default:
		return false, fmt.Errorf("unknown altitude unit %q: %w", header[colAltitude], ErrMalformedHeader)
	}
}

// rowReader pulls typed cells out of one row and remembers the first failure.
type rowReader struct {
	row []string
	err error
}

func (r *rowReader) float(col int) float64 {
	if r.err != nil {
		return 0
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(r.row[col]), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		r.err = fmt.Errorf("column %d %q: %w", col, r.row[col], ErrMalformedRow)
		return 0
	}
	return v
}

// coord reads a latitude (limit 90) or longitude (limit 180) in degrees.
func (r *rowReader) coord(col int, limit float64) float64 {
	v := r.float(col)
	if r.err == nil && math.Abs(v) > limit {
		r.err = fmt.Errorf("column %d %q out of range ±%v: %w", col, r.row[col], limit, ErrMalformedRow)
		return 0
	}
	return v
}

func (r *rowReader) int(col int) int {
	if r.err != nil {
		return 0
	}
	v, err := parseIntFromFloat(strings.TrimSpace(r.row[col]))
	if err != nil {
		r.err = fmt.Errorf("column %d %q: %w", col, r.row[col], ErrMalformedRow)
	}
	return int(v)
}

// parseRow converts the raw cells of one waypoint. Optional trailing column
// groups are read only when present.
func parseRow(row []string) (core.Waypoint, *core.POI, error) {
	r := &rowReader{row: row}
	wp := core.Waypoint{
		GeoPoint: core.GeoPoint{
			Latitude:  r.coord(colLatitude, 90),
			Longitude: r.coord(colLongitude, 180),
			Altitude:  r.float(colAltitude),
		},
		Heading:     r.float(colHeading),
		CurveRadius: r.float(colCurveSize),
		RotationDir: r.float(colRotationDir),
		GimbalMode:  core.GimbalMode(r.int(colGimbalMode)),
		GimbalTilt:  r.float(colGimbalTilt),
	}

	if len(row) > colActionLast {
		for col := colActionFirst; col < colActionLast; col += 2 {
			typ := r.int(col)
			if typ == -1 {
				break
			}
			wp.Actions = append(wp.Actions, core.Action{Type: typ, Param: r.int(col + 1)})
		}
	}
	if len(row) > colAltMode {
		wp.AltMode = core.AltMode(r.int(colAltMode))
	}
	if len(row) > colSpeed {
		wp.Speed = r.float(colSpeed)
	}

	var poi *core.POI
	if len(row) > colPOIAltMode {
		lat, lon := r.coord(colPOILat, 90), r.coord(colPOILon, 180)
		if lat != 0 || lon != 0 {
			poi = &core.POI{GeoPoint: core.GeoPoint{
				Latitude:  lat,
				Longitude: lon,
				Altitude:  r.float(colPOIAlt),
				AltMode:   core.AltMode(r.int(colPOIAltMode)),
			}}
		}
	}

	if r.err != nil {
		return core.Waypoint{}, nil, r.err
	}
	return wp, poi, nil
}
