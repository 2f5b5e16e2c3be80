package geo

import (
	"errors"
	"fmt"

	geom "github.com/peterstace/simplefeatures/geom"
	"github.com/virtualmission/vlm/pkg/core"
	"github.com/wroge/wgs84"
)

// GEO POINTS
// Archived paths are stored as EPSG:3857 so that both SQLite (no spatial awareness) and
// Postgres rows can be read back through the geometry's own Scan function.
// Geometry data is stored in the WKB format.

// ErrInvalidCoordinates is returned when the coordinates are invalid
var ErrInvalidCoordinates = errors.New("invalid coordinates provided")

var (
	toMercator   = wgs84.EPSG().Transform(4326, 3857)
	fromMercator = wgs84.EPSG().Transform(3857, 4326)
)

// Coords3857From4326 projects a longitude and latitude to web mercator
func Coords3857From4326(
	longitude float64,
	latitude float64,
) (
	x, y float64,
) {
	x, y, _ = toMercator(longitude, latitude, 0)
	return x, y
}

// PathLineString builds an XYZ line string in EPSG:3857 from a point sequence.
// Z carries the MSL altitude unchanged. A path with fewer than two distinct
// horizontal positions is not a line and yields an empty line string.
func PathLineString(points []core.GeoPoint) (geom.LineString, error) {
	if len(points) < 2 {
		return geom.LineString{}, nil
	}

	flat := make([]float64, 0, len(points)*3)
	moved := false
	for _, p := range points {
		x, y := Coords3857From4326(p.Longitude, p.Latitude)
		if len(flat) > 0 && (x != flat[0] || y != flat[1]) {
			moved = true
		}
		flat = append(flat, x, y, p.Altitude)
	}
	if !moved {
		return geom.LineString{}, nil
	}
	seq := geom.NewSequence(flat, geom.DimXYZ)
	ls, err := geom.NewLineString(seq)
	if err != nil {
		return geom.LineString{}, fmt.Errorf("%w: %v", ErrInvalidCoordinates, err)
	}
	return ls, nil
}

// PathFromLineString reverses PathLineString. Altitude modes and ground
// elevations are not part of the geometry and come back zeroed.
func PathFromLineString(ls geom.LineString) []core.GeoPoint {
	seq := ls.Coordinates()
	out := make([]core.GeoPoint, 0, seq.Length())
	for i := 0; i < seq.Length(); i++ {
		c := seq.Get(i)
		lon, lat, _ := fromMercator(c.X, c.Y, 0)
		out = append(out, core.GeoPoint{Latitude: lat, Longitude: lon, Altitude: c.Z})
	}
	return out
}
