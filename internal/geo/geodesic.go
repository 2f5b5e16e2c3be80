package geo

import (
	"errors"
	"math"

	"github.com/tidwall/geodesic"
	"github.com/virtualmission/vlm/pkg/core"
)

// ErrDegenerateGeometry is returned when an angle is requested between coincident points.
var ErrDegenerateGeometry = errors.New("degenerate geometry: coincident points")

// inverse solves the WGS84 inverse geodesic problem from a to b.
func inverse(a, b core.GeoPoint) (dist, azi float64) {
	geodesic.WGS84.Inverse(a.Latitude, a.Longitude, b.Latitude, b.Longitude, &dist, &azi, nil)
	return dist, azi
}

// Distance returns the ellipsoidal surface distance from a to b in meters.
func Distance(a, b core.GeoPoint) float64 {
	d, _ := inverse(a, b)
	return d
}

// Bearing returns the initial azimuth from a to b in [0, 360).
func Bearing(a, b core.GeoPoint) float64 {
	_, azi := inverse(a, b)
	return To360(azi)
}

// Distance3D combines the surface distance with the altitude difference.
func Distance3D(a, b core.GeoPoint) float64 {
	d := Distance(a, b)
	dz := b.Altitude - a.Altitude
	return math.Sqrt(d*d + dz*dz)
}

// TiltTo returns the camera tilt needed at a to look at b, offset so that 90 is level.
func TiltTo(a, b core.GeoPoint) (float64, error) {
	d := Distance3D(a, b)
	if d == 0 {
		return 0, ErrDegenerateGeometry
	}
	ratio := (b.Altitude - a.Altitude) / d
	// rounding can push |ratio| a hair over 1 for vertical lines
	ratio = math.Max(-1, math.Min(1, ratio))
	return math.Asin(ratio)*180/math.Pi + core.TiltOffset, nil
}

// To360 wraps an angle into [0, 360).
func To360(x float64) float64 {
	r := math.Mod(x+360, 360)
	if r < 0 {
		r += 360
	}
	return r
}

// WrapDelta normalizes a difference of two [0, 360) headings into (-180, 180].
func WrapDelta(d float64) float64 {
	if d > 180 {
		d -= 360
	} else if d <= -180 {
		d += 360
	}
	return d
}
