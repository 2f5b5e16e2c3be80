package render

import (
	"math"

	"github.com/virtualmission/vlm/pkg/core"
)

const (
	metersPerArcMinute = 1852.0
	// meters per degree of latitude
	altitudeSkew = 111120.0
	lookAtTilt   = 70.0
)

// LookAt is the overview camera framing the whole mission.
type LookAt struct {
	Latitude  float64
	Longitude float64
	Altitude  float64
	Tilt      float64
	Range     float64
}

// Overview frames waypoints for a camera with the given horizontal FOV.
// The wider of the longitude span and the altitude-skewed latitude span
// decides the range.
func Overview(waypoints []core.Waypoint, hfov float64) LookAt {
	if len(waypoints) == 0 {
		return LookAt{Tilt: lookAtTilt}
	}

	var sumAlt float64
	for _, w := range waypoints {
		sumAlt += w.Altitude
	}
	avgAlt := sumAlt / float64(len(waypoints))

	skew := altitudeSkew * math.Cos(rad(-20))
	minLat, minLon, maxLon := math.Inf(1), math.Inf(1), math.Inf(-1)
	maxAng := math.Inf(-1)
	for _, w := range waypoints {
		minLat = math.Min(minLat, w.Latitude)
		minLon = math.Min(minLon, w.Longitude)
		maxLon = math.Max(maxLon, w.Longitude)
		maxAng = math.Max(maxAng, w.Latitude+(w.Altitude-avgAlt)/skew)
	}

	lonSpan := math.Abs(maxLon - minLon)
	latSpan := math.Abs(maxAng - minLat)
	lens := 2 * math.Sin(rad(hfov)/2)

	var rng float64
	if lonSpan > latSpan {
		rng = lonSpan * 60 * metersPerArcMinute / lens * 1.2
	} else {
		rng = latSpan * 60 * metersPerArcMinute / lens * 16 / 9
	}

	return LookAt{
		Latitude:  (minLat + maxAng) / 2,
		Longitude: (minLon + maxLon) / 2,
		Altitude:  avgAlt,
		Tilt:      lookAtTilt,
		Range:     rng,
	}
}
