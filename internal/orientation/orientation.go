package orientation

import (
	"github.com/virtualmission/vlm/internal/geo"
	"github.com/virtualmission/vlm/pkg/core"
)

// Anchors returns the indexes of numbered points in path.
func Anchors(path []core.Waypoint) []int {
	var out []int
	for i, p := range path {
		if p.IsAnchor() {
			out = append(out, i)
		}
	}
	return out
}

// Interpolate writes heading and gimbal tilt onto the synthesized points of a
// smoothed path, in place. Between two anchors that share a POI the camera
// tracks the POI; otherwise heading and tilt blend by relative 3D distance to
// the two anchors, with heading taking the short way round.
// Anchor points keep their own orientation.
func Interpolate(path []core.Waypoint, pois *core.POITable) {
	anchors := Anchors(path)
	for a := 0; a+1 < len(anchors); a++ {
		wp, np := path[anchors[a]], path[anchors[a+1]]
		leg := newLeg(wp, np, pois)
		for i := anchors[a] + 1; i < anchors[a+1]; i++ {
			leg.orient(&path[i])
		}
	}
}

// leg holds what is constant between two consecutive anchors.
type leg struct {
	wp, np      core.Waypoint
	diffHeading float64
	diffTilt    float64

	poi       core.POI
	tracking  bool
	trackTilt bool
}

func newLeg(wp, np core.Waypoint, pois *core.POITable) leg {
	l := leg{
		wp:          wp,
		np:          np,
		diffHeading: geo.WrapDelta(np.Heading - wp.Heading),
		diffTilt:    np.GimbalTilt - wp.GimbalTilt,
	}
	if wp.HasPOI() && wp.POI == np.POI {
		if poi, ok := pois.Get(wp.POI); ok {
			l.poi = poi
			l.tracking = true
			l.trackTilt = wp.GimbalMode == core.GimbalExplicit && np.GimbalMode == core.GimbalExplicit
		}
	}
	return l
}

// weight is the fraction of the way from wp to np. When sp coincides with
// both anchors it holds wp's orientation.
func (l leg) weight(sp core.Waypoint) float64 {
	wd := geo.Distance3D(sp.GeoPoint, l.wp.GeoPoint)
	nd := geo.Distance3D(sp.GeoPoint, l.np.GeoPoint)
	if wd+nd == 0 {
		return 0
	}
	return wd / (wd + nd)
}

func (l leg) orient(sp *core.Waypoint) {
	w := l.weight(*sp)
	heading := geo.To360(l.wp.Heading + l.diffHeading*w)
	tilt := l.wp.GimbalTilt + l.diffTilt*w

	if l.tracking {
		if geo.Distance(sp.GeoPoint, l.poi.GeoPoint) > 0 {
			heading = geo.Bearing(sp.GeoPoint, l.poi.GeoPoint)
		}
		if l.trackTilt {
			if t, err := geo.TiltTo(sp.GeoPoint, l.poi.GeoPoint); err == nil {
				tilt = t
			}
		}
	}

	sp.Heading = heading
	sp.GimbalTilt = tilt
}
