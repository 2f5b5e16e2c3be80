// pkg/core/waypoint.go
package core

// GimbalMode controls where a waypoint's camera tilt comes from.
type GimbalMode int

const (
	// GimbalInherit reuses the previous waypoint's tilt.
	GimbalInherit GimbalMode = 0
	// GimbalExplicit uses the row's tilt, or tracks the POI when one is set.
	GimbalExplicit GimbalMode = 1
)

// TiltOffset is added to gimbal pitch so that 90 means a level camera.
const TiltOffset = 90.0

// Action is one (type, param) pair from a waypoint's action list.
type Action struct {
	Type  int
	Param int
}

// Waypoint is a mission control point, or a point derived from one by smoothing.
// Num is the 1-based sequence number of an original waypoint; synthesized
// points have Num == 0.
type Waypoint struct {
	GeoPoint

	Heading     float64
	CurveRadius float64
	RotationDir float64
	GimbalMode  GimbalMode
	GimbalTilt  float64
	Speed       float64

	Num     int
	Actions []Action
	POI     POIRef

	// Distance and Bearing describe the leg from the previous point.
	Distance float64
	Bearing  float64
	// LegTime is only filled on smoothed points.
	LegTime float64
}

// IsAnchor reports whether the point is an original numbered waypoint.
func (w Waypoint) IsAnchor() bool {
	return w.Num != 0
}

// HasPOI reports whether the waypoint references a point of interest.
func (w Waypoint) HasPOI() bool {
	return w.POI != NoPOI
}

// Copy derives a new point from w. A full copy keeps the action list and
// sequence number; a thin copy clears both so the result is a synthesized point.
func (w Waypoint) Copy(full bool) Waypoint {
	c := w
	c.Actions = nil
	if full {
		if w.Actions != nil {
			c.Actions = make([]Action, len(w.Actions))
			copy(c.Actions, w.Actions)
		}
	} else {
		c.Num = 0
	}
	return c
}
