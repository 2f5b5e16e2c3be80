// pkg/core/point.go
package core

// AltMode tells what an altitude value is measured against before correction.
type AltMode int

const (
	// AltModeTakeoff means the altitude is relative to the mission takeoff point.
	AltModeTakeoff AltMode = 0
	// AltModeGround means the altitude is relative to the ground directly below the point.
	AltModeGround AltMode = 1
)

// LatLon is a bare horizontal position, used for elevation lookups.
type LatLon struct {
	Latitude  float64
	Longitude float64
}

// GeoPoint is a 3D geodetic position.
// Altitude is raw (as exported) until Corrected is set; afterwards it is MSL and
// GroundAlt holds the terrain elevation below the point.
type GeoPoint struct {
	Latitude  float64
	Longitude float64
	Altitude  float64
	AltMode   AltMode
	GroundAlt float64
	Corrected bool
}

// LatLon returns the horizontal part of the point.
func (p GeoPoint) LatLon() LatLon {
	return LatLon{Latitude: p.Latitude, Longitude: p.Longitude}
}

// AltitudeAboveGround returns the MSL altitude minus the ground elevation.
func (p GeoPoint) AltitudeAboveGround() float64 {
	return p.Altitude - p.GroundAlt
}

// CorrectAltitude converts a raw altitude to MSL. takeoffAlt is the ground
// elevation of the takeoff point and is used for AltModeTakeoff points.
// Calling it twice is a no-op.
func (p *GeoPoint) CorrectAltitude(takeoffAlt, groundAlt float64) {
	if p.Corrected {
		return
	}
	p.GroundAlt = groundAlt
	if p.AltMode == AltModeGround {
		p.Altitude += groundAlt
	} else {
		p.Altitude += takeoffAlt
	}
	p.Corrected = true
}
