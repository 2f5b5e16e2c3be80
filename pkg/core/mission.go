// pkg/core/mission.go
package core

import (
	"errors"
	"time"
)

// Mission is an ingested waypoint mission.
type Mission struct {
	Name      string
	Waypoints []Waypoint
	POIs      *POITable
	// Metric is false when the source file reported altitudes in feet.
	Metric bool
}

// NewMission creates an empty mission with an initialized POI table.
func NewMission(name string) *Mission {
	return &Mission{
		Name:   name,
		POIs:   NewPOITable(),
		Metric: true,
	}
}

// POI resolves a waypoint's POI reference against the mission table.
func (m *Mission) POI(ref POIRef) (POI, bool) {
	return m.POIs.Get(ref)
}

// LatLons returns the horizontal positions of all waypoints followed by all
// POIs, which is the order elevation lookups are issued in.
func (m *Mission) LatLons() []LatLon {
	out := make([]LatLon, 0, len(m.Waypoints)+m.POIs.Len())
	for _, wp := range m.Waypoints {
		out = append(out, wp.LatLon())
	}
	for _, p := range m.POIs.All() {
		out = append(out, p.LatLon())
	}
	return out
}

// Settings are the conversion parameters a mission was processed with.
type Settings struct {
	DefaultSpeed    float64  `json:"defaultSpeed"`
	DiagonalFOV     float64  `json:"fov"`
	HorizontalFOV   float64  `json:"hfov"`
	TakeoffAltitude *float64 `json:"takeoffAltitude,omitempty"`
	MinCurve        float64  `json:"minCurve"`
	BezierPoints    int      `json:"bezierPoints"`
	InfillDistance  float64  `json:"infillDistance"`
}

// ErrConversionNotFound is returned by archive lookups for an unknown id.
var ErrConversionNotFound = errors.New("conversion not found")

// Conversion is the archived outcome of one mission conversion.
type Conversion struct {
	ID              string
	MissionName     string
	CreatedAt       time.Time
	Settings        Settings
	ElevationSource string
	WaypointCount   int
	POICount        int
	SmoothedCount   int
	PathLength      float64 // meters, 3D, along the smoothed path
	FlightTime      float64 // seconds, sum of leg times
	DegradedBatches int
	Path            []GeoPoint
	KML             []byte
}
