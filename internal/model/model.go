package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

////////////////////////
// DATABASE STRUCTURES //
////////////////////////

// DatabaseModels is a list of all the structs exported here which represent tables in the database schema
var DatabaseModels = []interface{}{
	&ArchiveInfo{},
	&Conversion{},
}

// SchemaVersion is bumped whenever a migration changes existing columns.
const SchemaVersion = 1

////////////////////////
// SYSTEM MODELS
////////////////////////

// ArchiveInfo describes the archive instance. One row, created on first setup.
type ArchiveInfo struct {
	gorm.Model
	Service       string `json:"service" gorm:"size:64"`
	SchemaVersion int    `json:"schemaVersion"`
}

func (*ArchiveInfo) TableName() string {
	return "archive_infos"
}

////////////////////////
// CONVERSION MODELS
////////////////////////

// Conversion is one archived mission conversion.
type Conversion struct {
	ID              string         `json:"id" gorm:"primaryKey;size:36"`
	CreatedAt       time.Time      `json:"createdAt" gorm:"index:idx_conversion_created_at"`
	MissionName     string         `json:"missionName" gorm:"size:255;index:idx_conversion_mission_name"`
	ElevationSource string         `json:"elevationSource" gorm:"size:32"`
	Settings        datatypes.JSON `json:"settings"`
	WaypointCount   int            `json:"waypointCount"`
	POICount        int            `json:"poiCount" gorm:"column:poi_count"`
	SmoothedCount   int            `json:"smoothedCount"`
	PathLength      float64        `json:"pathLength"` // meters
	FlightTime      float64        `json:"flightTime"` // seconds
	DegradedBatches int            `json:"degradedBatches"`
	Path            []byte         `json:"-"` // WKB LineString Z, EPSG:3857
	KML             []byte         `json:"-" gorm:"column:kml"`
}

func (*Conversion) TableName() string {
	return "conversions"
}
