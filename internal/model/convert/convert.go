// Package convert provides functions to convert GORM models to core models
package convert

import (
	"encoding/json"
	"fmt"

	geom "github.com/peterstace/simplefeatures/geom"
	"github.com/virtualmission/vlm/internal/geo"
	"github.com/virtualmission/vlm/internal/model"
	"github.com/virtualmission/vlm/pkg/core"
)

// wkbToPath decodes an archived WKB line string back into geographic points.
func wkbToPath(wkb []byte) ([]core.GeoPoint, error) {
	if len(wkb) == 0 {
		return nil, nil
	}
	var ls geom.LineString
	if err := ls.Scan(wkb); err != nil {
		return nil, fmt.Errorf("failed to decode path: %w", err)
	}
	return geo.PathFromLineString(ls), nil
}

// ConversionToCore converts a GORM Conversion to a core.Conversion.
// The KML body is carried over only when withKML is set.
func ConversionToCore(c model.Conversion, withKML bool) (core.Conversion, error) {
	var settings core.Settings
	if len(c.Settings) > 0 {
		if err := json.Unmarshal(c.Settings, &settings); err != nil {
			return core.Conversion{}, fmt.Errorf("failed to decode settings: %w", err)
		}
	}

	path, err := wkbToPath(c.Path)
	if err != nil {
		return core.Conversion{}, err
	}

	out := core.Conversion{
		ID:              c.ID,
		MissionName:     c.MissionName,
		CreatedAt:       c.CreatedAt,
		Settings:        settings,
		ElevationSource: c.ElevationSource,
		WaypointCount:   c.WaypointCount,
		POICount:        c.POICount,
		SmoothedCount:   c.SmoothedCount,
		PathLength:      c.PathLength,
		FlightTime:      c.FlightTime,
		DegradedBatches: c.DegradedBatches,
		Path:            path,
	}
	if withKML {
		out.KML = c.KML
	}
	return out, nil
}
