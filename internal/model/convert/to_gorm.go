package convert

import (
	"encoding/json"
	"fmt"

	"github.com/virtualmission/vlm/internal/geo"
	"github.com/virtualmission/vlm/internal/model"
	"github.com/virtualmission/vlm/pkg/core"
	"gorm.io/datatypes"
)

// pathToWKB projects a point sequence to EPSG:3857 and encodes it as WKB.
// Paths that are not a line encode as nil.
func pathToWKB(path []core.GeoPoint) ([]byte, error) {
	ls, err := geo.PathLineString(path)
	if err != nil {
		return nil, fmt.Errorf("failed to encode path: %w", err)
	}
	if ls.IsEmpty() {
		return nil, nil
	}
	return ls.AsBinary(), nil
}

// settingsToJSON converts core.Settings to datatypes.JSON for DB storage.
func settingsToJSON(s core.Settings) (datatypes.JSON, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to encode settings: %w", err)
	}
	return datatypes.JSON(data), nil
}

// CoreToConversion converts a core.Conversion to a GORM model.Conversion.
func CoreToConversion(c core.Conversion) (model.Conversion, error) {
	settings, err := settingsToJSON(c.Settings)
	if err != nil {
		return model.Conversion{}, err
	}
	path, err := pathToWKB(c.Path)
	if err != nil {
		return model.Conversion{}, err
	}

	return model.Conversion{
		ID:              c.ID,
		CreatedAt:       c.CreatedAt,
		MissionName:     c.MissionName,
		ElevationSource: c.ElevationSource,
		Settings:        settings,
		WaypointCount:   c.WaypointCount,
		POICount:        c.POICount,
		SmoothedCount:   c.SmoothedCount,
		PathLength:      c.PathLength,
		FlightTime:      c.FlightTime,
		DegradedBatches: c.DegradedBatches,
		Path:            path,
		KML:             c.KML,
	}, nil
}
