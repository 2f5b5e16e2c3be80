package geo

import (
	"strconv"
	"strings"

	"github.com/virtualmission/vlm/pkg/core"
)

// FormatCoordinates renders points as a KML coordinate list:
// space separated "lon,lat,alt" tuples.
func FormatCoordinates(points []core.GeoPoint) string {
	var b strings.Builder
	for i, p := range points {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(strconv.FormatFloat(p.Longitude, 'f', -1, 64))
		b.WriteByte(',')
		b.WriteString(strconv.FormatFloat(p.Latitude, 'f', -1, 64))
		b.WriteByte(',')
		b.WriteString(strconv.FormatFloat(p.Altitude, 'f', -1, 64))
	}
	return b.String()
}
