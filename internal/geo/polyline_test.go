package geo

import (
	"testing"

	"github.com/virtualmission/vlm/pkg/core"
)

func TestFormatCoordinates(t *testing.T) {
	got := FormatCoordinates([]core.GeoPoint{
		{Latitude: 47.5, Longitude: 8.25, Altitude: 500},
		{Latitude: -33.125, Longitude: -70.5, Altitude: 12.75},
	})
	want := "8.25,47.5,500 -70.5,-33.125,12.75"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestFormatCoordinates_Empty(t *testing.T) {
	if got := FormatCoordinates(nil); got != "" {
		t.Errorf("expected empty string, got %q", got)
	}
}
