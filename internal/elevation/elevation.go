package elevation

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/virtualmission/vlm/pkg/core"
)

// ErrLookupDegraded marks a batch whose elevations could not be fetched and were replaced by zeros.
var ErrLookupDegraded = errors.New("elevation lookup degraded")

// DefaultMaxPerRequest is the largest batch the public services accept.
const DefaultMaxPerRequest = 100

// Lookup resolves ground elevations for positions, returned in input order.
type Lookup interface {
	// Name is the short service name, "Google" or "Open".
	Name() string
	Elevations(ctx context.Context, points []core.LatLon) ([]float64, error)
}

func newHTTPClient() *http.Client {
	// per-batch deadlines come from the context
	return &http.Client{Timeout: 60 * time.Second}
}

// New selects the Google service when a key is configured, otherwise Open-Elevation.
func New(googleURL, googleKey, openURL string) Lookup {
	if googleKey != "" {
		return NewGoogleClient(googleURL, googleKey)
	}
	return NewOpenClient(openURL)
}
