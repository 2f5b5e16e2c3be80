package elevation

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/virtualmission/vlm/pkg/core"
)

// GoogleClient queries the Google Maps Elevation API.
type GoogleClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewGoogleClient creates a client for the given endpoint and API key.
func NewGoogleClient(baseURL, apiKey string) *GoogleClient {
	return &GoogleClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: newHTTPClient(),
	}
}

func (c *GoogleClient) Name() string { return "Google" }

type googleResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Results      []struct {
		Elevation float64 `json:"elevation"`
	} `json:"results"`
}

// Elevations issues one GET request for all points.
func (c *GoogleClient) Elevations(ctx context.Context, points []core.LatLon) ([]float64, error) {
	locs := make([]string, len(points))
	for i, p := range points {
		locs[i] = strconv.FormatFloat(p.Latitude, 'f', -1, 64) + "," + strconv.FormatFloat(p.Longitude, 'f', -1, 64)
	}
	q := url.Values{}
	q.Set("locations", strings.Join(locs, "|"))
	q.Set("key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("google elevation request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("google elevation returned status %d", resp.StatusCode)
	}

	var body googleResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode google elevation response: %w", err)
	}
	if body.Status != "OK" {
		return nil, fmt.Errorf("google elevation status %s: %s", body.Status, body.ErrorMessage)
	}
	if len(body.Results) != len(points) {
		return nil, fmt.Errorf("google elevation returned %d results for %d points", len(body.Results), len(points))
	}

	out := make([]float64, len(body.Results))
	for i, r := range body.Results {
		out[i] = r.Elevation
	}
	return out, nil
}
