package elevation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/virtualmission/vlm/pkg/core"
)

// OpenClient queries an Open-Elevation compatible lookup endpoint.
type OpenClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewOpenClient creates a client for the given lookup URL.
func NewOpenClient(baseURL string) *OpenClient {
	return &OpenClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: newHTTPClient(),
	}
}

func (c *OpenClient) Name() string { return "Open" }

type openLocation struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type openRequest struct {
	Locations []openLocation `json:"locations"`
}

type openResponse struct {
	Results []struct {
		Elevation *float64 `json:"elevation"`
	} `json:"results"`
}

// Elevations issues one POST request for all points. A result without an
// elevation value counts as 0.
func (c *OpenClient) Elevations(ctx context.Context, points []core.LatLon) ([]float64, error) {
	body := openRequest{Locations: make([]openLocation, len(points))}
	for i, p := range points {
		body.Locations[i] = openLocation{Latitude: p.Latitude, Longitude: p.Longitude}
	}
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("open elevation request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("open elevation returned status %d", resp.StatusCode)
	}

	var res openResponse
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return nil, fmt.Errorf("failed to decode open elevation response: %w", err)
	}
	if len(res.Results) != len(points) {
		return nil, fmt.Errorf("open elevation returned %d results for %d points", len(res.Results), len(points))
	}

	out := make([]float64, len(res.Results))
	for i, r := range res.Results {
		if r.Elevation != nil {
			out[i] = *r.Elevation
		}
	}
	return out, nil
}
