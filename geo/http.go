package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"photoDetails/details"
)

// HTTPLocator asks a JSON geolocation endpoint where this machine is.
// Both {"latitude","longitude"} and {"lat","lon"} response shapes are understood.
type HTTPLocator struct {
	URL    string
	Client *http.Client
}

// NewHTTPLocator returns a locator using http.DefaultClient.
func NewHTTPLocator(url string) *HTTPLocator {
	return &HTTPLocator{URL: url}
}

type positionResp struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Lat       *float64 `json:"lat"`
	Lon       *float64 `json:"lon"`
}

func (p positionResp) coordinates() (details.Coordinates, bool) {
	switch {
	case p.Latitude != nil && p.Longitude != nil:
		return details.Coordinates{Latitude: *p.Latitude, Longitude: *p.Longitude}, true
	case p.Lat != nil && p.Lon != nil:
		return details.Coordinates{Latitude: *p.Lat, Longitude: *p.Lon}, true
	}
	return details.Coordinates{}, false
}

func (h *HTTPLocator) Locate(ctx context.Context, _ details.LocationRequest) (details.Coordinates, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.URL, nil)
	if err != nil {
		return details.Coordinates{}, fmt.Errorf("%w: %w", details.ErrGeolocationUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")

	client := h.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return details.Coordinates{}, fmt.Errorf("%w: %w", details.ErrGeolocationUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return details.Coordinates{}, fmt.Errorf("%w: provider returned %s", details.ErrGeolocationUnavailable, resp.Status)
	}

	var body positionResp
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&body); err != nil {
		return details.Coordinates{}, fmt.Errorf("%w: decoding response: %w", details.ErrGeolocationUnavailable, err)
	}
	c, ok := body.coordinates()
	if !ok {
		return details.Coordinates{}, fmt.Errorf("%w: response has no position", details.ErrGeolocationUnavailable)
	}
	if !c.Valid() {
		return details.Coordinates{}, fmt.Errorf("%w: %w: %v", details.ErrGeolocationUnavailable, ErrInvalidCoordinates, c)
	}
	return c, nil
}
