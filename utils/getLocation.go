package utils

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Location is the reverse-geocoded place of an issue. Either field may be
// empty when the geocoder has no answer.
type Location struct {
	City  string
	State string
}

// Geocoder resolves coordinates to a city/state pair. Failures degrade to an
// empty Location; they never fail issue creation.
type Geocoder interface {
	ReverseGeocode(ctx context.Context, lat, lon float64) (Location, error)
}

// OpenCageGeocoder resolves coordinates through the OpenCage geocoding API.
type OpenCageGeocoder struct {
	APIKey string
	Client *http.Client
}

func NewOpenCageGeocoder(apiKey string) *OpenCageGeocoder {
	return &OpenCageGeocoder{
		APIKey: apiKey,
		Client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (g *OpenCageGeocoder) ReverseGeocode(ctx context.Context, lat, lon float64) (Location, error) {
	url := fmt.Sprintf("https://api.opencagedata.com/geocode/v1/json?q=%f+%f&key=%s", lat, lon, g.APIKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Location{}, err
	}

	resp, err := g.Client.Do(req)
	if err != nil {
		return Location{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Location{}, fmt.Errorf("opencage returned status %d", resp.StatusCode)
	}

	var parsed struct {
		Results []struct {
			Components struct {
				City    string `json:"city"`
				Town    string `json:"town"`
				Village string `json:"village"`
				State   string `json:"state"`
			} `json:"components"`
		} `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return Location{}, err
	}
	if len(parsed.Results) == 0 {
		return Location{}, nil
	}

	components := parsed.Results[0].Components
	city := components.City
	if city == "" {
		city = components.Town
	}
	if city == "" {
		city = components.Village
	}
	return Location{City: city, State: components.State}, nil
}
