package providers

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/kelvins/geocoder"

	"github.com/i474232898/weather-notifier/internal/weather"
)

var googleKeyMu sync.Mutex

// GoogleGeocoder resolves free-text addresses through the Google Geocoding
// API. It returns at most one match.
type GoogleGeocoder struct {
	apiKey string
}

func NewGoogleGeocoder(apiKey string) *GoogleGeocoder {
	return &GoogleGeocoder{apiKey: apiKey}
}

func (g *GoogleGeocoder) Geocode(ctx context.Context, query string, _ int) ([]weather.Place, error) {
	const name = "google"
	if g.apiKey == "" {
		return nil, weather.NewFetchError(name, weather.FetchConfig, 0, errors.New("google geocoding api key is not configured"))
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, weather.NewFetchError(name, weather.FetchConfig, 0, errors.New("empty query"))
	}
	if err := ctx.Err(); err != nil {
		return nil, weather.NewFetchError(name, weather.FetchNetwork, 0, err)
	}

	// The library keeps its key in a package variable.
	googleKeyMu.Lock()
	geocoder.ApiKey = g.apiKey
	loc, err := geocoder.Geocoding(geocoder.Address{Street: query})
	googleKeyMu.Unlock()
	if err != nil {
		return nil, weather.NewFetchError(name, weather.FetchNetwork, 0, err)
	}

	return []weather.Place{{Name: query, Lat: loc.Latitude, Lon: loc.Longitude}}, nil
}
