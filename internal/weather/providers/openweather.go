package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/weather-notifier/internal/weather"
)

const (
	defaultOpenWeatherBaseURL = "https://api.openweathermap.org"
	forecastSteps             = 40
	defaultGeocodeLimit       = 5
)

// OpenWeatherProvider implements weather.Provider, weather.ForecastProvider
// and weather.Geocoder against OpenWeatherMap. Units are fixed to metric.
type OpenWeatherProvider struct {
	name    string
	apiKey  string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

// NewOpenWeatherProvider creates a provider. An empty baseURL selects the public API.
func NewOpenWeatherProvider(client *http.Client, apiKey, baseURL string) *OpenWeatherProvider {
	if baseURL == "" {
		baseURL = defaultOpenWeatherBaseURL
	}
	return &OpenWeatherProvider{
		name:    "openweathermap",
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		httpCfg: defaultHTTPConfig(client),
		circuit: newCircuitBreaker("openweather"),
	}
}

func (p *OpenWeatherProvider) Name() string {
	return p.name
}

type owCondition struct {
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

func toConditions(items []owCondition) []weather.Condition {
	out := make([]weather.Condition, 0, len(items))
	for _, c := range items {
		out = append(out, weather.Condition{Description: c.Description, Icon: c.Icon})
	}
	return out
}

func (p *OpenWeatherProvider) get(ctx context.Context, endpoint, path string, values url.Values) (*http.Response, error) {
	if p.apiKey == "" {
		return nil, weather.NewFetchError(p.name, weather.FetchConfig, 0, fmt.Errorf("openweather api key is not configured"))
	}
	values.Set("appid", p.apiKey)

	buildRequest := func(ctx context.Context) (*http.Request, error) {
		u := fmt.Sprintf("%s%s?%s", p.baseURL, path, values.Encode())
		return http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	}

	return doRequestWithResilience(ctx, p.name, endpoint, p.httpCfg, p.circuit, buildRequest)
}

func coordValues(loc weather.Location) url.Values {
	values := url.Values{}
	values.Set("lat", formatCoord(loc.Lat))
	values.Set("lon", formatCoord(loc.Lon))
	values.Set("units", "metric")
	return values
}

// Fetch returns the current weather for loc.
func (p *OpenWeatherProvider) Fetch(ctx context.Context, loc weather.Location) (weather.Snapshot, error) {
	resp, err := p.get(ctx, "weather", "/data/2.5/weather", coordValues(loc))
	if err != nil {
		return weather.Snapshot{}, err
	}

	var payload struct {
		Weather []owCondition `json:"weather"`
		Main    *struct {
			Temp      float64 `json:"temp"`
			FeelsLike float64 `json:"feels_like"`
			TempMin   float64 `json:"temp_min"`
			TempMax   float64 `json:"temp_max"`
			Pressure  int     `json:"pressure"`
			Humidity  int     `json:"humidity"`
		} `json:"main"`
		Wind struct {
			Speed float64 `json:"speed"`
		} `json:"wind"`
		Name     string `json:"name"`
		Timezone *int   `json:"timezone"`
	}

	if err := decodeJSON(p.name, resp, &payload); err != nil {
		return weather.Snapshot{}, err
	}
	if payload.Main == nil {
		return weather.Snapshot{}, weather.NewFetchError(p.name, weather.FetchDecode, 0, fmt.Errorf("payload has no main block"))
	}

	return weather.Snapshot{
		Provider:       p.name,
		Conditions:     toConditions(payload.Weather),
		Temp:           payload.Main.Temp,
		FeelsLike:      payload.Main.FeelsLike,
		TempMin:        payload.Main.TempMin,
		TempMax:        payload.Main.TempMax,
		Humidity:       payload.Main.Humidity,
		Pressure:       payload.Main.Pressure,
		WindSpeed:      payload.Wind.Speed,
		Name:           payload.Name,
		TimezoneOffset: payload.Timezone,
	}, nil
}

// FetchForecast returns the 5 day / 3 hour forecast for loc.
func (p *OpenWeatherProvider) FetchForecast(ctx context.Context, loc weather.Location) (weather.Forecast, error) {
	values := coordValues(loc)
	values.Set("cnt", strconv.Itoa(forecastSteps))

	resp, err := p.get(ctx, "forecast", "/data/2.5/forecast", values)
	if err != nil {
		return weather.Forecast{}, err
	}

	var payload struct {
		List []struct {
			Dt   int64 `json:"dt"`
			Main struct {
				Temp    float64 `json:"temp"`
				TempMin float64 `json:"temp_min"`
				TempMax float64 `json:"temp_max"`
			} `json:"main"`
			Weather []owCondition `json:"weather"`
		} `json:"list"`
		City struct {
			Name     string `json:"name"`
			Timezone int    `json:"timezone"`
		} `json:"city"`
	}

	if err := decodeJSON(p.name, resp, &payload); err != nil {
		return weather.Forecast{}, err
	}

	forecast := weather.Forecast{
		City:           payload.City.Name,
		TimezoneOffset: payload.City.Timezone,
		Entries:        make([]weather.ForecastEntry, 0, len(payload.List)),
	}
	for _, item := range payload.List {
		forecast.Entries = append(forecast.Entries, weather.ForecastEntry{
			Time:       time.Unix(item.Dt, 0).UTC(),
			Temp:       item.Main.Temp,
			TempMin:    item.Main.TempMin,
			TempMax:    item.Main.TempMax,
			Conditions: toConditions(item.Weather),
		})
	}

	return forecast, nil
}

// Geocode resolves a place name through the direct geocoding endpoint.
func (p *OpenWeatherProvider) Geocode(ctx context.Context, query string, limit int) ([]weather.Place, error) {
	if limit <= 0 {
		limit = defaultGeocodeLimit
	}
	values := url.Values{}
	values.Set("q", query)
	values.Set("limit", strconv.Itoa(limit))

	resp, err := p.get(ctx, "geocode", "/geo/1.0/direct", values)
	if err != nil {
		return nil, err
	}

	var payload []struct {
		Name    string  `json:"name"`
		Lat     float64 `json:"lat"`
		Lon     float64 `json:"lon"`
		Country string  `json:"country"`
		State   string  `json:"state"`
	}
	if err := decodeJSON(p.name, resp, &payload); err != nil {
		return nil, err
	}

	places := make([]weather.Place, 0, len(payload))
	for _, r := range payload {
		places = append(places, weather.Place{Name: r.Name, State: r.State, Country: r.Country, Lat: r.Lat, Lon: r.Lon})
	}
	return places, nil
}
