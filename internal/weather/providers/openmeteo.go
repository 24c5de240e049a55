package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/sony/gobreaker"

	"github.com/i474232898/weather-notifier/internal/weather"
)

const defaultOpenMeteoBaseURL = "https://api.open-meteo.com"

// OpenMeteoProvider implements weather.Provider for Open-Meteo. It needs no
// API key and serves as the keyless fallback.
type OpenMeteoProvider struct {
	name    string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

func NewOpenMeteoProvider(client *http.Client, baseURL string) *OpenMeteoProvider {
	if baseURL == "" {
		baseURL = defaultOpenMeteoBaseURL
	}
	return &OpenMeteoProvider{
		name:    "openmeteo",
		baseURL: strings.TrimRight(baseURL, "/"),
		httpCfg: defaultHTTPConfig(client),
		circuit: newCircuitBreaker("openmeteo"),
	}
}

func (p *OpenMeteoProvider) Name() string {
	return p.name
}

func (p *OpenMeteoProvider) Fetch(ctx context.Context, loc weather.Location) (weather.Snapshot, error) {
	buildRequest := func(ctx context.Context) (*http.Request, error) {
		values := url.Values{}
		values.Set("latitude", formatCoord(loc.Lat))
		values.Set("longitude", formatCoord(loc.Lon))
		values.Set("current", "temperature_2m,apparent_temperature,relative_humidity_2m,surface_pressure,wind_speed_10m,weather_code")
		values.Set("wind_speed_unit", "ms")
		values.Set("timezone", "auto")

		u := fmt.Sprintf("%s/v1/forecast?%s", p.baseURL, values.Encode())
		return http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	}

	resp, err := doRequestWithResilience(ctx, p.name, "weather", p.httpCfg, p.circuit, buildRequest)
	if err != nil {
		return weather.Snapshot{}, err
	}

	var payload struct {
		UTCOffsetSeconds *int `json:"utc_offset_seconds"`
		Current          *struct {
			Temperature float64 `json:"temperature_2m"`
			Apparent    float64 `json:"apparent_temperature"`
			Humidity    float64 `json:"relative_humidity_2m"`
			Pressure    float64 `json:"surface_pressure"`
			WindSpeed   float64 `json:"wind_speed_10m"`
			WeatherCode int     `json:"weather_code"`
		} `json:"current"`
	}

	if err := decodeJSON(p.name, resp, &payload); err != nil {
		return weather.Snapshot{}, err
	}
	if payload.Current == nil {
		return weather.Snapshot{}, weather.NewFetchError(p.name, weather.FetchDecode, 0, fmt.Errorf("payload has no current block"))
	}

	cur := payload.Current
	return weather.Snapshot{
		Provider:       p.name,
		Conditions:     []weather.Condition{{Description: describeWMOCode(cur.WeatherCode)}},
		Temp:           cur.Temperature,
		FeelsLike:      cur.Apparent,
		TempMin:        cur.Temperature,
		TempMax:        cur.Temperature,
		Humidity:       int(cur.Humidity),
		Pressure:       int(cur.Pressure),
		WindSpeed:      cur.WindSpeed,
		TimezoneOffset: payload.UTCOffsetSeconds,
	}, nil
}

// describeWMOCode maps a WMO weather interpretation code to lowercase text
// in the register OpenWeatherMap uses.
func describeWMOCode(code int) string {
	switch {
	case code == 0:
		return "clear sky"
	case code == 1:
		return "mainly clear"
	case code == 2:
		return "partly cloudy"
	case code == 3:
		return "overcast clouds"
	case code == 45 || code == 48:
		return "fog"
	case code >= 51 && code <= 57:
		return "drizzle"
	case code >= 61 && code <= 67:
		return "rain"
	case code >= 71 && code <= 77:
		return "snow"
	case code >= 80 && code <= 82:
		return "rain showers"
	case code == 85 || code == 86:
		return "snow showers"
	case code >= 95:
		return "thunderstorm"
	default:
		return "unknown"
	}
}
