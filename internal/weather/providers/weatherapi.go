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

const defaultWeatherAPIBaseURL = "https://api.weatherapi.com"

// WeatherAPIProvider implements weather.Provider for WeatherAPI.com.
type WeatherAPIProvider struct {
	name    string
	apiKey  string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

func NewWeatherAPIProvider(client *http.Client, apiKey, baseURL string) *WeatherAPIProvider {
	if baseURL == "" {
		baseURL = defaultWeatherAPIBaseURL
	}
	return &WeatherAPIProvider{
		name:    "weatherapi",
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		httpCfg: defaultHTTPConfig(client),
		circuit: newCircuitBreaker("weatherapi"),
	}
}

func (p *WeatherAPIProvider) Name() string {
	return p.name
}

func (p *WeatherAPIProvider) Fetch(ctx context.Context, loc weather.Location) (weather.Snapshot, error) {
	if p.apiKey == "" {
		return weather.Snapshot{}, weather.NewFetchError(p.name, weather.FetchConfig, 0, fmt.Errorf("weatherapi api key is not configured"))
	}

	buildRequest := func(ctx context.Context) (*http.Request, error) {
		values := url.Values{}
		values.Set("key", p.apiKey)
		// "q" accepts "lat,lon" as well as place names.
		values.Set("q", formatCoord(loc.Lat)+","+formatCoord(loc.Lon))

		u := fmt.Sprintf("%s/v1/current.json?%s", p.baseURL, values.Encode())
		return http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	}

	resp, err := doRequestWithResilience(ctx, p.name, "weather", p.httpCfg, p.circuit, buildRequest)
	if err != nil {
		return weather.Snapshot{}, err
	}

	var payload struct {
		Location struct {
			Name string `json:"name"`
		} `json:"location"`
		Current *struct {
			TempC      float64 `json:"temp_c"`
			FeelsLikeC float64 `json:"feelslike_c"`
			Humidity   float64 `json:"humidity"`
			WindKph    float64 `json:"wind_kph"`
			PressureMb float64 `json:"pressure_mb"`
			Condition  struct {
				Text string `json:"text"`
				Icon string `json:"icon"`
			} `json:"condition"`
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
		Provider: p.name,
		Conditions: []weather.Condition{{
			Description: strings.ToLower(strings.TrimSpace(cur.Condition.Text)),
			Icon:        cur.Condition.Icon,
		}},
		Temp:      cur.TempC,
		FeelsLike: cur.FeelsLikeC,
		TempMin:   cur.TempC,
		TempMax:   cur.TempC,
		Humidity:  int(cur.Humidity),
		Pressure:  int(cur.PressureMb),
		// kph to m/s
		WindSpeed: cur.WindKph / 3.6,
		Name:      payload.Location.Name,
	}, nil
}
