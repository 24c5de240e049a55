package providers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/weather-notifier/internal/weather"
)

func TestOpenMeteoFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/forecast", r.URL.Path)
		assert.Equal(t, "52.52", r.URL.Query().Get("latitude"))
		_, _ = w.Write([]byte(`{
			"utc_offset_seconds": 7200,
			"current": {"temperature_2m": 18.4, "apparent_temperature": 17.9, "relative_humidity_2m": 55,
				"surface_pressure": 1009.6, "wind_speed_10m": 3.2, "weather_code": 61}
		}`))
	}))
	defer srv.Close()

	p := NewOpenMeteoProvider(srv.Client(), srv.URL)
	snap, err := p.Fetch(context.Background(), weather.Location{Lat: 52.52, Lon: 13.41})
	require.NoError(t, err)

	assert.Equal(t, "openmeteo", p.Name())
	assert.Equal(t, "rain", snap.Description())
	assert.InDelta(t, 18.4, snap.Temp, 1e-9)
	assert.Equal(t, 55, snap.Humidity)
	require.NotNil(t, snap.TimezoneOffset)
	assert.Equal(t, 7200, *snap.TimezoneOffset)
}

func TestOpenMeteoMissingCurrent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"utc_offset_seconds": 0}`))
	}))
	defer srv.Close()

	p := NewOpenMeteoProvider(srv.Client(), srv.URL)
	_, err := p.Fetch(context.Background(), weather.Location{Lat: 1, Lon: 1})
	assert.Equal(t, "malformed response", weather.ErrorCategory(err))
}

func TestDescribeWMOCode(t *testing.T) {
	cases := map[int]string{
		0:  "clear sky",
		3:  "overcast clouds",
		45: "fog",
		55: "drizzle",
		73: "snow",
		81: "rain showers",
		99: "thunderstorm",
		42: "unknown",
	}
	for code, want := range cases {
		assert.Equal(t, want, describeWMOCode(code), "code %d", code)
	}
}

func TestWeatherAPIFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/current.json", r.URL.Path)
		assert.Equal(t, "40.7,-74", r.URL.Query().Get("q"))
		assert.Equal(t, "k", r.URL.Query().Get("key"))
		_, _ = w.Write([]byte(`{
			"location": {"name": "New York"},
			"current": {"temp_c": 21.5, "feelslike_c": 22, "humidity": 60, "wind_kph": 36, "pressure_mb": 1015,
				"condition": {"text": "Partly cloudy ", "icon": "//cdn/116.png"}}
		}`))
	}))
	defer srv.Close()

	p := NewWeatherAPIProvider(srv.Client(), "k", srv.URL)
	snap, err := p.Fetch(context.Background(), weather.Location{Lat: 40.7, Lon: -74})
	require.NoError(t, err)

	assert.Equal(t, "partly cloudy", snap.Description())
	assert.Equal(t, "New York", snap.Name)
	assert.InDelta(t, 10.0, snap.WindSpeed, 1e-9)
	assert.Nil(t, snap.TimezoneOffset)
}

func TestWeatherAPIMissingKey(t *testing.T) {
	p := NewWeatherAPIProvider(http.DefaultClient, "", "")
	_, err := p.Fetch(context.Background(), weather.Location{Lat: 1, Lon: 1})
	assert.ErrorIs(t, err, weather.ErrFetchFailed)
	assert.Equal(t, "not configured", weather.ErrorCategory(err))
}

func TestGoogleGeocoderRequiresKeyAndQuery(t *testing.T) {
	_, err := NewGoogleGeocoder("").Geocode(context.Background(), "Berlin", 1)
	assert.Equal(t, "not configured", weather.ErrorCategory(err))

	_, err = NewGoogleGeocoder("key").Geocode(context.Background(), "   ", 1)
	assert.ErrorIs(t, err, weather.ErrFetchFailed)
}
