package weather

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvertTemperature(t *testing.T) {
	assert.Equal(t, 15.4, ConvertTemperature(15.4, Celsius))
	assert.InDelta(t, 59.72, ConvertTemperature(15.4, Fahrenheit), 0.0001)
	assert.Equal(t, 32.0, ConvertTemperature(0, Fahrenheit))
}

func TestParseTemperatureUnit(t *testing.T) {
	u, err := ParseTemperatureUnit("fahrenheit")
	require.NoError(t, err)
	assert.Equal(t, Fahrenheit, u)
	assert.Equal(t, "°F", u.Symbol())

	u, err = ParseTemperatureUnit(" C ")
	require.NoError(t, err)
	assert.Equal(t, Celsius, u)
	assert.Equal(t, "°C", u.Symbol())

	_, err = ParseTemperatureUnit("kelvin")
	assert.Error(t, err)
}

func TestLocationSentinel(t *testing.T) {
	assert.True(t, Location{}.IsSentinel())
	assert.False(t, Location{Lat: 40, Lon: -73}.IsSentinel())
	assert.False(t, Location{Lat: 0, Lon: 12.5}.IsSentinel())
	assert.Equal(t, "40.0000,-73.0000", Location{Lat: 40, Lon: -73}.Key())
}

func TestFetchErrorMatching(t *testing.T) {
	cause := errors.New("connection refused")
	err := fmt.Errorf("wrapped: %w", NewFetchError("openweathermap", FetchNetwork, 0, cause))

	assert.ErrorIs(t, err, ErrFetchFailed)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "network unavailable", ErrorCategory(err))

	status := NewFetchError("openweathermap", FetchStatus, 503, nil)
	assert.ErrorIs(t, status, ErrFetchFailed)
	assert.Equal(t, "HTTP 503", status.Category())
	assert.Contains(t, status.Error(), "status 503")

	assert.Equal(t, "unknown error", ErrorCategory(errors.New("boom")))
}
