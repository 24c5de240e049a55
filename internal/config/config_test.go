package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("OPENWEATHER_API_KEY", "secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "openweather", cfg.Provider)
	assert.Equal(t, "sqlite", cfg.StoreDriver)
	assert.Equal(t, "tray", cfg.NotifyDriver)
	assert.Equal(t, 7, cfg.NotifyHour)
	assert.Equal(t, 0, cfg.NotifyMinute)
	assert.Equal(t, 30*time.Second, cfg.TestDelay)
	assert.Equal(t, 30*time.Second, cfg.RetryInitialInterval)
	assert.Equal(t, 6*time.Hour, cfg.RetryMaxElapsed)
	assert.Equal(t, "notifications.direct", cfg.AMQPExchange)
	assert.Equal(t, time.Local, cfg.DeviceTimezone)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("WEATHER_PROVIDER", "OpenMeteo")
	t.Setenv("STORE_DRIVER", "redis")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("NOTIFY_AT", "06:45")
	t.Setenv("DEVICE_TIMEZONE", "UTC")
	t.Setenv("JOB_TIMEOUT", "45s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "openmeteo", cfg.Provider)
	assert.Equal(t, "redis", cfg.StoreDriver)
	assert.Equal(t, 6, cfg.NotifyHour)
	assert.Equal(t, 45, cfg.NotifyMinute)
	assert.Equal(t, "UTC", cfg.DeviceTimezone.String())
	assert.Equal(t, 45*time.Second, cfg.JobTimeout)
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"missing openweather key", map[string]string{"WEATHER_PROVIDER": "openweather"}},
		{"unknown provider", map[string]string{"WEATHER_PROVIDER": "darksky"}},
		{"redis without address", map[string]string{"WEATHER_PROVIDER": "openmeteo", "STORE_DRIVER": "redis"}},
		{"amqp without url", map[string]string{"WEATHER_PROVIDER": "openmeteo", "NOTIFY_DRIVER": "amqp"}},
		{"bad notify time", map[string]string{"WEATHER_PROVIDER": "openmeteo", "NOTIFY_AT": "7am"}},
		{"bad duration", map[string]string{"WEATHER_PROVIDER": "openmeteo", "TEST_DELAY": "soon"}},
		{"bad timezone", map[string]string{"WEATHER_PROVIDER": "openmeteo", "DEVICE_TIMEZONE": "Mars/Olympus"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("OPENWEATHER_API_KEY", "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
