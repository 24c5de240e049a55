package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

var validate = validator.New()

type AppConfig struct {
	Environment string
	LogLevel    string
	Port        string `validate:"required,numeric"`

	// Provider selects the weather source used by the job.
	Provider           string `validate:"oneof=openweather openmeteo weatherapi"`
	OpenWeatherAPIKey  string `validate:"required_if=Provider openweather"`
	OpenWeatherBaseURL string `validate:"omitempty,url"`
	OpenMeteoBaseURL   string `validate:"omitempty,url"`
	WeatherAPIKey      string `validate:"required_if=Provider weatherapi"`
	WeatherAPIBaseURL  string `validate:"omitempty,url"`
	GeocoderAPIKey     string
	HTTPTimeout        time.Duration `validate:"gt=0"`

	StoreDriver   string `validate:"oneof=memory sqlite redis"`
	SQLitePath    string `validate:"required_if=StoreDriver sqlite"`
	RedisAddr     string `validate:"required_if=StoreDriver redis"`
	RedisPassword string
	RedisDB       int `validate:"gte=0"`

	NotifyDriver string `validate:"oneof=tray amqp"`
	AMQPURL      string `validate:"required_if=NotifyDriver amqp"`
	AMQPExchange string `validate:"required"`

	NotifyHour     int `validate:"gte=0,lte=23"`
	NotifyMinute   int `validate:"gte=0,lte=59"`
	TestDelay      time.Duration `validate:"gte=0"`
	DeviceTimezone *time.Location `validate:"required"`

	WorkerPoolSize  int           `validate:"gte=1"`
	WorkerQueueSize int           `validate:"gte=1"`
	JobTimeout      time.Duration `validate:"gt=0"`

	RetryInitialInterval time.Duration `validate:"gt=0"`
	RetryMaxElapsed      time.Duration `validate:"gt=0"`
	NetworkProbeAddr     string
}

// Load reads configuration from the environment (and a .env file when
// present) with defaults, then validates it.
func Load() (*AppConfig, error) {
	_ = godotenv.Load()

	cfg := &AppConfig{
		Environment:        getenvDefault("ENVIRONMENT", "development"),
		LogLevel:           getenvDefault("LOG_LEVEL", "info"),
		Port:               getenvDefault("PORT", "8080"),
		Provider:           strings.ToLower(getenvDefault("WEATHER_PROVIDER", "openweather")),
		OpenWeatherAPIKey:  os.Getenv("OPENWEATHER_API_KEY"),
		OpenWeatherBaseURL: os.Getenv("OPENWEATHER_BASE_URL"),
		OpenMeteoBaseURL:   os.Getenv("OPENMETEO_BASE_URL"),
		WeatherAPIKey:      os.Getenv("WEATHERAPI_API_KEY"),
		WeatherAPIBaseURL:  os.Getenv("WEATHERAPI_BASE_URL"),
		GeocoderAPIKey:     os.Getenv("GOOGLE_GEOCODER_API_KEY"),
		StoreDriver:        strings.ToLower(getenvDefault("STORE_DRIVER", "sqlite")),
		SQLitePath:         getenvDefault("SQLITE_PATH", "weather-notifier.db"),
		RedisAddr:          os.Getenv("REDIS_ADDR"),
		RedisPassword:      os.Getenv("REDIS_PASSWORD"),
		RedisDB:            getenvInt("REDIS_DB", 0),
		NotifyDriver:       strings.ToLower(getenvDefault("NOTIFY_DRIVER", "tray")),
		AMQPURL:            os.Getenv("AMQP_URL"),
		AMQPExchange:       getenvDefault("AMQP_EXCHANGE", "notifications.direct"),
		WorkerPoolSize:     getenvInt("WORKER_POOL_SIZE", 2),
		WorkerQueueSize:    getenvInt("WORKER_QUEUE_SIZE", 16),
		NetworkProbeAddr:   getenvDefault("NETWORK_PROBE_ADDR", "api.openweathermap.org:443"),
	}

	var err error
	if cfg.HTTPTimeout, err = getenvDuration("HTTP_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.TestDelay, err = getenvDuration("TEST_DELAY", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.JobTimeout, err = getenvDuration("JOB_TIMEOUT", 2*time.Minute); err != nil {
		return nil, err
	}
	if cfg.RetryInitialInterval, err = getenvDuration("RETRY_INITIAL_INTERVAL", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.RetryMaxElapsed, err = getenvDuration("RETRY_MAX_ELAPSED", 6*time.Hour); err != nil {
		return nil, err
	}

	if cfg.NotifyHour, cfg.NotifyMinute, err = parseClock(getenvDefault("NOTIFY_AT", "07:00")); err != nil {
		return nil, err
	}

	cfg.DeviceTimezone = time.Local
	if tz := os.Getenv("DEVICE_TIMEZONE"); tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			return nil, fmt.Errorf("invalid DEVICE_TIMEZONE: %w", err)
		}
		cfg.DeviceTimezone = loc
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// parseClock parses "HH:MM".
func parseClock(s string) (int, int, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return 0, 0, fmt.Errorf("invalid NOTIFY_AT %q: want HH:MM", s)
	}
	return t.Hour(), t.Minute(), nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func getenvDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
