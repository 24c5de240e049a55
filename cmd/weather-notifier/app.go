package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/i474232898/weather-notifier/internal/config"
	"github.com/i474232898/weather-notifier/internal/job"
	"github.com/i474232898/weather-notifier/internal/logger"
	"github.com/i474232898/weather-notifier/internal/notify"
	"github.com/i474232898/weather-notifier/internal/scheduler"
	"github.com/i474232898/weather-notifier/internal/store"
	"github.com/i474232898/weather-notifier/internal/weather"
	"github.com/i474232898/weather-notifier/internal/weather/providers"
)

// application holds every wired component of one process.
type application struct {
	cfg    *config.AppConfig
	logger *zap.SugaredLogger

	kv       store.KV
	prefs    *store.Preferences
	provider weather.Provider
	geocoder weather.Geocoder
	weather  *weather.Service

	tray *notify.Tray // nil unless NOTIFY_DRIVER=tray
	job  *job.WeatherJob

	pool    *scheduler.WorkerPool
	cron    *scheduler.CronScheduler
	manager *scheduler.Manager
	runner  *scheduler.PoolRunner

	closers []func() error
}

func newApplication(ctx context.Context, cfg *config.AppConfig) (*application, error) {
	app := &application{cfg: cfg, logger: logger.GetLogger()}

	kv, err := app.openStore(ctx)
	if err != nil {
		return nil, err
	}
	app.kv = kv
	app.closers = append(app.closers, kv.Close)
	app.prefs = store.NewPreferences(kv)

	// Shared HTTP client for outbound provider calls.
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
	if err := app.buildProviders(httpClient); err != nil {
		app.Close()
		return nil, err
	}
	app.weather = weather.NewService(app.provider, app.geocoder, logger.Named("weather-service"))

	platform, err := app.buildPlatform()
	if err != nil {
		app.Close()
		return nil, err
	}

	app.job = job.NewWeatherJob(
		app.prefs,
		app.provider,
		notify.NewChannelManager(platform, logger.Named("channels")),
		notify.NewDispatcher(platform, logger.Named("dispatcher")),
		logger.Named("weather-job"),
		job.WithDeviceLocation(cfg.DeviceTimezone),
	)

	app.pool = scheduler.NewWorkerPool(scheduler.WorkerPoolConfig{
		MaxWorkers: cfg.WorkerPoolSize,
		QueueSize:  cfg.WorkerQueueSize,
		JobTimeout: cfg.JobTimeout,
	}, logger.Named("worker-pool"))

	var probe scheduler.NetworkProbe
	if cfg.NetworkProbeAddr != "" {
		probe = scheduler.DialProbe{Address: cfg.NetworkProbeAddr}
	}
	app.cron = scheduler.NewCronScheduler(app.job, app.pool, scheduler.CronConfig{
		Location:             cfg.DeviceTimezone,
		RetryInitialInterval: cfg.RetryInitialInterval,
		RetryMaxElapsed:      cfg.RetryMaxElapsed,
		Probe:                probe,
	}, logger.Named("cron"))

	app.manager = scheduler.NewManager(app.cron, logger.Named("schedule-manager"),
		scheduler.WithLocation(cfg.DeviceTimezone),
		scheduler.WithNotifyTime(cfg.NotifyHour, cfg.NotifyMinute),
	)
	app.runner = scheduler.NewPoolRunner(app.pool, app.job)

	return app, nil
}

func (a *application) openStore(ctx context.Context) (store.KV, error) {
	switch a.cfg.StoreDriver {
	case "memory":
		a.logger.Warnw("store: using in-memory preferences, nothing survives a restart")
		return store.NewMemoryStore(), nil
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     a.cfg.RedisAddr,
			Password: a.cfg.RedisPassword,
			DB:       a.cfg.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, fmt.Errorf("connect redis %s: %w", a.cfg.RedisAddr, err)
		}
		a.logger.Infow("store: connected to redis", "addr", a.cfg.RedisAddr, "db", a.cfg.RedisDB)
		return store.NewRedisStore(client), nil
	default:
		return store.OpenSQLite(ctx, a.cfg.SQLitePath, logger.Named("store"))
	}
}

func (a *application) buildProviders(client *http.Client) error {
	var ow *providers.OpenWeatherProvider
	if a.cfg.OpenWeatherAPIKey != "" {
		ow = providers.NewOpenWeatherProvider(client, a.cfg.OpenWeatherAPIKey, a.cfg.OpenWeatherBaseURL)
	}

	switch a.cfg.Provider {
	case "openweather":
		if ow == nil {
			return fmt.Errorf("provider openweather: OPENWEATHER_API_KEY is not set")
		}
		a.provider = ow
	case "openmeteo":
		a.provider = providers.NewOpenMeteoProvider(client, a.cfg.OpenMeteoBaseURL)
	case "weatherapi":
		a.provider = providers.NewWeatherAPIProvider(client, a.cfg.WeatherAPIKey, a.cfg.WeatherAPIBaseURL)
	default:
		return fmt.Errorf("unknown weather provider %q", a.cfg.Provider)
	}

	switch {
	case a.cfg.GeocoderAPIKey != "":
		a.geocoder = providers.NewGoogleGeocoder(a.cfg.GeocoderAPIKey)
	case ow != nil:
		a.geocoder = ow
	}

	a.logger.Infow("providers configured",
		"provider", a.provider.Name(),
		"openweatherKey", logger.MaskSensitiveString(a.cfg.OpenWeatherAPIKey, 3, 3),
		"geocoding", a.geocoder != nil,
	)
	return nil
}

func (a *application) buildPlatform() (notify.Platform, error) {
	if a.cfg.NotifyDriver == "amqp" {
		conn, ch, err := notify.DialAMQP(a.cfg.AMQPURL)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, ch.Close, conn.Close)
		a.logger.Infow("notify: publishing to amqp", "exchange", a.cfg.AMQPExchange)
		return notify.NewAMQPPlatform(ch, a.cfg.AMQPExchange, a.prefs, logger.Named("amqp")), nil
	}

	a.tray = notify.NewTray(a.prefs)
	return a.tray, nil
}

// Close releases connections in reverse order of acquisition.
func (a *application) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warnw("close failed", "error", err)
		}
	}
	a.closers = nil
}
