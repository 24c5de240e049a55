package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"

	httpapi "github.com/i474232898/weather-notifier/internal/api/http"
	"github.com/i474232898/weather-notifier/internal/config"
	"github.com/i474232898/weather-notifier/internal/job"
	"github.com/i474232898/weather-notifier/internal/logger"
	"github.com/i474232898/weather-notifier/internal/scheduler"
)

var version = "dev"

type CLI struct {
	Version kong.VersionFlag `help:"Print the version and exit."`

	Serve        ServeCmd        `cmd:"" default:"1" help:"Run the scheduler, the worker pool and the control API."`
	Run          RunCmd          `cmd:"" help:"Execute one weather job now and print its outcome."`
	ScheduleTest ScheduleTestCmd `cmd:"" name:"schedule-test" help:"Schedule a test notification and wait for it."`
	SaveLocation SaveLocationCmd `cmd:"" name:"save-location" help:"Save the location used by the daily notification."`
	SetTitle     SetTitleCmd     `cmd:"" name:"set-title" help:"Set the title of the next notifications."`
}

// runtime is bound into every command's Run method.
type runtime struct {
	ctx context.Context
	cfg *config.AppConfig
}

func main() {
	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("weather-notifier"),
		kong.Description("Daily weather notifications for a saved location."),
		kong.UsageOnError(),
		kong.Vars{"version": version},
	)

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.InitLogger()
	defer logger.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err = kctx.Run(&runtime{ctx: ctx, cfg: cfg})
	if err != nil {
		logger.GetLogger().Errorw("command failed", "command", kctx.Command(), "error", err)
	}
	kctx.FatalIfErrorf(err)
}

type ServeCmd struct {
	Port string `help:"HTTP port; overrides PORT."`
}

func (c *ServeCmd) Run(rt *runtime) error {
	log := logger.Named("serve")

	app, err := newApplication(rt.ctx, rt.cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	app.cron.Start()
	app.manager.ScheduleDaily(rt.ctx)

	api := httpapi.NewApp(httpapi.Dependencies{
		Preferences: app.prefs,
		Weather:     app.weather,
		Schedules:   app.manager,
		Jobs:        app.runner,
		Tray:        app.tray,
		TestDelay:   rt.cfg.TestDelay,
		Logger:      logger.Named("http"),
	})

	port := c.Port
	if port == "" {
		port = rt.cfg.Port
	}
	go func() {
		log.Infow("control api listening", "port", port)
		if err := api.Listen(":" + port); err != nil {
			log.Errorw("fiber server stopped", "error", err)
		}
	}()

	<-rt.ctx.Done()
	log.Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := api.ShutdownWithContext(shutdownCtx); err != nil {
		log.Warnw("error during http shutdown", "error", err)
	}
	if err := app.cron.Stop(shutdownCtx); err != nil {
		log.Warnw("error during scheduler shutdown", "error", err)
	}
	return nil
}

type RunCmd struct {
	Test bool `help:"Send the test notification instead of fetching weather."`
}

func (c *RunCmd) Run(rt *runtime) error {
	app, err := newApplication(rt.ctx, rt.cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	ctx, cancel := context.WithTimeout(rt.ctx, rt.cfg.JobTimeout)
	defer cancel()

	outcome := app.job.Run(ctx, job.Input{IsTest: c.Test})
	fmt.Println(outcome)
	if outcome == job.OutcomePermanentFailure {
		return errors.New("job failed permanently")
	}
	return nil
}

type ScheduleTestCmd struct {
	Delay *time.Duration `help:"Delay before the test notification; defaults to TEST_DELAY."`
}

func (c *ScheduleTestCmd) Run(rt *runtime) error {
	app, err := newApplication(rt.ctx, rt.cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	delay := rt.cfg.TestDelay
	if c.Delay != nil {
		delay = *c.Delay
	}

	app.cron.Start()
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = app.cron.Stop(ctx)
	}()

	reg, err := app.manager.RegisterTestRun(rt.ctx, int(delay/time.Second))
	if err != nil {
		return err
	}
	fmt.Printf("test notification scheduled in %s\n", delay)

	// The one-shot registration disappears once it has run to a final outcome.
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-rt.ctx.Done():
			return rt.ctx.Err()
		case <-ticker.C:
			if !hasRegistration(app.manager.Registrations(), reg) {
				fmt.Println("test notification sent")
				return nil
			}
		}
	}
}

func hasRegistration(regs []scheduler.Registration, want scheduler.Registration) bool {
	for _, r := range regs {
		if r.Name == want.Name && r.ID == want.ID {
			return true
		}
	}
	return false
}

type SaveLocationCmd struct {
	Lat     *float64 `help:"Latitude in degrees." xor:"lat"`
	Lon     *float64 `help:"Longitude in degrees." xor:"lon"`
	Address string   `help:"Free-text address, resolved through the configured geocoder." xor:"lat,lon"`
}

func (c *SaveLocationCmd) Run(rt *runtime) error {
	app, err := newApplication(rt.ctx, rt.cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	var lat, lon float64
	switch {
	case c.Address != "":
		places, err := app.weather.Geocode(rt.ctx, c.Address, 1)
		if err != nil {
			return fmt.Errorf("geocode %q: %w", c.Address, err)
		}
		if len(places) == 0 {
			return fmt.Errorf("no match for %q", c.Address)
		}
		lat, lon = places[0].Lat, places[0].Lon
	case c.Lat != nil && c.Lon != nil:
		lat, lon = *c.Lat, *c.Lon
	default:
		return errors.New("either --address or both --lat and --lon are required")
	}

	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return fmt.Errorf("coordinates out of range: %f,%f", lat, lon)
	}
	if err := app.prefs.SaveLocation(rt.ctx, lat, lon); err != nil {
		return err
	}
	fmt.Printf("location saved: %.4f,%.4f\n", lat, lon)
	return nil
}

type SetTitleCmd struct {
	Title string `arg:"" help:"Notification title."`
}

func (c *SetTitleCmd) Run(rt *runtime) error {
	app, err := newApplication(rt.ctx, rt.cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	return app.prefs.SetNotificationTitle(rt.ctx, c.Title)
}
