package job

import (
	"context"
	"errors"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/i474232898/weather-notifier/internal/metrics"
	"github.com/i474232898/weather-notifier/internal/notify"
	"github.com/i474232898/weather-notifier/internal/store"
	"github.com/i474232898/weather-notifier/internal/weather"
)

// Preferences is what a run reads from the preferences store.
type Preferences interface {
	Location(ctx context.Context) (weather.Location, error)
	NotificationTitle(ctx context.Context) (string, error)
}

type ChannelEnsurer interface {
	EnsureChannel(ctx context.Context) error
}

type Deliverer interface {
	Deliver(ctx context.Context, id int, title, body string) error
}

// WeatherJob fetches current weather for the saved location and posts a
// notification. It keeps no state between runs, so concurrent runs are safe.
type WeatherJob struct {
	prefs      Preferences
	provider   weather.Provider
	channels   ChannelEnsurer
	dispatcher Deliverer
	logger     *zap.SugaredLogger

	now    func() time.Time
	device *time.Location
}

type Option func(*WeatherJob)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(j *WeatherJob) { j.now = now }
}

// WithDeviceLocation sets the zone the notification date is rendered in.
func WithDeviceLocation(loc *time.Location) Option {
	return func(j *WeatherJob) {
		if loc != nil {
			j.device = loc
		}
	}
}

func NewWeatherJob(
	prefs Preferences,
	provider weather.Provider,
	channels ChannelEnsurer,
	dispatcher Deliverer,
	logger *zap.SugaredLogger,
	opts ...Option,
) *WeatherJob {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	j := &WeatherJob{
		prefs:      prefs,
		provider:   provider,
		channels:   channels,
		dispatcher: dispatcher,
		logger:     logger,
		now:        time.Now,
		device:     time.Local,
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// Run executes one cycle. It never panics and never returns an error: every
// failure is turned into an Outcome plus, where possible, a fallback notification.
func (j *WeatherJob) Run(ctx context.Context, in Input) (outcome Outcome) {
	start := j.now()
	defer func() {
		if r := recover(); r != nil {
			j.logger.Errorw("weather job: recovered from panic", "panic", r)
			j.sendFallback(ctx, notify.PrimaryID, unexpectedMessage())
			outcome = OutcomePermanentFailure
		}
		metrics.JobOutcomes.WithLabelValues(outcome.String(), strconv.FormatBool(in.IsTest)).Inc()
		j.logger.Infow("weather job: finished", "outcome", outcome.String(), "test", in.IsTest,
			"duration", j.now().Sub(start))
	}()

	if ctx.Err() != nil {
		return OutcomeRetry
	}

	if in.IsTest {
		j.logger.Infow("weather job: test run, skipping weather fetch")
		j.sendFallback(ctx, notify.SecondaryID, testMessage(j.now()))
		return OutcomeSuccess
	}

	loc, err := j.prefs.Location(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return OutcomeRetry
		}
		j.logger.Errorw("weather job: failed to read saved location", "error", err)
		j.sendFallback(ctx, notify.PrimaryID, unexpectedMessage())
		return OutcomePermanentFailure
	}
	if loc.IsSentinel() {
		j.logger.Warnw("weather job: no saved location")
		j.sendFallback(ctx, notify.PrimaryID, noLocationMessage())
		return OutcomePermanentFailure
	}

	j.logger.Debugw("weather job: fetching weather", "location", loc.Key(), "provider", j.provider.Name())
	snap, err := j.provider.Fetch(ctx, loc)
	if err != nil {
		if ctx.Err() != nil {
			return OutcomeRetry
		}
		j.logger.Warnw("weather job: weather fetch failed", "error", err, "category", weather.ErrorCategory(err))
		j.sendFallback(ctx, notify.PrimaryID, fetchFailedMessage(err))
		return OutcomeRetry
	}

	body := FormatMessage(j.now().In(j.device), snap)
	title := j.title(ctx)

	if err := j.channels.EnsureChannel(ctx); err != nil {
		j.logger.Errorw("weather job: failed to ensure channel", "error", err)
		return OutcomeRetry
	}
	if err := j.dispatcher.Deliver(ctx, notify.PrimaryID, title, body); err != nil {
		j.logger.Errorw("weather job: failed to deliver notification", "error", err)
		return OutcomeRetry
	}

	return OutcomeSuccess
}

func (j *WeatherJob) title(ctx context.Context) string {
	title, err := j.prefs.NotificationTitle(ctx)
	if err != nil || title == "" {
		if err != nil {
			j.logger.Warnw("weather job: failed to read notification title", "error", err)
		}
		return store.DefaultNotificationTitle
	}
	return title
}

// sendFallback is best effort; failures are only logged.
func (j *WeatherJob) sendFallback(ctx context.Context, id int, message string) {
	if err := j.channels.EnsureChannel(ctx); err != nil {
		j.logger.Warnw("weather job: fallback channel unavailable", "error", err)
		return
	}
	if err := j.dispatcher.Deliver(ctx, id, j.title(ctx), message); err != nil && !errors.Is(err, context.Canceled) {
		j.logger.Warnw("weather job: fallback delivery failed", "id", id, "error", err)
	}
}
