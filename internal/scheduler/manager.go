package scheduler

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/i474232898/weather-notifier/internal/job"
)

const (
	DailyWorkName = "daily_weather_notification"
	TestWorkName  = "test_weather_notification"

	DailyInterval = 24 * time.Hour
)

// Manager owns the weather notification registrations.
type Manager struct {
	sched  Scheduler
	logger *zap.SugaredLogger

	now    func() time.Time
	loc    *time.Location
	hour   int
	minute int
}

type ManagerOption func(*Manager)

func WithManagerClock(now func() time.Time) ManagerOption {
	return func(m *Manager) { m.now = now }
}

// WithLocation sets the zone the daily fire time is computed in.
func WithLocation(loc *time.Location) ManagerOption {
	return func(m *Manager) {
		if loc != nil {
			m.loc = loc
		}
	}
}

// WithNotifyTime sets the local wall-clock time of the daily notification.
func WithNotifyTime(hour, minute int) ManagerOption {
	return func(m *Manager) {
		m.hour = hour
		m.minute = minute
	}
}

func NewManager(sched Scheduler, logger *zap.SugaredLogger, opts ...ManagerOption) *Manager {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	m := &Manager{
		sched:  sched,
		logger: logger,
		now:    time.Now,
		loc:    time.Local,
		hour:   7,
		minute: 0,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// ScheduleDaily registers (or updates) the daily notification. Failures are
// logged only; callers observe nothing.
func (m *Manager) ScheduleDaily(ctx context.Context) {
	delay := NextFireDelay(m.now().In(m.loc), m.hour, m.minute)

	reg, err := m.sched.RegisterPeriodic(ctx, DailyWorkName, PolicyUpdate, PeriodicSpec{
		Interval:        DailyInterval,
		InitialDelay:    delay,
		RequiresNetwork: true,
		Input:           job.Input{IsTest: false},
	})
	if err != nil {
		m.logger.Errorw("schedule manager: daily registration failed", "error", err)
		return
	}
	m.logger.Infow("schedule manager: daily notification scheduled",
		"id", reg.ID, "initialDelay", delay, "nextRun", reg.NextRun)
}

// ScheduleTestRun registers a one-shot test run, replacing any pending one.
// Failures are logged only.
func (m *Manager) ScheduleTestRun(ctx context.Context, delaySeconds int) {
	_, _ = m.RegisterTestRun(ctx, delaySeconds)
}

// RegisterTestRun is ScheduleTestRun for callers that need the registration
// or the error.
func (m *Manager) RegisterTestRun(ctx context.Context, delaySeconds int) (Registration, error) {
	if delaySeconds < 0 {
		delaySeconds = 0
	}
	reg, err := m.sched.RegisterOneShot(ctx, TestWorkName, PolicyReplace, OneShotSpec{
		Delay: time.Duration(delaySeconds) * time.Second,
		Input: job.Input{IsTest: true},
	})
	if err != nil {
		m.logger.Errorw("schedule manager: test registration failed", "error", err)
		return Registration{}, fmt.Errorf("register test run: %w", err)
	}
	m.logger.Infow("schedule manager: test notification scheduled", "id", reg.ID, "delaySeconds", delaySeconds)
	return reg, nil
}

func (m *Manager) Registrations() []Registration {
	return m.sched.Registrations()
}

// NextFireDelay returns the time from now until the next hour:minute in
// now's location. A target equal to now counts as passed.
func NextFireDelay(now time.Time, hour, minute int) time.Duration {
	y, mo, d := now.Date()
	target := time.Date(y, mo, d, hour, minute, 0, 0, now.Location())
	if !target.After(now) {
		target = time.Date(y, mo, d+1, hour, minute, 0, 0, now.Location())
	}
	return target.Sub(now)
}
