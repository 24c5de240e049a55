package scheduler

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-co-op/gocron"
	"go.uber.org/zap"

	"github.com/i474232898/weather-notifier/internal/job"
	"github.com/i474232898/weather-notifier/internal/metrics"
)

var ErrSchedulerStopped = errors.New("scheduler stopped")

type CronConfig struct {
	Location *time.Location
	// RetryInitialInterval is the first backoff delay after a retry outcome.
	RetryInitialInterval time.Duration
	// RetryMaxElapsed bounds the retries of one cycle; the next tick runs regardless.
	RetryMaxElapsed time.Duration
	// Probe checks the network constraint; nil treats the network as always up.
	Probe NetworkProbe
}

type cronEntry struct {
	reg Registration
	// gen changes on every install so stale timers and runs can be recognised.
	gen     uint64
	backoff *backoff.ExponentialBackOff
	retry   *time.Timer
	running bool
	// runGen is the generation the in-flight run was started under.
	runGen uint64
	cancel context.CancelFunc
}

// CronScheduler implements Scheduler on gocron. Fired triggers run on the
// worker pool; a name never runs concurrently with itself.
type CronScheduler struct {
	cron   *gocron.Scheduler
	pool   *WorkerPool
	runner Runner
	cfg    CronConfig
	logger *zap.SugaredLogger
	now    func() time.Time

	mu      sync.Mutex
	entries map[string]*cronEntry
	nextGen uint64
	stopped bool
}

func NewCronScheduler(runner Runner, pool *WorkerPool, cfg CronConfig, logger *zap.SugaredLogger) *CronScheduler {
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.RetryInitialInterval <= 0 {
		cfg.RetryInitialInterval = 30 * time.Second
	}
	if cfg.RetryMaxElapsed <= 0 {
		cfg.RetryMaxElapsed = 6 * time.Hour
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &CronScheduler{
		cron:    gocron.NewScheduler(cfg.Location),
		pool:    pool,
		runner:  runner,
		cfg:     cfg,
		logger:  logger,
		now:     time.Now,
		entries: make(map[string]*cronEntry),
	}
}

// Start starts the underlying scheduler and the worker pool.
func (s *CronScheduler) Start() {
	s.pool.Start()
	s.cron.StartAsync()
	s.logger.Infow("cron: started", "location", s.cfg.Location.String())
}

// Stop removes every trigger, cancels running jobs and shuts the pool down.
func (s *CronScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	s.stopped = true
	for _, e := range s.entries {
		if e.retry != nil {
			e.retry.Stop()
		}
		if e.cancel != nil {
			e.cancel()
		}
	}
	s.mu.Unlock()

	s.cron.Stop()
	return s.pool.Shutdown(ctx)
}

func (s *CronScheduler) RegisterPeriodic(ctx context.Context, name string, policy Policy, spec PeriodicSpec) (Registration, error) {
	if spec.Interval <= 0 {
		return Registration{}, errors.New("periodic interval must be positive")
	}
	next := periodicRegistration(name, policy, spec, s.now())
	return s.register(ctx, policy, next, func(j *gocron.Scheduler) *gocron.Scheduler {
		return j.Every(spec.Interval)
	})
}

func (s *CronScheduler) RegisterOneShot(ctx context.Context, name string, policy Policy, spec OneShotSpec) (Registration, error) {
	next := oneShotRegistration(name, policy, spec, s.now())
	return s.register(ctx, policy, next, func(j *gocron.Scheduler) *gocron.Scheduler {
		// The interval never elapses a second time because of LimitRunsTo(1).
		return j.Every(DailyInterval).LimitRunsTo(1)
	})
}

func (s *CronScheduler) register(ctx context.Context, policy Policy, next Registration, every func(*gocron.Scheduler) *gocron.Scheduler) (Registration, error) {
	if err := ctx.Err(); err != nil {
		return Registration{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return Registration{}, ErrSchedulerStopped
	}

	var existing *Registration
	old, ok := s.entries[next.Name]
	if ok {
		existing = &old.reg
	}
	reg, installed := resolve(existing, policy, next)
	if !installed {
		return reg, nil
	}

	if ok {
		s.retire(old, policy == PolicyReplace)
	}

	s.nextGen++
	gen := s.nextGen

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.cfg.RetryInitialInterval
	b.MaxElapsedTime = s.cfg.RetryMaxElapsed
	b.Reset()

	trigger := every(s.cron)
	if reg.InitialDelay > 0 {
		trigger = trigger.StartAt(s.now().Add(reg.InitialDelay))
	} else {
		trigger = trigger.StartImmediately()
	}
	cj, err := trigger.Tag(reg.Name).Do(s.tick, reg.Name, gen)
	if err != nil {
		if ok {
			// The old trigger is gone; keep the record so the name stays visible.
			delete(s.entries, next.Name)
		}
		return Registration{}, err
	}
	if nr := cj.NextRun(); !nr.IsZero() {
		reg.NextRun = nr
	}

	entry := &cronEntry{reg: reg, gen: gen, backoff: b}
	if ok && !policyCancelsRun(policy) {
		// An in-flight run of the previous version finishes under the new entry.
		entry.running = old.running
		entry.runGen = old.runGen
		entry.cancel = old.cancel
	}
	s.entries[reg.Name] = entry

	metrics.Registrations.WithLabelValues(reg.Name, policy.String()).Inc()
	s.logger.Infow("cron: registered", "name", reg.Name, "kind", reg.Kind, "policy", policy.String(),
		"id", reg.ID, "nextRun", reg.NextRun)
	return reg, nil
}

func policyCancelsRun(p Policy) bool {
	return p == PolicyReplace
}

// retire removes the gocron trigger and pending retry of e. Caller holds s.mu.
func (s *CronScheduler) retire(e *cronEntry, cancelRun bool) {
	if err := s.cron.RemoveByTag(e.reg.Name); err != nil && !errors.Is(err, gocron.ErrJobNotFoundWithTag) {
		s.logger.Warnw("cron: failed to remove trigger", "name", e.reg.Name, "error", err)
	}
	if e.retry != nil {
		e.retry.Stop()
		e.retry = nil
	}
	if cancelRun && e.cancel != nil {
		e.cancel()
	}
}

// tick is called by gocron. Each tick starts a new cycle, so the retry budget
// is measured from the tick rather than from registration or the last run.
func (s *CronScheduler) tick(name string, gen uint64) {
	s.mu.Lock()
	if e, ok := s.entries[name]; ok && e.gen == gen && !e.running {
		if e.retry != nil {
			e.retry.Stop()
			e.retry = nil
		}
		e.backoff.Reset()
	}
	s.mu.Unlock()

	s.fire(name, gen)
}

// fire starts a run. Retry timers call it directly to stay within the cycle.
func (s *CronScheduler) fire(name string, gen uint64) {
	s.mu.Lock()
	e, ok := s.entries[name]
	if !ok || e.gen != gen || s.stopped {
		s.mu.Unlock()
		return
	}
	if e.running {
		s.mu.Unlock()
		s.logger.Warnw("cron: previous run still active, skipping", "name", name)
		return
	}
	e.running = true
	e.runGen = gen
	reg := e.reg
	s.mu.Unlock()

	submitted := s.pool.Submit(Task{
		Name: name,
		Execute: func(ctx context.Context) error {
			s.execute(ctx, reg, gen)
			return nil
		},
	})
	if !submitted {
		s.finish(name, gen, nil)
		s.scheduleRetry(name, gen, "queue_full")
	}
}

func (s *CronScheduler) execute(ctx context.Context, reg Registration, gen uint64) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.mu.Lock()
	if e, ok := s.entries[reg.Name]; ok && e.running && e.runGen == gen {
		e.cancel = cancel
	}
	s.mu.Unlock()

	if reg.RequiresNetwork && s.cfg.Probe != nil && !s.cfg.Probe.Online(ctx) {
		s.logger.Warnw("cron: network constraint not met, deferring", "name", reg.Name)
		s.finish(reg.Name, gen, nil)
		s.scheduleRetry(reg.Name, gen, "network")
		return
	}

	outcome := s.runner.Run(ctx, reg.Input)
	s.finish(reg.Name, gen, &outcome)

	switch {
	case outcome == job.OutcomeRetry && ctx.Err() == nil:
		s.scheduleRetry(reg.Name, gen, "retry")
	case outcome == job.OutcomeRetry:
		s.logger.Infow("cron: run cancelled", "name", reg.Name)
	}
}

// finish clears the running flag. A nil outcome means the job did not run.
// One-shots are dropped once they end without asking for a retry.
func (s *CronScheduler) finish(name string, gen uint64, outcome *job.Outcome) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[name]
	if !ok {
		return
	}
	if e.running && e.runGen == gen {
		e.running = false
		e.cancel = nil
	}
	if e.gen != gen || outcome == nil {
		return
	}

	if *outcome == job.OutcomeRetry {
		return
	}
	e.backoff.Reset()
	if e.reg.Kind == KindOneShot {
		delete(s.entries, name)
	}
}

func (s *CronScheduler) scheduleRetry(name string, gen uint64, reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[name]
	if !ok || e.gen != gen || s.stopped {
		return
	}

	delay := e.backoff.NextBackOff()
	if delay == backoff.Stop {
		s.logger.Warnw("cron: retries exhausted until next tick", "name", name, "reason", reason)
		e.backoff.Reset()
		if e.reg.Kind == KindOneShot {
			delete(s.entries, name)
		}
		return
	}

	if e.retry != nil {
		e.retry.Stop()
	}
	e.retry = time.AfterFunc(delay, func() { s.fire(name, gen) })
	metrics.RetriesScheduled.WithLabelValues(name, reason).Inc()
	s.logger.Infow("cron: retry scheduled", "name", name, "reason", reason, "in", delay)
}

// Registrations returns the active registrations ordered by name.
func (s *CronScheduler) Registrations() []Registration {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Registration, 0, len(s.entries))
	for _, e := range s.entries {
		reg := e.reg
		if jobs, err := s.cron.FindJobsByTag(reg.Name); err == nil && len(jobs) > 0 {
			if nr := jobs[0].NextRun(); !nr.IsZero() {
				reg.NextRun = nr
			}
		}
		out = append(out, reg)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
