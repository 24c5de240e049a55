package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/weather-notifier/internal/job"
)

type recordingRunner struct {
	mu       sync.Mutex
	inputs   []job.Input
	outcomes []job.Outcome
	block    chan struct{}
	calls    int32
}

func (r *recordingRunner) Run(ctx context.Context, in job.Input) job.Outcome {
	n := atomic.AddInt32(&r.calls, 1)
	if r.block != nil {
		select {
		case <-r.block:
		case <-ctx.Done():
			return job.OutcomeRetry
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.inputs = append(r.inputs, in)
	if int(n) <= len(r.outcomes) {
		return r.outcomes[n-1]
	}
	return job.OutcomeSuccess
}

func (r *recordingRunner) Calls() int {
	return int(atomic.LoadInt32(&r.calls))
}

func newTestCron(t *testing.T, runner Runner, probe NetworkProbe) *CronScheduler {
	t.Helper()
	return newTestCronWithBudget(t, runner, probe, time.Minute)
}

func newTestCronWithBudget(t *testing.T, runner Runner, probe NetworkProbe, maxElapsed time.Duration) *CronScheduler {
	t.Helper()
	pool := NewWorkerPool(WorkerPoolConfig{MaxWorkers: 2, QueueSize: 8, JobTimeout: 5 * time.Second}, nil)
	s := NewCronScheduler(runner, pool, CronConfig{
		Location:             time.UTC,
		RetryInitialInterval: 10 * time.Millisecond,
		RetryMaxElapsed:      maxElapsed,
		Probe:                probe,
	}, nil)
	t.Cleanup(func() { _ = s.Stop(context.Background()) })
	return s
}

func (s *CronScheduler) generation(name string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[name]; ok {
		return e.gen
	}
	return 0
}

func (s *CronScheduler) has(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entries[name]
	return ok
}

func TestCronUpdateKeepsSingleTrigger(t *testing.T) {
	s := newTestCron(t, &recordingRunner{}, nil)
	ctx := context.Background()

	spec := PeriodicSpec{Interval: DailyInterval, InitialDelay: time.Hour, RequiresNetwork: true}
	first, err := s.RegisterPeriodic(ctx, DailyWorkName, PolicyUpdate, spec)
	require.NoError(t, err)

	spec.InitialDelay = 2 * time.Hour
	second, err := s.RegisterPeriodic(ctx, DailyWorkName, PolicyUpdate, spec)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, s.cron.Jobs(), 1)

	regs := s.Registrations()
	require.Len(t, regs, 1)
	assert.Equal(t, 2*time.Hour, regs[0].InitialDelay)
}

func TestCronReplaceCreatesNewRegistration(t *testing.T) {
	s := newTestCron(t, &recordingRunner{}, nil)
	ctx := context.Background()

	first, err := s.RegisterOneShot(ctx, TestWorkName, PolicyReplace, OneShotSpec{Delay: time.Hour, Input: job.Input{IsTest: true}})
	require.NoError(t, err)
	second, err := s.RegisterOneShot(ctx, TestWorkName, PolicyReplace, OneShotSpec{Delay: 2 * time.Hour, Input: job.Input{IsTest: true}})
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
	assert.Len(t, s.cron.Jobs(), 1)
	require.Len(t, s.Registrations(), 1)
	assert.Equal(t, second.ID, s.Registrations()[0].ID)
}

func TestCronRejectsNonPositiveInterval(t *testing.T) {
	s := newTestCron(t, &recordingRunner{}, nil)
	_, err := s.RegisterPeriodic(context.Background(), "bad", PolicyUpdate, PeriodicSpec{})
	assert.Error(t, err)
}

func TestCronFireRunsOnPoolAndDropsOneShot(t *testing.T) {
	runner := &recordingRunner{}
	s := newTestCron(t, runner, nil)
	s.pool.Start()

	_, err := s.RegisterOneShot(context.Background(), TestWorkName, PolicyReplace,
		OneShotSpec{Delay: time.Hour, Input: job.Input{IsTest: true}})
	require.NoError(t, err)

	s.fire(TestWorkName, s.generation(TestWorkName))

	require.Eventually(t, func() bool { return runner.Calls() == 1 }, 2*time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return !s.has(TestWorkName) }, 2*time.Second, 5*time.Millisecond)

	runner.mu.Lock()
	assert.True(t, runner.inputs[0].IsTest)
	runner.mu.Unlock()
}

func TestCronRetryOutcomeReruns(t *testing.T) {
	runner := &recordingRunner{outcomes: []job.Outcome{job.OutcomeRetry, job.OutcomeRetry, job.OutcomeSuccess}}
	s := newTestCron(t, runner, nil)
	s.pool.Start()

	_, err := s.RegisterPeriodic(context.Background(), DailyWorkName, PolicyUpdate,
		PeriodicSpec{Interval: DailyInterval, InitialDelay: time.Hour})
	require.NoError(t, err)

	s.fire(DailyWorkName, s.generation(DailyWorkName))

	require.Eventually(t, func() bool { return runner.Calls() == 3 }, 3*time.Second, 5*time.Millisecond)
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 3, runner.Calls(), "success stops the retries")
	assert.True(t, s.has(DailyWorkName), "periodic registrations survive runs")
}

func TestCronTickLongAfterRegistrationStillRetries(t *testing.T) {
	runner := &recordingRunner{outcomes: []job.Outcome{job.OutcomeRetry, job.OutcomeSuccess}}
	s := newTestCronWithBudget(t, runner, nil, 200*time.Millisecond)
	s.pool.Start()

	_, err := s.RegisterPeriodic(context.Background(), DailyWorkName, PolicyUpdate,
		PeriodicSpec{Interval: DailyInterval, InitialDelay: time.Hour})
	require.NoError(t, err)

	// The tick arrives after the whole retry budget has passed since registration.
	time.Sleep(400 * time.Millisecond)
	s.tick(DailyWorkName, s.generation(DailyWorkName))

	require.Eventually(t, func() bool { return runner.Calls() == 2 }, 2*time.Second, 5*time.Millisecond)
}

func TestCronEveryTickGetsAFreshRetryBudget(t *testing.T) {
	runner := &recordingRunner{outcomes: []job.Outcome{
		job.OutcomeSuccess, job.OutcomeRetry, job.OutcomeSuccess,
	}}
	s := newTestCronWithBudget(t, runner, nil, 200*time.Millisecond)
	s.pool.Start()

	_, err := s.RegisterPeriodic(context.Background(), DailyWorkName, PolicyUpdate,
		PeriodicSpec{Interval: DailyInterval, InitialDelay: time.Hour})
	require.NoError(t, err)
	gen := s.generation(DailyWorkName)

	s.tick(DailyWorkName, gen)
	require.Eventually(t, func() bool { return runner.Calls() == 1 }, 2*time.Second, 5*time.Millisecond)

	time.Sleep(400 * time.Millisecond)
	s.tick(DailyWorkName, gen)
	require.Eventually(t, func() bool { return runner.Calls() == 3 }, 2*time.Second, 5*time.Millisecond)
}

func TestCronNetworkDeferralAfterLateTick(t *testing.T) {
	var online atomic.Bool
	runner := &recordingRunner{}
	s := newTestCronWithBudget(t, runner, ProbeFunc(func(context.Context) bool { return online.Load() }), 200*time.Millisecond)
	s.pool.Start()

	_, err := s.RegisterPeriodic(context.Background(), DailyWorkName, PolicyUpdate,
		PeriodicSpec{Interval: DailyInterval, InitialDelay: time.Hour, RequiresNetwork: true})
	require.NoError(t, err)

	time.Sleep(400 * time.Millisecond)
	s.tick(DailyWorkName, s.generation(DailyWorkName))
	time.Sleep(30 * time.Millisecond)
	assert.Zero(t, runner.Calls())

	online.Store(true)
	require.Eventually(t, func() bool { return runner.Calls() == 1 }, 2*time.Second, 5*time.Millisecond)
}

func TestCronPermanentFailureDoesNotRetry(t *testing.T) {
	runner := &recordingRunner{outcomes: []job.Outcome{job.OutcomePermanentFailure}}
	s := newTestCron(t, runner, nil)
	s.pool.Start()

	_, err := s.RegisterPeriodic(context.Background(), DailyWorkName, PolicyUpdate,
		PeriodicSpec{Interval: DailyInterval, InitialDelay: time.Hour})
	require.NoError(t, err)

	s.fire(DailyWorkName, s.generation(DailyWorkName))

	require.Eventually(t, func() bool { return runner.Calls() == 1 }, 2*time.Second, 5*time.Millisecond)
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 1, runner.Calls())
}

func TestCronWaitsForNetwork(t *testing.T) {
	var online atomic.Bool
	runner := &recordingRunner{}
	s := newTestCron(t, runner, ProbeFunc(func(context.Context) bool { return online.Load() }))
	s.pool.Start()

	_, err := s.RegisterPeriodic(context.Background(), DailyWorkName, PolicyUpdate,
		PeriodicSpec{Interval: DailyInterval, InitialDelay: time.Hour, RequiresNetwork: true})
	require.NoError(t, err)

	s.fire(DailyWorkName, s.generation(DailyWorkName))
	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, runner.Calls(), "offline runs are deferred")

	online.Store(true)
	require.Eventually(t, func() bool { return runner.Calls() == 1 }, 3*time.Second, 5*time.Millisecond)
}

func TestCronNeverOverlapsSameName(t *testing.T) {
	runner := &recordingRunner{block: make(chan struct{})}
	s := newTestCron(t, runner, nil)
	s.pool.Start()

	_, err := s.RegisterPeriodic(context.Background(), DailyWorkName, PolicyUpdate,
		PeriodicSpec{Interval: DailyInterval, InitialDelay: time.Hour})
	require.NoError(t, err)

	gen := s.generation(DailyWorkName)
	s.fire(DailyWorkName, gen)
	require.Eventually(t, func() bool { return runner.Calls() == 1 }, 2*time.Second, 5*time.Millisecond)

	s.fire(DailyWorkName, gen)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, runner.Calls())

	close(runner.block)
}

func TestCronStaleGenerationIsIgnored(t *testing.T) {
	runner := &recordingRunner{}
	s := newTestCron(t, runner, nil)
	s.pool.Start()

	_, err := s.RegisterOneShot(context.Background(), TestWorkName, PolicyReplace, OneShotSpec{Delay: time.Hour})
	require.NoError(t, err)
	stale := s.generation(TestWorkName)

	_, err = s.RegisterOneShot(context.Background(), TestWorkName, PolicyReplace, OneShotSpec{Delay: time.Hour})
	require.NoError(t, err)

	s.fire(TestWorkName, stale)
	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, runner.Calls())
}

func TestCronImmediateOneShotEndToEnd(t *testing.T) {
	runner := &recordingRunner{}
	s := newTestCron(t, runner, nil)
	s.Start()

	_, err := s.RegisterOneShot(context.Background(), TestWorkName, PolicyReplace,
		OneShotSpec{Delay: 0, Input: job.Input{IsTest: true}})
	require.NoError(t, err)

	require.Eventually(t, func() bool { return runner.Calls() == 1 }, 3*time.Second, 10*time.Millisecond)
}

func TestCronStopRejectsRegistration(t *testing.T) {
	s := newTestCron(t, &recordingRunner{}, nil)
	s.Start()
	require.NoError(t, s.Stop(context.Background()))

	_, err := s.RegisterOneShot(context.Background(), TestWorkName, PolicyReplace, OneShotSpec{})
	assert.ErrorIs(t, err, ErrSchedulerStopped)
}
