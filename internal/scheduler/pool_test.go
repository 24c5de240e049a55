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

func TestWorkerPoolSubmitAndExecute(t *testing.T) {
	pool := NewWorkerPool(WorkerPoolConfig{MaxWorkers: 2, QueueSize: 10}, nil)
	pool.Start()
	defer pool.Shutdown(context.Background())

	done := make(chan struct{})
	require.True(t, pool.Submit(Task{Name: "test", Execute: func(ctx context.Context) error {
		close(done)
		return nil
	}}))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("task did not execute")
	}
}

func TestWorkerPoolBoundedConcurrency(t *testing.T) {
	pool := NewWorkerPool(WorkerPoolConfig{MaxWorkers: 2, QueueSize: 100}, nil)
	pool.Start()
	defer pool.Shutdown(context.Background())

	var current, maxSeen int32
	var mu sync.Mutex
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		pool.Submit(Task{Name: "concurrent", Execute: func(ctx context.Context) error {
			defer wg.Done()
			n := atomic.AddInt32(&current, 1)
			defer atomic.AddInt32(&current, -1)
			mu.Lock()
			if n > maxSeen {
				maxSeen = n
			}
			mu.Unlock()
			time.Sleep(10 * time.Millisecond)
			return nil
		}})
	}
	wg.Wait()

	assert.LessOrEqual(t, maxSeen, int32(2))
}

func TestWorkerPoolDropsWhenFull(t *testing.T) {
	pool := NewWorkerPool(WorkerPoolConfig{MaxWorkers: 1, QueueSize: 1}, nil)

	// not started: the queue fills up
	assert.True(t, pool.Submit(Task{Name: "a", Execute: func(context.Context) error { return nil }}))
	assert.False(t, pool.Submit(Task{Name: "b", Execute: func(context.Context) error { return nil }}))
	assert.Equal(t, 1, pool.QueueDepth())
}

func TestWorkerPoolJobTimeout(t *testing.T) {
	pool := NewWorkerPool(WorkerPoolConfig{MaxWorkers: 1, QueueSize: 1, JobTimeout: 20 * time.Millisecond}, nil)
	pool.Start()
	defer pool.Shutdown(context.Background())

	errCh := make(chan error, 1)
	pool.Submit(Task{Name: "slow", Execute: func(ctx context.Context) error {
		<-ctx.Done()
		errCh <- ctx.Err()
		return ctx.Err()
	}})

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	case <-time.After(2 * time.Second):
		t.Fatal("task was not cancelled")
	}
}

func TestWorkerPoolRecoversPanics(t *testing.T) {
	pool := NewWorkerPool(WorkerPoolConfig{MaxWorkers: 1, QueueSize: 2}, nil)
	pool.Start()
	defer pool.Shutdown(context.Background())

	pool.Submit(Task{Name: "panics", Execute: func(context.Context) error { panic("boom") }})

	done := make(chan struct{})
	pool.Submit(Task{Name: "after", Execute: func(context.Context) error { close(done); return nil }})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker died after panic")
	}
}

func TestWorkerPoolShutdownRejectsSubmit(t *testing.T) {
	pool := NewWorkerPool(WorkerPoolConfig{MaxWorkers: 1, QueueSize: 1}, nil)
	pool.Start()
	require.NoError(t, pool.Shutdown(context.Background()))
	require.NoError(t, pool.Shutdown(context.Background()))

	assert.False(t, pool.Submit(Task{Name: "late", Execute: func(context.Context) error { return nil }}))
}

type outcomeRunner struct{ outcome job.Outcome }

func (r outcomeRunner) Run(ctx context.Context, in job.Input) job.Outcome {
	if !in.IsTest {
		return job.OutcomePermanentFailure
	}
	return r.outcome
}

func TestPoolRunnerRunNow(t *testing.T) {
	pool := NewWorkerPool(WorkerPoolConfig{MaxWorkers: 1, QueueSize: 1}, nil)
	pool.Start()
	defer pool.Shutdown(context.Background())

	r := NewPoolRunner(pool, outcomeRunner{outcome: job.OutcomeSuccess})
	outcome, err := r.RunNow(context.Background(), job.Input{IsTest: true})
	require.NoError(t, err)
	assert.Equal(t, job.OutcomeSuccess, outcome)
}

func TestPoolRunnerQueueFull(t *testing.T) {
	pool := NewWorkerPool(WorkerPoolConfig{MaxWorkers: 1, QueueSize: 1}, nil)
	pool.Submit(Task{Name: "filler", Execute: func(context.Context) error { return nil }})

	_, err := NewPoolRunner(pool, outcomeRunner{}).RunNow(context.Background(), job.Input{})
	assert.ErrorIs(t, err, ErrQueueFull)
}
