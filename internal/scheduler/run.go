package scheduler

import (
	"context"
	"errors"

	"github.com/i474232898/weather-notifier/internal/job"
)

var ErrQueueFull = errors.New("worker pool queue is full")

// PoolRunner runs single jobs on demand on the shared worker pool.
type PoolRunner struct {
	pool   *WorkerPool
	runner Runner
}

func NewPoolRunner(pool *WorkerPool, runner Runner) *PoolRunner {
	return &PoolRunner{pool: pool, runner: runner}
}

// RunNow submits one run and waits for its outcome or for ctx to end.
func (p *PoolRunner) RunNow(ctx context.Context, in job.Input) (job.Outcome, error) {
	result := make(chan job.Outcome, 1)
	ok := p.pool.Submit(Task{
		Name: "manual",
		Execute: func(poolCtx context.Context) error {
			runCtx, cancel := context.WithCancel(poolCtx)
			defer cancel()
			stop := context.AfterFunc(ctx, cancel)
			defer stop()

			result <- p.runner.Run(runCtx, in)
			return nil
		},
	})
	if !ok {
		return job.OutcomeRetry, ErrQueueFull
	}

	select {
	case o := <-result:
		return o, nil
	case <-ctx.Done():
		return job.OutcomeRetry, ctx.Err()
	}
}
