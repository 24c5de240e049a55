package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/i474232898/weather-notifier/internal/metrics"
)

// Task is a unit of work for the worker pool.
type Task struct {
	// Name is used for logging only
	Name    string
	Execute func(ctx context.Context) error
}

type WorkerPoolConfig struct {
	MaxWorkers int
	QueueSize  int
	JobTimeout time.Duration
}

// WorkerPool runs tasks on a bounded set of goroutines, off the caller's
// goroutine. Submit never blocks.
type WorkerPool struct {
	queue  chan Task
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
	logger *zap.SugaredLogger
	config WorkerPoolConfig

	mu      sync.Mutex
	running bool
	closed  bool
}

func NewWorkerPool(cfg WorkerPoolConfig, logger *zap.SugaredLogger) *WorkerPool {
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = 2
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 16
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = 2 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &WorkerPool{
		queue:  make(chan Task, cfg.QueueSize),
		ctx:    ctx,
		cancel: cancel,
		logger: logger,
		config: cfg,
	}
}

// Start launches the workers. Repeated calls are no-ops.
func (wp *WorkerPool) Start() {
	wp.mu.Lock()
	defer wp.mu.Unlock()

	if wp.running || wp.closed {
		return
	}
	wp.running = true

	wp.logger.Infow("worker pool: starting", "maxWorkers", wp.config.MaxWorkers, "queueSize", wp.config.QueueSize)
	for i := 0; i < wp.config.MaxWorkers; i++ {
		wp.wg.Add(1)
		go wp.worker(i)
	}
}

func (wp *WorkerPool) worker(id int) {
	defer wp.wg.Done()

	for {
		select {
		case <-wp.ctx.Done():
			return
		case task, ok := <-wp.queue:
			if !ok {
				return
			}
			wp.execute(id, task)
		}
	}
}

func (wp *WorkerPool) execute(workerID int, task Task) {
	metrics.WorkerActive.Inc()
	metrics.WorkerQueueDepth.Dec()
	defer metrics.WorkerActive.Dec()

	start := time.Now()
	ctx, cancel := context.WithTimeout(wp.ctx, wp.config.JobTimeout)
	defer cancel()

	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("task panicked: %v", r)
			}
		}()
		return task.Execute(ctx)
	}()

	if err != nil {
		wp.logger.Errorw("worker pool: task failed", "task", task.Name, "workerId", workerID,
			"error", err, "duration", time.Since(start))
	} else {
		wp.logger.Debugw("worker pool: task completed", "task", task.Name, "workerId", workerID,
			"duration", time.Since(start))
	}
	metrics.WorkerJobDuration.Observe(time.Since(start).Seconds())
}

// Submit queues task. It returns false when the queue is full or the pool
// has been shut down.
func (wp *WorkerPool) Submit(task Task) bool {
	wp.mu.Lock()
	defer wp.mu.Unlock()

	if wp.closed {
		wp.logger.Warnw("worker pool: task rejected, pool is shut down", "task", task.Name)
		return false
	}

	select {
	case wp.queue <- task:
		metrics.WorkerQueueDepth.Inc()
		return true
	default:
		metrics.WorkerDropped.Inc()
		wp.logger.Warnw("worker pool: task dropped, queue full", "task", task.Name, "queueSize", wp.config.QueueSize)
		return false
	}
}

// Shutdown cancels running tasks and waits for workers until ctx is done.
func (wp *WorkerPool) Shutdown(ctx context.Context) error {
	wp.mu.Lock()
	if wp.closed {
		wp.mu.Unlock()
		return nil
	}
	wp.closed = true
	wp.running = false
	wp.mu.Unlock()

	wp.logger.Info("worker pool: shutting down")
	wp.cancel()
	close(wp.queue)

	done := make(chan struct{})
	go func() {
		wp.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		wp.logger.Warn("worker pool: shutdown timed out")
		return ctx.Err()
	}
}

func (wp *WorkerPool) QueueDepth() int {
	return len(wp.queue)
}
