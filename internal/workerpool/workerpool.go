// Package workerpool implements a fixed-size job pool, adapted from
// stormdb's internal/workerpool for the shard builder's
// partition-map-reduce ingestion (spec §5: "fixed-size work-stealing
// pool ... equals K").
package workerpool

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/tvrank/tvrank/internal/logging"
)

// Job represents a unit of work to be processed by the worker pool.
type Job interface {
	Execute(ctx context.Context) Result
	ID() string
}

// Result represents the result of job execution.
type Result interface {
	JobID() string
	Error() error
	Duration() time.Duration
}

// Pool manages a fixed number of workers draining a shared job queue.
type Pool struct {
	workers int
	jobs    chan Job
	results chan Result
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	logger  logging.Logger

	jobsProcessed int64
	jobsFailed    int64

	bufferSize      int
	shutdownTimeout time.Duration

	running bool
	mutex   sync.RWMutex
}

// Config configures the worker pool.
type Config struct {
	Workers         int
	BufferSize      int
	ShutdownTimeout time.Duration
	Logger          logging.Logger
}

// New creates a worker pool with the given configuration.
func New(config Config) *Pool {
	if config.Workers <= 0 {
		config.Workers = 4
	}
	if config.BufferSize <= 0 {
		config.BufferSize = config.Workers * 2
	}
	if config.ShutdownTimeout <= 0 {
		config.ShutdownTimeout = 30 * time.Second
	}
	if config.Logger == nil {
		config.Logger = logging.NewDefault(0)
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Pool{
		workers:         config.Workers,
		jobs:            make(chan Job, config.BufferSize),
		results:         make(chan Result, config.BufferSize),
		ctx:             ctx,
		cancel:          cancel,
		logger:          config.Logger,
		bufferSize:      config.BufferSize,
		shutdownTimeout: config.ShutdownTimeout,
	}
}

// Start begins processing jobs with the configured number of workers.
func (wp *Pool) Start() error {
	wp.mutex.Lock()
	defer wp.mutex.Unlock()

	if wp.running {
		return errors.New("worker pool is already running")
	}

	wp.logger.Debug("starting worker pool", zap.Int("workers", wp.workers))

	for i := 0; i < wp.workers; i++ {
		wp.wg.Add(1)
		go wp.worker(i)
	}

	wp.running = true
	return nil
}

// Submit adds a job to the work queue. Blocks until there is room or
// the pool is shutting down.
func (wp *Pool) Submit(job Job) error {
	wp.mutex.RLock()
	running := wp.running
	wp.mutex.RUnlock()

	if !running {
		return errors.New("worker pool is not running")
	}

	select {
	case wp.jobs <- job:
		return nil
	case <-wp.ctx.Done():
		return errors.New("worker pool is shutting down")
	}
}

// Results returns the channel results are delivered on.
func (wp *Pool) Results() <-chan Result {
	return wp.results
}

// Shutdown stops accepting jobs, waits for in-flight jobs to finish,
// then closes the results channel.
func (wp *Pool) Shutdown() error {
	wp.mutex.Lock()
	if !wp.running {
		wp.mutex.Unlock()
		return nil
	}
	wp.running = false
	wp.mutex.Unlock()

	close(wp.jobs)

	done := make(chan struct{})
	go func() {
		wp.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(wp.shutdownTimeout):
		wp.logger.Warn("worker pool shutdown timeout exceeded, forcing shutdown")
		wp.cancel()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			return errors.New("shutdown timeout exceeded")
		}
	}

	close(wp.results)
	return nil
}

// Stats reports job counters.
type Stats struct {
	Workers       int
	JobsProcessed int64
	JobsFailed    int64
}

func (wp *Pool) Stats() Stats {
	return Stats{
		Workers:       wp.workers,
		JobsProcessed: atomic.LoadInt64(&wp.jobsProcessed),
		JobsFailed:    atomic.LoadInt64(&wp.jobsFailed),
	}
}

func (wp *Pool) worker(id int) {
	defer wp.wg.Done()

	workerLogger := wp.logger.With(zap.Int("worker_id", id))

	for {
		select {
		case job, ok := <-wp.jobs:
			if !ok {
				return
			}
			wp.processJob(workerLogger, job)
		case <-wp.ctx.Done():
			return
		}
	}
}

func (wp *Pool) processJob(logger logging.Logger, job Job) {
	start := time.Now()

	var result Result
	func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("job execution panicked", fmt.Errorf("panic: %v", r), zap.String("job_id", job.ID()))
				result = &panicResult{jobID: job.ID(), err: fmt.Errorf("job panicked: %v", r), duration: time.Since(start)}
			}
		}()
		result = job.Execute(wp.ctx)
	}()

	atomic.AddInt64(&wp.jobsProcessed, 1)
	if result.Error() != nil {
		atomic.AddInt64(&wp.jobsFailed, 1)
	}

	select {
	case wp.results <- result:
	case <-wp.ctx.Done():
	}
}

type panicResult struct {
	jobID    string
	err      error
	duration time.Duration
}

func (pr *panicResult) JobID() string          { return pr.jobID }
func (pr *panicResult) Error() error           { return pr.err }
func (pr *panicResult) Duration() time.Duration { return pr.duration }
