// Package worker runs pipeline jobs on a bounded set of goroutines so one
// slow post cannot starve other requests.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"igfetch/pkg/logger"
	"igfetch/pkg/metrics"
	"igfetch/pkg/strategy"
)

// ErrPoolClosed is returned by Submit once Stop has been called
var ErrPoolClosed = errors.New("worker pool is shutting down")

// Runner executes one pipeline run. *pipeline.Pipeline satisfies it.
type Runner interface {
	Run(ctx context.Context, rawURL string) (*strategy.Result, error)
}

// Job is a single pipeline run waiting in the queue
type Job struct {
	ID  string
	URL string

	ctx   context.Context
	reply chan JobResult
}

// JobResult is what a worker hands back for a Job
type JobResult struct {
	Job      Job
	Result   *strategy.Result
	Error    error
	Duration time.Duration
}

// Pool manages concurrent pipeline workers
type Pool struct {
	numWorkers int
	jobQueue   chan Job
	wg         sync.WaitGroup
	ctx        context.Context
	cancel     context.CancelFunc
	runner     Runner
	metrics    *metrics.Metrics
	logger     logger.Logger

	mu     sync.RWMutex
	closed bool
	active int32
}

// NewPool creates a pool of numWorkers goroutines in front of runner.
// queueSize bounds how many jobs may wait; zero means 2x workers.
func NewPool(numWorkers, queueSize int, runner Runner, m *metrics.Metrics, log logger.Logger) *Pool {
	if numWorkers < 1 {
		numWorkers = 1
	}
	if queueSize < 1 {
		queueSize = numWorkers * 2
	}
	if log == nil {
		log = logger.NewNopLogger()
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Pool{
		numWorkers: numWorkers,
		jobQueue:   make(chan Job, queueSize),
		ctx:        ctx,
		cancel:     cancel,
		runner:     runner,
		metrics:    m,
		logger:     log,
	}
}

// Start launches the workers
func (p *Pool) Start() {
	p.logger.InfoWithFields("Starting worker pool", map[string]interface{}{
		"num_workers": p.numWorkers,
		"queue_size":  cap(p.jobQueue),
	})

	for i := 0; i < p.numWorkers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

// Stop refuses new jobs, lets running jobs finish and waits for the
// workers. Jobs still queued are answered with ErrPoolClosed.
func (p *Pool) Stop() {
	p.logger.Info("Stopping worker pool...")

	// unblock submitters waiting for queue space before taking the lock
	p.cancel()

	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.jobQueue)
	}
	p.mu.Unlock()

	p.wg.Wait()
	p.logger.Info("Worker pool stopped")
}

// Submit queues a run for rawURL and waits for its result. It returns early
// with ctx's error if the caller gives up, or ErrPoolClosed on shutdown.
func (p *Pool) Submit(ctx context.Context, id, rawURL string) (*strategy.Result, error) {
	job := Job{
		ID:    id,
		URL:   rawURL,
		ctx:   ctx,
		reply: make(chan JobResult, 1),
	}

	if err := p.enqueue(ctx, job); err != nil {
		return nil, err
	}

	select {
	case res := <-job.reply:
		return res.Result, res.Error
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (p *Pool) enqueue(ctx context.Context, job Job) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPoolClosed
	}

	select {
	case p.jobQueue <- job:
		p.logger.DebugWithFields("Job submitted to queue", map[string]interface{}{
			"job_id": job.ID,
			"url":    job.URL,
		})
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-p.ctx.Done():
		return ErrPoolClosed
	}
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()

	p.logger.DebugWithFields("Worker started", map[string]interface{}{
		"worker_id": id,
	})

	for job := range p.jobQueue {
		if p.ctx.Err() != nil {
			job.reply <- JobResult{Job: job, Error: ErrPoolClosed}
			continue
		}
		if job.ctx.Err() != nil {
			// the caller already left
			job.reply <- JobResult{Job: job, Error: job.ctx.Err()}
			continue
		}
		job.reply <- p.processJob(job, id)
	}

	p.logger.DebugWithFields("Worker stopping - job queue closed", map[string]interface{}{
		"worker_id": id,
	})
}

// processJob runs the pipeline for one job, turning a panic in the runner
// into an error so the worker survives.
func (p *Pool) processJob(job Job, workerID int) (result JobResult) {
	start := time.Now()
	result.Job = job

	atomic.AddInt32(&p.active, 1)
	p.metrics.IncActiveWorkers()
	defer func() {
		atomic.AddInt32(&p.active, -1)
		p.metrics.DecActiveWorkers()
		if r := recover(); r != nil {
			result.Result = nil
			result.Error = fmt.Errorf("worker panic: %v", r)
			p.logger.ErrorWithFields("Worker recovered from panic", map[string]interface{}{
				"worker_id": workerID,
				"job_id":    job.ID,
				"panic":     fmt.Sprint(r),
			})
		}
		result.Duration = time.Since(start)
	}()

	p.logger.DebugWithFields("Worker processing job", map[string]interface{}{
		"worker_id": workerID,
		"job_id":    job.ID,
	})

	result.Result, result.Error = p.runner.Run(job.ctx, job.URL)

	p.logger.DebugWithFields("Worker finished job", map[string]interface{}{
		"worker_id": workerID,
		"job_id":    job.ID,
		"ok":        result.Error == nil,
		"duration":  time.Since(start),
	})
	return result
}

// QueueSize returns the number of jobs waiting for a worker
func (p *Pool) QueueSize() int {
	return len(p.jobQueue)
}

// ActiveWorkers returns how many workers are running a job right now
func (p *Pool) ActiveWorkers() int {
	return int(atomic.LoadInt32(&p.active))
}

// Size returns the number of workers
func (p *Pool) Size() int {
	return p.numWorkers
}
