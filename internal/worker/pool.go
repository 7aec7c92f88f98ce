package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/dontdude/tiobot/internal/domain"
)

// DefaultJobTimeout bounds one dispatch: remote execution plus any fetch and paste upload.
const DefaultJobTimeout = 2 * time.Minute

// Pool implements a fixed-size worker pool.
// It bounds how many invocations are dispatched to the execution provider at once.
type Pool struct {
	// workerCount determines how many invocations run concurrently.
	workerCount int
	// tasksCh is the queue for incoming jobs.
	tasksCh chan domain.Job
	// wg tracks active workers to ensure graceful shutdown.
	wg sync.WaitGroup

	dispatcher    domain.Dispatcher
	jobTimeout    time.Duration
	startDeadline time.Duration
}

// NewPool initializes the worker pool with a fixed concurrency limit.
// Jobs delivered more than startDeadline before a worker reaches them are skipped; zero
// disables the check.
func NewPool(concurrency int, dispatcher domain.Dispatcher, jobTimeout, startDeadline time.Duration) *Pool {
	if concurrency < 1 {
		concurrency = 1
	}
	if jobTimeout <= 0 {
		jobTimeout = DefaultJobTimeout
	}
	return &Pool{
		workerCount: concurrency,
		tasksCh:     make(chan domain.Job, concurrency),
		dispatcher:    dispatcher,
		jobTimeout:    jobTimeout,
		startDeadline: startDeadline,
	}
}

// Start spawns the workers and returns immediately. Jobs inherit cancellation from ctx.
func (p *Pool) Start(ctx context.Context) {
	slog.Info("Starting worker pool", "concurrency", p.workerCount)

	for i := 0; i < p.workerCount; i++ {
		p.wg.Add(1)
		go p.worker(ctx, i)
	}
}

// Stop closes the queue and blocks until every worker has finished its current job.
func (p *Pool) Stop() {
	slog.Info("Stopping worker pool, waiting for tasks to drain...")
	close(p.tasksCh)
	p.wg.Wait()
	slog.Info("Worker pool stopped")
}

// Submit adds a job to the queue.
// It blocks while the queue and all workers are saturated.
func (p *Pool) Submit(job domain.Job) {
	p.tasksCh <- job
}

func (p *Pool) worker(ctx context.Context, id int) {
	defer p.wg.Done()
	slog.Debug("Worker started", "workerID", id)

	for job := range p.tasksCh {
		if p.expired(job) {
			// Recovery answers it once the entry goes stale.
			slog.Warn("Skipping job that waited too long to start", "workerID", id, "jobID", job.ID, "waited", time.Since(job.Delivered))
			continue
		}

		slog.Debug("Processing job", "workerID", id, "jobID", job.ID)
		result := p.run(ctx, job)

		if job.ResultCh != nil {
			job.ResultCh <- result
		}
	}

	slog.Debug("Worker stopped", "workerID", id)
}

func (p *Pool) expired(job domain.Job) bool {
	return p.startDeadline > 0 && !job.Delivered.IsZero() && time.Since(job.Delivered) > p.startDeadline
}

// run dispatches one job under its own deadline.
func (p *Pool) run(ctx context.Context, job domain.Job) domain.JobResult {
	ctx, cancel := context.WithTimeout(ctx, p.jobTimeout)
	defer cancel()

	start := time.Now()
	resp := p.dispatcher.Dispatch(ctx, job.Invocation)
	slog.Info("Job dispatched", "jobID", job.ID, "duration", time.Since(start))

	return domain.JobResult{JobID: job.ID, RawID: job.RawID, Response: resp}
}
