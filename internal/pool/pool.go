// Package pool provides a fixed-size worker pool for connection jobs.
//
// A Pool starts a fixed number of worker goroutines that pull jobs from a
// shared unbounded FIFO queue. Submitting never blocks on a busy pool; jobs
// simply wait in the queue until a worker is free. Shutdown enqueues one
// stop message per worker behind every pending job, so all work accepted
// before shutdown runs to completion before the workers exit.
package pool

import (
	"context"
	"sync"

	"github.com/conneroisu/poolserve/internal/errors"
	"github.com/conneroisu/poolserve/internal/logging"
)

// Job is a unit of work. Each submitted job runs exactly once, on exactly
// one worker.
type Job func()

// Pool manages a fixed set of workers sharing one task queue.
type Pool struct {
	size    int
	queue   *taskQueue
	workers []*worker
	logger  logging.Logger
	metrics poolMetrics

	// mu guards closed against concurrent Submit/Shutdown.
	mu     sync.RWMutex
	closed bool

	shutdownOnce sync.Once
	workerWg     sync.WaitGroup
}

// Option configures a Pool.
type Option func(*Pool)

// WithLogger sets the logger used for worker lifecycle and panic reports.
func WithLogger(logger logging.Logger) Option {
	return func(p *Pool) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// New creates a pool with size workers and starts them.
func New(size int, opts ...Option) (*Pool, error) {
	if size <= 0 {
		return nil, errors.ErrInvalidPoolSize
	}

	p := &Pool{
		size:   size,
		queue:  newTaskQueue(),
		logger: logging.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.WithComponent("pool")

	p.workers = make([]*worker, size)
	for i := 0; i < size; i++ {
		w := newWorker(i, p)
		p.workers[i] = w
		p.workerWg.Add(1)
		go w.run()
	}

	p.logger.Debug(context.Background(), "Worker pool started", "workers", size)

	return p, nil
}

// Size returns the number of workers.
func (p *Pool) Size() int {
	return p.size
}

// Submit enqueues job for execution and returns immediately.
func (p *Pool) Submit(job Job) error {
	if job == nil {
		return errors.ErrInvalidJob
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return errors.ErrPoolClosed
	}

	p.metrics.submitted.Add(1)
	p.queue.push(runMessage{job: job})

	return nil
}

// Shutdown stops accepting jobs, lets every queued and running job finish,
// and waits for all workers to exit. It is safe to call more than once and
// from several goroutines; every caller returns after teardown completes.
func (p *Pool) Shutdown() {
	p.shutdownOnce.Do(func() {
		p.mu.Lock()
		p.closed = true
		// Stop messages go in while holding the lock so no job submitted
		// before the close can land behind them.
		for range p.workers {
			p.queue.push(stopMessage{})
		}
		p.mu.Unlock()

		p.logger.Debug(context.Background(), "Shutting down worker pool",
			"workers", p.size, "queued", p.queue.len())

		p.workerWg.Wait()

		p.logger.Debug(context.Background(), "Worker pool stopped",
			"completed", p.metrics.completed.Load())
	})
}

// Closed reports whether Shutdown has been called.
func (p *Pool) Closed() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.closed
}

// Stats returns a snapshot of pool counters.
func (p *Pool) Stats() Stats {
	return Stats{
		Workers:    p.size,
		Submitted:  p.metrics.submitted.Load(),
		Completed:  p.metrics.completed.Load(),
		Panicked:   p.metrics.panicked.Load(),
		Active:     p.metrics.active.Load(),
		PeakActive: p.metrics.peak.Load(),
		Queued:     p.queue.len(),
	}
}
