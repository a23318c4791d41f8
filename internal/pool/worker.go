package pool

import (
	"context"
	"fmt"
	"runtime/debug"
)

// workerState describes what a worker is doing.
type workerState int32

const (
	workerIdle workerState = iota
	workerBusy
	workerStopped
)

func (s workerState) String() string {
	switch s {
	case workerIdle:
		return "idle"
	case workerBusy:
		return "busy"
	case workerStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

type worker struct {
	id    int
	pool  *Pool
	state workerState
}

func newWorker(id int, p *Pool) *worker {
	return &worker{id: id, pool: p, state: workerIdle}
}

// run is the worker loop. It exits only on a stop message.
func (w *worker) run() {
	defer w.pool.workerWg.Done()

	for {
		switch msg := w.pool.queue.pop().(type) {
		case runMessage:
			w.state = workerBusy
			w.execute(msg.job)
			w.state = workerIdle
		case stopMessage:
			w.state = workerStopped
			w.pool.logger.Debug(context.Background(), "Worker stopped", "worker", w.id)
			return
		}
	}
}

// execute runs job, recovering from panics so the worker stays alive.
func (w *worker) execute(job Job) {
	panicked := true
	w.pool.metrics.jobStarted()
	defer func() {
		if r := recover(); r != nil {
			w.pool.logger.Error(context.Background(), fmt.Errorf("panic: %v", r),
				"Job panicked", "worker", w.id, "stack", string(debug.Stack()))
		}
		w.pool.metrics.jobFinished(panicked)
	}()

	job()
	panicked = false
}
