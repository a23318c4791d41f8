package pool

import "sync"

// message is the unit of work handed to a worker. Exactly one of the
// concrete types below is ever enqueued.
type message interface {
	isMessage()
}

// runMessage asks a worker to run a job.
type runMessage struct {
	job Job
}

// stopMessage asks a worker to exit its loop.
type stopMessage struct{}

func (runMessage) isMessage()  {}
func (stopMessage) isMessage() {}

// taskQueue is an unbounded multi-producer, multi-consumer FIFO.
// Producers never block beyond the mutex; consumers block in pop until a
// message is available.
type taskQueue struct {
	mu    sync.Mutex
	cond  *sync.Cond
	items []message
	head  int
}

func newTaskQueue() *taskQueue {
	q := &taskQueue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// push appends msg and wakes one waiting consumer.
func (q *taskQueue) push(msg message) {
	q.mu.Lock()
	q.items = append(q.items, msg)
	q.mu.Unlock()
	q.cond.Signal()
}

// pop removes and returns the oldest message, blocking while empty.
func (q *taskQueue) pop() message {
	q.mu.Lock()
	defer q.mu.Unlock()

	for q.head == len(q.items) {
		q.cond.Wait()
	}

	msg := q.items[q.head]
	q.items[q.head] = nil
	q.head++

	// Compact once the consumed prefix dominates the backing array.
	if q.head > 64 && q.head*2 >= len(q.items) {
		n := copy(q.items, q.items[q.head:])
		clear(q.items[n:])
		q.items = q.items[:n]
		q.head = 0
	}

	return msg
}

// len returns the number of messages waiting to be dequeued.
func (q *taskQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items) - q.head
}
