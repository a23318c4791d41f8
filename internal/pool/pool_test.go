package pool

import (
	"bytes"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/conneroisu/poolserve/internal/errors"
	"github.com/conneroisu/poolserve/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Run("rejects non-positive sizes", func(t *testing.T) {
		for _, size := range []int{0, -1} {
			p, err := New(size)
			assert.Nil(t, p)
			assert.ErrorIs(t, err, errors.ErrInvalidPoolSize)
		}
	})

	t.Run("starts the requested number of workers", func(t *testing.T) {
		p, err := New(3)
		require.NoError(t, err)
		defer p.Shutdown()

		assert.Equal(t, 3, p.Size())
		assert.Equal(t, 3, p.Stats().Workers)
	})
}

func TestSubmit(t *testing.T) {
	p, err := New(2)
	require.NoError(t, err)

	var ran atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		require.NoError(t, p.Submit(func() {
			defer wg.Done()
			ran.Add(1)
		}))
	}
	wg.Wait()
	p.Shutdown()

	assert.Equal(t, int64(100), ran.Load())
	stats := p.Stats()
	assert.Equal(t, int64(100), stats.Submitted)
	assert.Equal(t, int64(100), stats.Completed)
	assert.Equal(t, 0, stats.Queued)
}

func TestSubmitNilJob(t *testing.T) {
	p, err := New(1)
	require.NoError(t, err)
	defer p.Shutdown()

	assert.ErrorIs(t, p.Submit(nil), errors.ErrInvalidJob)
}

func TestSubmitAfterShutdown(t *testing.T) {
	p, err := New(1)
	require.NoError(t, err)
	p.Shutdown()

	assert.True(t, p.Closed())
	assert.ErrorIs(t, p.Submit(func() {}), errors.ErrPoolClosed)
}

func TestSubmitDoesNotBlockWhenWorkersAreBusy(t *testing.T) {
	p, err := New(1)
	require.NoError(t, err)

	release := make(chan struct{})
	require.NoError(t, p.Submit(func() { <-release }))

	done := make(chan struct{})
	go func() {
		for i := 0; i < 50; i++ {
			_ = p.Submit(func() {})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Submit blocked while the only worker was busy")
	}

	assert.Eventually(t, func() bool { return p.Stats().Queued == 50 }, time.Second, 5*time.Millisecond)

	close(release)
	p.Shutdown()
	assert.Equal(t, int64(51), p.Stats().Completed)
}

func TestShutdownDrainsQueuedJobs(t *testing.T) {
	p, err := New(2)
	require.NoError(t, err)

	var ran atomic.Int64
	for i := 0; i < 20; i++ {
		require.NoError(t, p.Submit(func() {
			time.Sleep(5 * time.Millisecond)
			ran.Add(1)
		}))
	}

	p.Shutdown()

	assert.Equal(t, int64(20), ran.Load(), "every job queued before shutdown must run")
}

func TestShutdownIsIdempotent(t *testing.T) {
	p, err := New(4)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.Shutdown()
		}()
	}

	finished := make(chan struct{})
	go func() {
		wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("concurrent Shutdown calls did not return")
	}

	assert.NotPanics(t, p.Shutdown)
}

func TestBoundedConcurrency(t *testing.T) {
	const size = 3
	p, err := New(size)
	require.NoError(t, err)

	var current, peak atomic.Int64
	for i := 0; i < 30; i++ {
		require.NoError(t, p.Submit(func() {
			n := current.Add(1)
			for {
				old := peak.Load()
				if n <= old || peak.CompareAndSwap(old, n) {
					break
				}
			}
			time.Sleep(2 * time.Millisecond)
			current.Add(-1)
		}))
	}
	p.Shutdown()

	assert.LessOrEqual(t, peak.Load(), int64(size))
	assert.LessOrEqual(t, p.Stats().PeakActive, int64(size))
	assert.Equal(t, int64(0), p.Stats().Active)
}

func TestWorkerSurvivesPanic(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewLogger(&logging.LoggerConfig{Level: logging.LevelDebug, Output: &buf})

	p, err := New(1, WithLogger(logger))
	require.NoError(t, err)

	require.NoError(t, p.Submit(func() { panic("boom") }))

	done := make(chan struct{})
	require.NoError(t, p.Submit(func() { close(done) }))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not survive a panicking job")
	}

	p.Shutdown()

	stats := p.Stats()
	assert.Equal(t, int64(1), stats.Panicked)
	assert.Equal(t, int64(2), stats.Completed)
	assert.Contains(t, buf.String(), "Job panicked")
	assert.Contains(t, buf.String(), "component=pool")
}

func TestQueueFIFO(t *testing.T) {
	q := newTaskQueue()
	var order []int
	for i := 0; i < 200; i++ {
		i := i
		q.push(runMessage{job: func() { order = append(order, i) }})
	}
	assert.Equal(t, 200, q.len())

	for i := 0; i < 200; i++ {
		msg, ok := q.pop().(runMessage)
		require.True(t, ok)
		msg.job()
	}

	require.Len(t, order, 200)
	for i, v := range order {
		assert.Equal(t, i, v)
	}
	assert.Equal(t, 0, q.len())
}

func TestWorkerStateString(t *testing.T) {
	assert.Equal(t, "idle", workerIdle.String())
	assert.Equal(t, "busy", workerBusy.String())
	assert.Equal(t, "stopped", workerStopped.String())
	assert.Equal(t, "unknown", workerState(42).String())
}
