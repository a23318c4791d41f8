//go:build property
// +build property

package pool

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestPoolProperties checks that every submitted job runs exactly once.
func TestPoolProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	properties.Property("each job runs exactly once", prop.ForAll(
		func(size, jobs int) bool {
			p, err := New(size)
			if err != nil {
				return false
			}

			counts := make([]atomic.Int32, jobs)
			for i := 0; i < jobs; i++ {
				i := i
				if err := p.Submit(func() { counts[i].Add(1) }); err != nil {
					return false
				}
			}
			p.Shutdown()

			for i := range counts {
				if counts[i].Load() != 1 {
					return false
				}
			}
			return p.Stats().Completed == int64(jobs)
		},
		gen.IntRange(1, 16),
		gen.IntRange(0, 500),
	))

	properties.Property("peak concurrency never exceeds pool size", prop.ForAll(
		func(size, jobs int) bool {
			p, err := New(size)
			if err != nil {
				return false
			}

			var wg sync.WaitGroup
			for i := 0; i < jobs; i++ {
				wg.Add(1)
				_ = p.Submit(func() { wg.Done() })
			}
			wg.Wait()
			p.Shutdown()

			return p.Stats().PeakActive <= int64(size)
		},
		gen.IntRange(1, 8),
		gen.IntRange(1, 200),
	))

	properties.TestingRun(t)
}
