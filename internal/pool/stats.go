package pool

import "sync/atomic"

// Stats is a point-in-time snapshot of pool activity.
type Stats struct {
	Workers    int   `json:"workers"`
	Submitted  int64 `json:"submitted"`
	Completed  int64 `json:"completed"`
	Panicked   int64 `json:"panicked"`
	Active     int64 `json:"active"`
	PeakActive int64 `json:"peak_active"`
	Queued     int   `json:"queued"`
}

// poolMetrics tracks pool counters lock-free.
type poolMetrics struct {
	submitted atomic.Int64
	completed atomic.Int64
	panicked  atomic.Int64
	active    atomic.Int64
	peak      atomic.Int64
}

func (m *poolMetrics) jobStarted() {
	active := m.active.Add(1)
	for {
		peak := m.peak.Load()
		if active <= peak || m.peak.CompareAndSwap(peak, active) {
			return
		}
	}
}

func (m *poolMetrics) jobFinished(panicked bool) {
	m.active.Add(-1)
	if panicked {
		m.panicked.Add(1)
	}
	m.completed.Add(1)
}
