package driver

import (
	"fmt"
	"sync/atomic"
)

type metrics struct {
	checks   atomic.Int64 // checker invocations, rechecks included
	rechecks atomic.Int64 // checks repeated after a dependency moved
	stale    atomic.Int64 // results given up for the next run
	skipped  atomic.Int64 // definitions not checked

	duplicates atomic.Int64 // repeated diagnostics dropped

	batchCount     atomic.Int64
	batchSizeTotal atomic.Int64
	batchSizeMax   atomic.Int64
}

func (m *metrics) batch(size int) {
	m.batchCount.Add(1)
	m.batchSizeTotal.Add(int64(size))
	for {
		cur := m.batchSizeMax.Load()
		if int64(size) <= cur || m.batchSizeMax.CompareAndSwap(cur, int64(size)) {
			return
		}
	}
}

func (m *metrics) stats() Stats {
	return Stats{
		Checks:         m.checks.Load(),
		Rechecks:       m.rechecks.Load(),
		Stale:          m.stale.Load(),
		Skipped:        m.skipped.Load(),
		Duplicates:     m.duplicates.Load(),
		Batches:        m.batchCount.Load(),
		BatchSizeTotal: m.batchSizeTotal.Load(),
		BatchSizeMax:   m.batchSizeMax.Load(),
	}
}

// Stats counts the work of one run.
type Stats struct {
	Checks         int64
	Rechecks       int64
	Stale          int64
	Skipped        int64
	Duplicates     int64
	Batches        int64
	BatchSizeTotal int64
	BatchSizeMax   int64
}

func (s Stats) String() string {
	avg := 0.0
	if s.Batches > 0 {
		avg = float64(s.BatchSizeTotal) / float64(s.Batches)
	}
	return fmt.Sprintf("checks: %d (rechecks=%d, stale=%d, skipped=%d), batches: %d (avg=%.1f, max=%d), duplicate diagnostics: %d",
		s.Checks, s.Rechecks, s.Stale, s.Skipped, s.Batches, avg, s.BatchSizeMax, s.Duplicates)
}
