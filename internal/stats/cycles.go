package stats

import (
	"sync/atomic"
	"time"
)

// CycleStats aggregates duty-cycle timings reported by workers.
type CycleStats struct {
	Cycles uint64

	busyTotal int64 // nanoseconds
	idleTotal int64

	Busy *SafeHistogram
	Idle *SafeHistogram
}

// CycleSummary is a cheap copy of CycleStats for display.
type CycleSummary struct {
	Cycles     uint64  `json:"cycles"`
	P50BusyMs  float64 `json:"p50_busy_ms"`
	P99BusyMs  float64 `json:"p99_busy_ms"`
	MeanIdleMs float64 `json:"mean_idle_ms"`
	DutyPct    float64 `json:"duty_percent"` // achieved busy share of all cycle time
}

func NewCycleStats() *CycleStats {
	return &CycleStats{
		Busy: NewSafeHistogram(),
		Idle: NewSafeHistogram(),
	}
}

func (s *CycleStats) ObserveCycle(_ int, busy, idle time.Duration) {
	atomic.AddUint64(&s.Cycles, 1)
	atomic.AddInt64(&s.busyTotal, int64(busy))
	atomic.AddInt64(&s.idleTotal, int64(idle))

	s.Busy.Record(busy)
	if idle > 0 {
		s.Idle.Record(idle)
	}
}

func (s *CycleStats) Reset() {
	atomic.StoreUint64(&s.Cycles, 0)
	atomic.StoreInt64(&s.busyTotal, 0)
	atomic.StoreInt64(&s.idleTotal, 0)
	s.Busy.Reset()
	s.Idle.Reset()
}

func (s *CycleStats) Summary() CycleSummary {
	sum := CycleSummary{Cycles: atomic.LoadUint64(&s.Cycles)}
	if sum.Cycles == 0 {
		return sum
	}
	sum.P50BusyMs = s.Busy.QuantileMs(50)
	sum.P99BusyMs = s.Busy.QuantileMs(99)
	if s.Idle.TotalCount() > 0 {
		sum.MeanIdleMs = s.Idle.MeanMs()
	}

	busy := atomic.LoadInt64(&s.busyTotal)
	idle := atomic.LoadInt64(&s.idleTotal)
	if busy+idle > 0 {
		sum.DutyPct = float64(busy) / float64(busy+idle) * 100
	}
	return sum
}
