package stats

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"crunch/internal/loadgen"
)

// StatusProvider is the read side of the run controller.
type StatusProvider interface {
	Status() loadgen.RunState
}

// Snapshot is a point-in-time view of host usage and the active run.
type Snapshot struct {
	Running       bool               `json:"is_running"`
	Phase         loadgen.Phase      `json:"phase"`
	RunID         string             `json:"run_id,omitempty"`
	CPUPercent    float64            `json:"cpu_percent"`
	MemoryPercent float64            `json:"memory_percent"`
	RunningTime   float64            `json:"running_time"` // seconds
	Config        *loadgen.RunConfig `json:"config"`
	Cycles        CycleSummary       `json:"cycles"`
	SampledAt     time.Time          `json:"sampled_at"`
}

// Progress is the elapsed share of the configured duration, in [0,1].
func (s Snapshot) Progress() float64 {
	if !s.Running || s.Config == nil || s.Config.Duration <= 0 {
		return 0
	}
	p := s.RunningTime / float64(s.Config.Duration)
	if p > 1 {
		p = 1
	}
	return p
}

// UpdateChan carries snapshots to UIs.
type UpdateChan chan Snapshot

// Collector combines cached host samples with live run state. Snapshot never
// blocks on the Source; sampling happens in Sample/Run.
type Collector struct {
	status StatusProvider
	source Source
	cycles *CycleStats
	log    *zap.Logger

	Updates UpdateChan

	mu        sync.RWMutex
	cpu       float64
	mem       float64
	sampledAt time.Time
}

func NewCollector(status StatusProvider, source Source, cycles *CycleStats, log *zap.Logger, updates UpdateChan) *Collector {
	if log == nil {
		log = zap.NewNop()
	}
	if cycles == nil {
		cycles = NewCycleStats()
	}
	if updates == nil {
		// Avoid nil panics if not provided
		updates = make(UpdateChan, 10)
	}
	return &Collector{
		status:  status,
		source:  source,
		cycles:  cycles,
		log:     log,
		Updates: updates,
	}
}

// Sample refreshes the cached host values. On failure the last known value
// is kept.
func (c *Collector) Sample(ctx context.Context) {
	cpu, cpuErr := c.source.CPUPercent(ctx)
	if cpuErr != nil {
		c.log.Debug("cpu sample failed, keeping last value", zap.Error(cpuErr))
	}
	mem, memErr := c.source.MemoryPercent(ctx)
	if memErr != nil {
		c.log.Debug("memory sample failed, keeping last value", zap.Error(memErr))
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if cpuErr == nil {
		c.cpu = cpu
	}
	if memErr == nil {
		c.mem = mem
	}
	if cpuErr == nil || memErr == nil {
		c.sampledAt = time.Now()
	}
}

func (c *Collector) Snapshot() Snapshot {
	st := c.status.Status()

	c.mu.RLock()
	snap := Snapshot{
		CPUPercent:    c.cpu,
		MemoryPercent: c.mem,
		SampledAt:     c.sampledAt,
	}
	c.mu.RUnlock()

	snap.Running = st.Running
	snap.Phase = st.Phase
	if st.Running {
		snap.RunID = st.RunID
		snap.Config = st.Config
		snap.RunningTime = st.Elapsed.Seconds()
		snap.Cycles = c.cycles.Summary()
	}
	return snap
}

// Run samples every interval until ctx is done, pushing a snapshot to
// Updates after each sample.
func (c *Collector) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	c.sampleWithTimeout(ctx, interval)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.sampleWithTimeout(ctx, interval)
			c.publish()
		}
	}
}

func (c *Collector) sampleWithTimeout(ctx context.Context, timeout time.Duration) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	c.Sample(ctx)
}

func (c *Collector) publish() {
	// Non-blocking send
	select {
	case c.Updates <- c.Snapshot():
	default:
		// Drop update if channel full, UI acts as backpressure
	}
}
