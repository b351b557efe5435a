package loadgen

import (
	"fmt"
	"time"

	"github.com/pingcap/errors"
)

const (
	MinDuration  = 1
	MaxDuration  = 3600
	MinIntensity = 1
	MaxIntensity = 100
	MinCores     = 1

	// DutyCyclePeriod is the length of one busy+idle cycle of a worker.
	DutyCyclePeriod = 100 * time.Millisecond
	// GracePeriod bounds how long Stop waits for workers to exit.
	GracePeriod = 5 * time.Second
)

// ErrAlreadyRunning is returned by Start while another run is active.
var ErrAlreadyRunning = errors.New("already running")

// RunConfig describes one run. It is immutable once the run starts.
type RunConfig struct {
	Duration  int `json:"duration" toml:"duration"`   // seconds
	Intensity int `json:"intensity" toml:"intensity"` // percent
	Cores     int `json:"cores" toml:"cores"`         // worker count
}

// DurationTime returns the configured duration as a time.Duration.
func (c RunConfig) DurationTime() time.Duration {
	return time.Duration(c.Duration) * time.Second
}

// Validate checks every field against its bounds. maxCores is the number of
// logical cores available on the host.
func (c RunConfig) Validate(maxCores int) error {
	if c.Duration < MinDuration || c.Duration > MaxDuration {
		return &ValidationError{Field: "duration", Value: c.Duration, Min: MinDuration, Max: MaxDuration}
	}
	if c.Intensity < MinIntensity || c.Intensity > MaxIntensity {
		return &ValidationError{Field: "intensity", Value: c.Intensity, Min: MinIntensity, Max: MaxIntensity}
	}
	if c.Cores < MinCores || c.Cores > maxCores {
		return &ValidationError{Field: "cores", Value: c.Cores, Min: MinCores, Max: maxCores}
	}
	return nil
}

// ValidationError reports a RunConfig field outside its valid range.
type ValidationError struct {
	Field string
	Value int
	Min   int
	Max   int
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s must be between %d and %d, got %d", e.Field, e.Min, e.Max, e.Value)
}

// Phase is the controller lifecycle position.
type Phase string

const (
	PhaseIdle     Phase = "idle"
	PhaseRunning  Phase = "running"
	PhaseStopping Phase = "stopping"
)

// StopReason records why a run ended.
type StopReason string

const (
	StopManual   StopReason = "manual"
	StopExpired  StopReason = "expired"
	StopShutdown StopReason = "shutdown"
)

// RunState is a read-only snapshot of the controller.
// Config and StartedAt are only set while Running is true.
type RunState struct {
	Running   bool          `json:"is_running"`
	Phase     Phase         `json:"phase"`
	RunID     string        `json:"run_id,omitempty"`
	Config    *RunConfig    `json:"config"`
	StartedAt time.Time     `json:"started_at,omitempty"`
	Workers   int           `json:"workers"`
	Elapsed   time.Duration `json:"-"`
}

// RunRecord summarizes a run after teardown.
type RunRecord struct {
	RunID       string
	Config      RunConfig
	StartedAt   time.Time
	StoppedAt   time.Time
	Elapsed     time.Duration
	Reason      StopReason
	HungWorkers int
}

// CycleRecorder receives per-cycle timings from workers. Implementations must
// be safe for concurrent use.
type CycleRecorder interface {
	ObserveCycle(workerID int, busy, idle time.Duration)
	Reset()
}

// CoreCounter reports the number of logical cores usable by workers.
type CoreCounter interface {
	AvailableCores() int
}

// CoreCounterFunc adapts a function to CoreCounter.
type CoreCounterFunc func() int

func (f CoreCounterFunc) AvailableCores() int { return f() }

// Observer is notified of run lifecycle events. Calls happen outside the
// controller lock.
type Observer interface {
	RunStarted(state RunState)
	RunRejected(cfg RunConfig, err error)
	RunFinished(rec RunRecord)
}
