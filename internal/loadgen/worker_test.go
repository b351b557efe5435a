package loadgen

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type cycleLog struct {
	mu     sync.Mutex
	busy   []time.Duration
	idle   []time.Duration
	resets int
}

func (c *cycleLog) ObserveCycle(_ int, busy, idle time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.busy = append(c.busy, busy)
	c.idle = append(c.idle, idle)
}

func (c *cycleLog) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.busy, c.idle = nil, nil
	c.resets++
}

func (c *cycleLog) cycles() ([]time.Duration, []time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.busy...), append([]time.Duration(nil), c.idle...)
}

func runWorkerFor(t *testing.T, intensity int, d time.Duration) *cycleLog {
	rec := &cycleLog{}
	w := &Worker{ID: 1, Intensity: intensity, Signal: NewStopSignal(), Recorder: rec, Log: zaptest.NewLogger(t)}
	done := make(chan struct{})
	go func() {
		w.Run()
		close(done)
	}()
	time.Sleep(d)
	w.Signal.Signal()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
	return rec
}

func TestWorkerFullIntensityNeverIdles(t *testing.T) {
	rec := runWorkerFor(t, 100, 350*time.Millisecond)
	busy, idle := rec.cycles()
	require.NotEmpty(t, busy)
	for _, d := range idle {
		require.Zero(t, d)
	}
}

func TestWorkerLowIntensityMostlyIdle(t *testing.T) {
	rec := runWorkerFor(t, 1, 450*time.Millisecond)
	busy, idle := rec.cycles()
	require.NotEmpty(t, idle)
	for i := range idle {
		require.GreaterOrEqual(t, idle[i], 90*time.Millisecond)
		require.Less(t, busy[i], 10*time.Millisecond)
	}
}

func TestWorkerStopLatency(t *testing.T) {
	for _, intensity := range []int{1, 50, 100} {
		w := &Worker{ID: 1, Intensity: intensity, Signal: NewStopSignal()}
		done := make(chan struct{})
		go func() {
			w.Run()
			close(done)
		}()
		time.Sleep(30 * time.Millisecond)

		start := time.Now()
		w.Signal.Signal()
		<-done
		require.Less(t, time.Since(start), DutyCyclePeriod, "intensity %d", intensity)
	}
}

func TestWorkerSplit(t *testing.T) {
	w := &Worker{Intensity: 80}
	busy, idle := w.split()
	require.Equal(t, 80*time.Millisecond, busy)
	require.Equal(t, 20*time.Millisecond, idle)

	w = &Worker{Intensity: 100, Period: time.Second}
	busy, idle = w.split()
	require.Equal(t, time.Second, busy)
	require.Zero(t, idle)
}

type panicRecorder struct{}

func (panicRecorder) ObserveCycle(int, time.Duration, time.Duration) { panic("boom") }
func (panicRecorder) Reset()                                         {}

func TestWorkerRecoversPanic(t *testing.T) {
	w := &Worker{ID: 7, Intensity: 100, Signal: NewStopSignal(), Recorder: panicRecorder{}, Log: zaptest.NewLogger(t)}
	require.NotPanics(t, w.Run)
}
