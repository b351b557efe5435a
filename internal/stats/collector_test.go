package stats

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pingcap/errors"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"crunch/internal/loadgen"
)

type fakeSource struct {
	mu   sync.Mutex
	cpu  float64
	mem  float64
	fail bool
}

func (f *fakeSource) set(cpu, mem float64, fail bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cpu, f.mem, f.fail = cpu, mem, fail
}

func (f *fakeSource) CPUPercent(context.Context) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return 0, errors.New("cpu unavailable")
	}
	return f.cpu, nil
}

func (f *fakeSource) MemoryPercent(context.Context) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return 0, errors.New("memory unavailable")
	}
	return f.mem, nil
}

type fixedStatus struct {
	state loadgen.RunState
}

func (f fixedStatus) Status() loadgen.RunState { return f.state }

func TestCollectorKeepsLastKnownOnFailure(t *testing.T) {
	src := &fakeSource{}
	c := NewCollector(fixedStatus{state: loadgen.RunState{Phase: loadgen.PhaseIdle}}, src, nil, zaptest.NewLogger(t), nil)

	src.set(0, 0, true)
	c.Sample(context.Background())
	snap := c.Snapshot()
	require.Zero(t, snap.CPUPercent)
	require.Zero(t, snap.MemoryPercent)
	require.True(t, snap.SampledAt.IsZero())

	src.set(42.5, 61, false)
	c.Sample(context.Background())
	snap = c.Snapshot()
	require.Equal(t, 42.5, snap.CPUPercent)
	require.Equal(t, 61.0, snap.MemoryPercent)

	src.set(99, 99, true)
	c.Sample(context.Background())
	snap = c.Snapshot()
	require.Equal(t, 42.5, snap.CPUPercent)
	require.Equal(t, 61.0, snap.MemoryPercent)
}

func TestSnapshotIdleHasNoRunData(t *testing.T) {
	c := NewCollector(fixedStatus{state: loadgen.RunState{Phase: loadgen.PhaseIdle}}, &fakeSource{}, nil, nil, nil)
	snap := c.Snapshot()
	require.False(t, snap.Running)
	require.Nil(t, snap.Config)
	require.Zero(t, snap.RunningTime)
	require.Zero(t, snap.Progress())
}

func TestSnapshotRunning(t *testing.T) {
	cfg := loadgen.RunConfig{Duration: 10, Intensity: 50, Cores: 2}
	state := loadgen.RunState{
		Running: true,
		Phase:   loadgen.PhaseRunning,
		RunID:   "run-1",
		Config:  &cfg,
		Elapsed: 2500 * time.Millisecond,
	}
	cycles := NewCycleStats()
	cycles.ObserveCycle(1, 50*time.Millisecond, 50*time.Millisecond)

	c := NewCollector(fixedStatus{state: state}, &fakeSource{}, cycles, nil, nil)
	snap := c.Snapshot()
	require.True(t, snap.Running)
	require.Equal(t, "run-1", snap.RunID)
	require.Equal(t, 2.5, snap.RunningTime)
	require.Equal(t, 2, snap.Config.Cores)
	require.InDelta(t, 0.25, snap.Progress(), 1e-9)
	require.Equal(t, uint64(1), snap.Cycles.Cycles)
}

func TestCollectorRunPublishes(t *testing.T) {
	src := &fakeSource{}
	src.set(10, 20, false)
	updates := make(UpdateChan, 1)
	c := NewCollector(fixedStatus{state: loadgen.RunState{Phase: loadgen.PhaseIdle}}, src, nil, zaptest.NewLogger(t), updates)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Run(ctx, 20*time.Millisecond)
		close(done)
	}()

	select {
	case snap := <-updates:
		require.Equal(t, 10.0, snap.CPUPercent)
	case <-time.After(time.Second):
		t.Fatal("no update published")
	}
	cancel()
	<-done
}
