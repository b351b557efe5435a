package metrics

import (
	"testing"
	"time"

	"github.com/pingcap/errors"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"crunch/internal/loadgen"
	"crunch/internal/stats"
)

func TestRunLifecycleMetrics(t *testing.T) {
	m := New()
	cfg := loadgen.RunConfig{Duration: 10, Intensity: 75, Cores: 3}

	m.RunStarted(loadgen.RunState{Running: true, Config: &cfg})
	require.Equal(t, 1.0, testutil.ToFloat64(m.Running))
	require.Equal(t, 75.0, testutil.ToFloat64(m.Intensity))
	require.Equal(t, 3.0, testutil.ToFloat64(m.Cores))

	m.RunRejected(cfg, loadgen.ErrAlreadyRunning)
	m.RunRejected(cfg, &loadgen.ValidationError{Field: "cores"})
	m.RunRejected(cfg, errors.New("other"))
	require.Equal(t, 1.0, testutil.ToFloat64(m.RunsRejected.WithLabelValues("conflict")))
	require.Equal(t, 2.0, testutil.ToFloat64(m.RunsRejected.WithLabelValues("validation")))

	m.Observe(stats.Snapshot{Running: true, RunningTime: 4, CPUPercent: 55, MemoryPercent: 30})
	require.Equal(t, 4.0, testutil.ToFloat64(m.ElapsedSeconds))
	require.Equal(t, 55.0, testutil.ToFloat64(m.HostCPUPercent))

	m.RunFinished(loadgen.RunRecord{Reason: loadgen.StopExpired, HungWorkers: 1, Elapsed: 10 * time.Second})
	require.Equal(t, 0.0, testutil.ToFloat64(m.Running))
	require.Equal(t, 1.0, testutil.ToFloat64(m.RunsFinished.WithLabelValues("expired")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.HungWorkersTotal))
}

func TestRegistryGathers(t *testing.T) {
	m := New()
	m.RunsRejected.WithLabelValues("conflict")
	m.RunsFinished.WithLabelValues("manual")
	families, err := m.Registry.Gather()
	require.NoError(t, err)
	require.NotEmpty(t, families)
}
