package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"crunch/internal/history"
	"crunch/internal/loadgen"
	"crunch/internal/stats"
)

type staticSource struct{}

func (staticSource) CPUPercent(context.Context) (float64, error)    { return 55, nil }
func (staticSource) MemoryPercent(context.Context) (float64, error) { return 30, nil }

func newHarness(t *testing.T) (*loadgen.Controller, *stats.Collector, *history.Store) {
	hist := history.NewStore()
	cycles := stats.NewCycleStats()
	ctrl := loadgen.NewController(
		loadgen.CoreCounterFunc(func() int { return 2 }),
		loadgen.WithLogger(zaptest.NewLogger(t)),
		loadgen.WithRecorder(cycles),
		loadgen.WithObserver(hist),
	)
	t.Cleanup(ctrl.Stop)
	coll := stats.NewCollector(ctrl, staticSource{}, cycles, zaptest.NewLogger(t), nil)
	coll.Sample(context.Background())
	return ctrl, coll, hist
}

func TestProgressBar(t *testing.T) {
	require.Equal(t, "[----------]", progressBar(0, 10))
	require.Equal(t, "[█████-----]", progressBar(0.5, 10))
	require.Equal(t, "[██████████]", progressBar(1.5, 10))
	require.Equal(t, "[----------]", progressBar(-1, 10))
}

func TestRunUntilExpired(t *testing.T) {
	ctrl, coll, hist := newHarness(t)
	prefix := filepath.Join(t.TempDir(), "report")

	var out bytes.Buffer
	err := Run(context.Background(), ctrl, coll, hist, Options{
		Config:    loadgen.RunConfig{Duration: 1, Intensity: 20, Cores: 1},
		OutPrefix: prefix,
		Out:       &out,
	})
	require.NoError(t, err)
	require.False(t, ctrl.Status().Running)

	text := out.String()
	require.Contains(t, text, "STARTING CRUNCH LOAD RUN")
	require.Contains(t, text, "CPU:  55.0%")
	require.Contains(t, text, "Stop reason  : expired")

	items := hist.List()
	require.Len(t, items, 1)
	require.FileExists(t, prefix+".csv")
	data, err := os.ReadFile(prefix + ".json")
	require.NoError(t, err)
	require.Contains(t, string(data), items[0].ID)
}

func TestRunInterrupted(t *testing.T) {
	ctrl, coll, hist := newHarness(t)
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	var out bytes.Buffer
	start := time.Now()
	err := Run(ctx, ctrl, coll, hist, Options{
		Config: loadgen.RunConfig{Duration: 60, Intensity: 20, Cores: 2},
		Out:    &out,
	})
	require.NoError(t, err)
	require.Less(t, time.Since(start), 5*time.Second)
	require.False(t, ctrl.Status().Running)
	require.Contains(t, out.String(), "Stop reason  : manual")
}

func TestRunRejectsInvalidConfig(t *testing.T) {
	ctrl, coll, hist := newHarness(t)
	err := Run(context.Background(), ctrl, coll, hist, Options{
		Config: loadgen.RunConfig{Duration: 0, Intensity: 20, Cores: 1},
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "duration must be between 1 and 3600")
	require.Empty(t, hist.List())
}
