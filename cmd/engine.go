package cmd

import (
	"context"

	"go.uber.org/zap"

	"crunch/internal/history"
	"crunch/internal/loadgen"
	"crunch/internal/metrics"
	"crunch/internal/stats"
)

// engine wires the controller to its observers for one process.
type engine struct {
	log       *zap.Logger
	ctrl      *loadgen.Controller
	cycles    *stats.CycleStats
	collector *stats.Collector
	history   *history.Store
	metrics   *metrics.Metrics
}

// newEngine builds the shared components. m may be nil when nothing exports
// metrics.
func newEngine(log *zap.Logger, m *metrics.Metrics) *engine {
	host := stats.NewHostSource(0)
	e := &engine{
		log:     log,
		cycles:  stats.NewCycleStats(),
		history: history.NewStore(),
		metrics: m,
	}

	opts := []loadgen.Option{
		loadgen.WithLogger(log.Named("loadgen")),
		loadgen.WithRecorder(e.cycles),
		loadgen.WithObserver(e.history),
	}
	if m != nil {
		opts = append(opts, loadgen.WithObserver(m))
	}
	e.ctrl = loadgen.NewController(host, opts...)
	e.collector = stats.NewCollector(e.ctrl, host, e.cycles, log.Named("stats"), make(stats.UpdateChan, 100))
	return e
}

// startSampling runs the collector until the returned cancel is called.
func (e *engine) startSampling() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	go e.collector.Run(ctx, settings.SampleInterval)
	return ctx, cancel
}
