package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"crunch/internal/loadgen"
	"crunch/internal/stats"
)

const namespace = "crunch"

// Metrics exports run lifecycle and host usage to Prometheus. It is a
// loadgen.Observer; gauges for host usage are refreshed from snapshots.
type Metrics struct {
	Registry *prometheus.Registry

	Running          prometheus.Gauge
	Intensity        prometheus.Gauge
	Cores            prometheus.Gauge
	ElapsedSeconds   prometheus.Gauge
	HostCPUPercent   prometheus.Gauge
	HostMemPercent   prometheus.Gauge
	RunsStarted      prometheus.Counter
	RunsRejected     *prometheus.CounterVec
	RunsFinished     *prometheus.CounterVec
	HungWorkersTotal prometheus.Counter
}

func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		Running: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "run",
			Name:      "active",
			Help:      "1 while a load run is active.",
		}),
		Intensity: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "run",
			Name:      "intensity_percent",
			Help:      "Configured intensity of the active run.",
		}),
		Cores: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "run",
			Name:      "workers",
			Help:      "Worker count of the active run.",
		}),
		ElapsedSeconds: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "run",
			Name:      "elapsed_seconds",
			Help:      "Elapsed time of the active run.",
		}),
		HostCPUPercent: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "host",
			Name:      "cpu_percent",
			Help:      "Last sampled host CPU usage.",
		}),
		HostMemPercent: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "host",
			Name:      "memory_percent",
			Help:      "Last sampled host memory usage.",
		}),
		RunsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "run",
			Name:      "started_total",
			Help:      "Total count of accepted runs.",
		}),
		RunsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "run",
			Name:      "rejected_total",
			Help:      "Total count of rejected start requests.",
		}, []string{"reason"}),
		RunsFinished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "run",
			Name:      "finished_total",
			Help:      "Total count of finished runs by stop reason.",
		}, []string{"reason"}),
		HungWorkersTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "hung_total",
			Help:      "Workers abandoned after the grace period.",
		}),
	}

	m.Registry.MustRegister(
		m.Running,
		m.Intensity,
		m.Cores,
		m.ElapsedSeconds,
		m.HostCPUPercent,
		m.HostMemPercent,
		m.RunsStarted,
		m.RunsRejected,
		m.RunsFinished,
		m.HungWorkersTotal,
	)
	return m
}

func (m *Metrics) RunStarted(state loadgen.RunState) {
	m.RunsStarted.Inc()
	m.Running.Set(1)
	if state.Config != nil {
		m.Intensity.Set(float64(state.Config.Intensity))
		m.Cores.Set(float64(state.Config.Cores))
	}
}

func (m *Metrics) RunRejected(_ loadgen.RunConfig, err error) {
	reason := "validation"
	if errors.Is(err, loadgen.ErrAlreadyRunning) {
		reason = "conflict"
	}
	m.RunsRejected.WithLabelValues(reason).Inc()
}

func (m *Metrics) RunFinished(rec loadgen.RunRecord) {
	m.RunsFinished.WithLabelValues(string(rec.Reason)).Inc()
	m.HungWorkersTotal.Add(float64(rec.HungWorkers))
	m.Running.Set(0)
	m.Intensity.Set(0)
	m.Cores.Set(0)
	m.ElapsedSeconds.Set(0)
}

// Observe refreshes the gauges fed by stats snapshots.
func (m *Metrics) Observe(snap stats.Snapshot) {
	m.HostCPUPercent.Set(snap.CPUPercent)
	m.HostMemPercent.Set(snap.MemoryPercent)
	if snap.Running {
		m.ElapsedSeconds.Set(snap.RunningTime)
	}
}
