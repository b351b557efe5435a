package stats

import (
	"context"
	"runtime"
	"time"

	"github.com/pingcap/errors"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// Source provides host-wide resource usage. Calls may block for the sampling
// interval and may fail.
type Source interface {
	CPUPercent(ctx context.Context) (float64, error)
	MemoryPercent(ctx context.Context) (float64, error)
}

// HostSource reads the local host through gopsutil.
type HostSource struct {
	// Interval is the CPU sampling window.
	Interval time.Duration
}

func NewHostSource(interval time.Duration) *HostSource {
	return &HostSource{Interval: interval}
}

func (h *HostSource) CPUPercent(ctx context.Context) (float64, error) {
	pcts, err := cpu.PercentWithContext(ctx, h.Interval, false)
	if err != nil {
		return 0, errors.Annotate(err, "sample cpu percent failed")
	}
	if len(pcts) == 0 {
		return 0, errors.New("sample cpu percent returned no data")
	}
	return pcts[0], nil
}

func (h *HostSource) MemoryPercent(ctx context.Context) (float64, error) {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return 0, errors.Annotate(err, "read virtual memory failed")
	}
	return vm.UsedPercent, nil
}

// AvailableCores returns the logical core count, falling back to the Go
// runtime's view when gopsutil cannot tell.
func (h *HostSource) AvailableCores() int {
	n, err := cpu.Counts(true)
	if err != nil || n < 1 {
		return runtime.NumCPU()
	}
	return n
}
