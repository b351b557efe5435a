package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/pingcap/errors"

	"crunch/internal/history"
	"crunch/internal/loadgen"
	"crunch/internal/stats"
)

const refreshInterval = 200 * time.Millisecond

// Controller is what a headless run needs from loadgen.Controller.
type Controller interface {
	Start(cfg loadgen.RunConfig) (loadgen.RunState, error)
	Stop()
	Status() loadgen.RunState
}

type SnapshotSource interface {
	Snapshot() stats.Snapshot
}

// Options configures a headless run.
type Options struct {
	Config loadgen.RunConfig
	// OutPrefix, when set, exports the finished run to <prefix>.csv and
	// <prefix>.json.
	OutPrefix string
	Out       io.Writer
}

// Run starts a load run and prints progress until it expires or ctx is
// cancelled, in which case the run is stopped. hist must be registered as an
// observer on ctrl for the summary to include the stop reason.
func Run(ctx context.Context, ctrl Controller, snaps SnapshotSource, hist *history.Store, opts Options) error {
	out := opts.Out
	if out == nil {
		out = io.Discard
	}

	state, err := ctrl.Start(opts.Config)
	if err != nil {
		return errors.Annotate(err, "start run failed")
	}
	printHeader(out, state)

	ticker := time.NewTicker(refreshInterval)
	defer ticker.Stop()

	total := opts.Config.DurationTime()
	var last stats.Snapshot
	for {
		select {
		case <-ctx.Done():
			fmt.Fprintf(out, "\nInterrupted, stopping run...")
			ctrl.Stop()
			return finish(out, state.RunID, last, hist, opts.OutPrefix)
		case <-ticker.C:
			snap := snaps.Snapshot()
			if !snap.Running || snap.RunID != state.RunID {
				return finish(out, state.RunID, last, hist, opts.OutPrefix)
			}
			last = snap
			elapsed := time.Duration(snap.RunningTime * float64(time.Second))
			pct := snap.Progress()
			fmt.Fprintf(out, "\r%s %3.0f%% | %s/%s | CPU: %5.1f%% | Mem: %5.1f%% | Duty: %5.1f%%",
				progressBar(pct, 20), pct*100,
				elapsed.Round(time.Second), total,
				snap.CPUPercent,
				snap.MemoryPercent,
				snap.Cycles.DutyPct,
			)
		}
	}
}

func printHeader(out io.Writer, state loadgen.RunState) {
	cfg := state.Config
	fmt.Fprintf(out, "\nSTARTING CRUNCH LOAD RUN\n")
	fmt.Fprintf(out, "======================================================================\n")
	fmt.Fprintf(out, "Run ID    : %s\n", state.RunID)
	if cfg != nil {
		fmt.Fprintf(out, "Duration  : %ds\n", cfg.Duration)
		fmt.Fprintf(out, "Intensity : %d%%\n", cfg.Intensity)
		fmt.Fprintf(out, "Cores     : %d\n", cfg.Cores)
	}
	fmt.Fprintf(out, "======================================================================\n\n")
}

func progressBar(pct float64, width int) string {
	filled := int(pct * float64(width))
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}
	return "[" + strings.Repeat("█", filled) + strings.Repeat("-", width-filled) + "]"
}

func finish(out io.Writer, runID string, last stats.Snapshot, hist *history.Store, outPrefix string) error {
	item, ok := history.Item{}, false
	if hist != nil {
		item, ok = hist.Get(runID)
	}
	printSummary(out, item, ok, last)
	if !ok || outPrefix == "" {
		return nil
	}

	items := []history.Item{item}
	if err := history.ExportCSV(items, outPrefix+".csv"); err != nil {
		return err
	}
	if err := history.ExportJSON(items, outPrefix+".json"); err != nil {
		return err
	}
	fmt.Fprintf(out, "Reports saved to %s.{csv,json}\n", outPrefix)
	return nil
}

func printSummary(out io.Writer, item history.Item, ok bool, last stats.Snapshot) {
	fmt.Fprintf(out, "\n\nLOAD RUN RESULTS\n")
	fmt.Fprintf(out, "======================================================================\n")
	if ok {
		fmt.Fprintf(out, "Elapsed      : %.1fs\n", item.Elapsed)
		fmt.Fprintf(out, "Stop reason  : %s\n", item.Reason)
		if item.HungWorkers > 0 {
			fmt.Fprintf(out, "Hung workers : %d\n", item.HungWorkers)
		}
	}
	c := last.Cycles
	fmt.Fprintf(out, "Cycles       : %d\n", c.Cycles)
	fmt.Fprintf(out, "Duty cycle   : %.1f%%\n", c.DutyPct)
	fmt.Fprintf(out, "\nBUSY PHASE (ms)\n")
	fmt.Fprintf(out, "   P50 : %.2f\n", c.P50BusyMs)
	fmt.Fprintf(out, "   P99 : %.2f\n", c.P99BusyMs)
	fmt.Fprintf(out, "Mean idle (ms) : %.2f\n", c.MeanIdleMs)
	fmt.Fprintf(out, "======================================================================\n")
}
