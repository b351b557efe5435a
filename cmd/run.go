package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"crunch/internal/cli"
	"crunch/internal/config"
	"crunch/internal/loadgen"
	"crunch/internal/logutil"
)

var (
	duration  int
	intensity int
	cores     int
	profile   string
	outPrefix string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one load test headless and print a summary",
	Example: `  crunch run -d 60 -i 80 -c 2
  crunch run --profile spike.toml --out spike_report`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runHeadless(cmd)
	},
}

func init() {
	runCmd.Flags().IntVarP(&duration, "duration", "d", 300, "Duration in seconds")
	runCmd.Flags().IntVarP(&intensity, "intensity", "i", 80, "CPU intensity per core (%)")
	runCmd.Flags().IntVarP(&cores, "cores", "c", 0, "Number of cores to load (default all)")
	runCmd.Flags().StringVar(&profile, "profile", "", "TOML run profile; explicit flags override it")
	runCmd.Flags().StringVarP(&outPrefix, "out", "o", "", "Output filename prefix for the run report")
}

// resolveRunConfig merges the profile, if any, with explicitly set flags.
// Cores set by neither default to maxCores.
func resolveRunConfig(flags *pflag.FlagSet, maxCores int) (loadgen.RunConfig, error) {
	cfg := loadgen.RunConfig{Duration: duration, Intensity: intensity, Cores: cores}
	coresSet := flags.Changed("cores")

	if profile != "" {
		p, err := config.LoadProfile(profile)
		if err != nil {
			return cfg, err
		}
		if !flags.Changed("duration") {
			cfg.Duration = p.Duration
		}
		if !flags.Changed("intensity") {
			cfg.Intensity = p.Intensity
		}
		if !coresSet && p.CoresSet {
			cfg.Cores = p.Cores
			coresSet = true
		}
	}
	if !coresSet {
		cfg.Cores = maxCores
	}
	return cfg, nil
}

func runHeadless(cmd *cobra.Command) error {
	log, err := logutil.New(logOptions())
	if err != nil {
		return err
	}
	defer log.Sync()

	eng := newEngine(log, nil)
	cfg, err := resolveRunConfig(cmd.Flags(), eng.ctrl.MaxCores())
	if err != nil {
		return err
	}

	sampleCtx, cancelSampling := eng.startSampling()
	defer cancelSampling()
	eng.collector.Sample(sampleCtx)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return cli.Run(ctx, eng.ctrl, eng.collector, eng.history, cli.Options{
		Config:    cfg,
		OutPrefix: outPrefix,
		Out:       os.Stdout,
	})
}
