package cmd

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/pingcap/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"crunch/internal/banner"
	"crunch/internal/config"
	"crunch/internal/logutil"
	"crunch/internal/tui/app"
)

var (
	cfgFile  string
	settings *config.Settings
)

var rootCmd = &cobra.Command{
	Use:   "crunch",
	Short: "Crunch - CPU load generator for autoscaling tests",
	Long: `
Crunch burns a configurable share of CPU on a chosen number of cores for a
fixed duration, so that autoscalers and monitoring can be exercised.

It runs in three modes:
1. TUI Mode (Default): Interactive Terminal UI
2. Server Mode (serve): Web page and JSON API
3. CLI Mode (run): Headless run for scripts and CI`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return loadSettings()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTUI()
	},
}

func Execute() {
	rootCmd.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		fmt.Println(banner.GetString())
		cmd.Usage()
	})

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(serveCmd, runCmd)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is $HOME/.crunch.yaml)")
	flags.String("log-level", "info", "Log level (debug, info, warn, error)")
	flags.String("log-format", "console", "Log format (console, json)")
	flags.String("log-file", "", "Log file (TUI mode logs nowhere without it)")
	flags.Duration("sample-interval", 0, "Host CPU/memory sampling interval (default 1s)")

	v := viper.GetViper()
	_ = v.BindPFlag("log_level", flags.Lookup("log-level"))
	_ = v.BindPFlag("log_format", flags.Lookup("log-format"))
	_ = v.BindPFlag("log_file", flags.Lookup("log-file"))
	_ = v.BindPFlag("sample_interval", flags.Lookup("sample-interval"))
}

func loadSettings() error {
	v := viper.GetViper()
	config.SetDefaults(v)
	if err := config.ReadFile(v, cfgFile); err != nil {
		return err
	}
	s, err := config.Load(v)
	if err != nil {
		return err
	}
	settings = s
	return nil
}

func logOptions() logutil.Options {
	return logutil.Options{
		Level:  settings.LogLevel,
		Format: settings.LogFormat,
		File:   settings.LogFile,
	}
}

func runTUI() error {
	log, err := logutil.ForTUI(logOptions())
	if err != nil {
		return err
	}
	defer log.Sync()

	eng := newEngine(log, nil)
	ctx, cancel := eng.startSampling()
	defer cancel()

	m := app.NewModel(eng.ctrl, eng.collector.Updates, eng.history, log)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))

	_, err = p.Run()
	// The UI stops the run on a normal quit; this covers the error paths.
	eng.ctrl.Shutdown()
	if err != nil {
		log.Error("tui exited with error", zap.Error(err))
		return errors.Annotate(err, "run tui failed")
	}
	return nil
}
