package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"crunch/internal/logutil"
	"crunch/internal/metrics"
	"crunch/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the web page, JSON API and Prometheus metrics",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer()
	},
}

func init() {
	serveCmd.Flags().String("host", "0.0.0.0", "Listen address (env HOST)")
	serveCmd.Flags().IntP("port", "p", 5000, "Listen port (env PORT)")
	_ = viper.BindPFlag("host", serveCmd.Flags().Lookup("host"))
	_ = viper.BindPFlag("port", serveCmd.Flags().Lookup("port"))
}

func runServer() error {
	log, err := logutil.New(logOptions())
	if err != nil {
		return err
	}
	defer log.Sync()

	m := metrics.New()
	eng := newEngine(log, m)
	server := web.NewServer(
		web.ServerConfig{Host: settings.Host, Port: settings.Port},
		eng.ctrl, eng.collector, eng.history, m.Registry, log.Named("http"),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		eng.collector.Run(gctx, settings.SampleInterval)
		return nil
	})
	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return nil
			case snap := <-eng.collector.Updates:
				m.Observe(snap)
			}
		}
	})
	g.Go(func() error {
		return server.ListenAndServe(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down, stopping active run")
		eng.ctrl.Shutdown()
		return nil
	})

	log.Info("crunch server starting",
		zap.String("addr", web.ServerConfig{Host: settings.Host, Port: settings.Port}.Addr()),
		zap.Int("maxCores", eng.ctrl.MaxCores()))
	return g.Wait()
}
