package web

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pingcap/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"crunch/internal/history"
	"crunch/internal/loadgen"
	"crunch/internal/stats"
)

//go:embed templates/index.html
var templateFS embed.FS

const shutdownTimeout = 10 * time.Second

// Controller is the part of loadgen.Controller the HTTP layer drives.
type Controller interface {
	Start(cfg loadgen.RunConfig) (loadgen.RunState, error)
	Stop()
	Status() loadgen.RunState
	MaxCores() int
}

// SnapshotSource provides the stats shown on the page and /api/stats.
type SnapshotSource interface {
	Snapshot() stats.Snapshot
}

type ServerConfig struct {
	Host string
	Port int
}

func (c ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

type Server struct {
	cfg      ServerConfig
	ctrl     Controller
	stats    SnapshotSource
	history  *history.Store
	registry *prometheus.Registry
	log      *zap.Logger

	engine *gin.Engine
}

// NewServer builds the router. history and registry may be nil, which
// disables the corresponding routes.
func NewServer(cfg ServerConfig, ctrl Controller, snaps SnapshotSource, hist *history.Store, registry *prometheus.Registry, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{
		cfg:      cfg,
		ctrl:     ctrl,
		stats:    snaps,
		history:  hist,
		registry: registry,
		log:      log,
	}
	s.engine = s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(s.log))

	tmpl := template.Must(template.New("").Funcs(templateFuncs).ParseFS(templateFS, "templates/index.html"))
	r.SetHTMLTemplate(tmpl)

	r.GET("/", s.index)
	r.POST("/start", s.startForm)
	r.POST("/stop", s.stopForm)
	r.GET("/health", s.health)

	api := r.Group("/api")
	api.GET("/stats", s.apiStats)
	api.POST("/runs", s.apiStart)
	api.DELETE("/runs/current", s.apiStop)
	if s.history != nil {
		api.GET("/runs", s.apiHistory)
	}

	if s.registry != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})))
	}
	return r
}

// ListenAndServe serves until ctx is cancelled, then shuts the listener down.
func (s *Server) ListenAndServe(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.cfg.Addr(),
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("http server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return errors.Annotate(err, "http server failed")
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return errors.Annotate(err, "http server shutdown failed")
	}
	s.log.Info("http server stopped")
	return nil
}

func requestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)))
	}
}

var templateFuncs = template.FuncMap{
	"pct": func(v float64) string { return fmt.Sprintf("%.1f", v) },
	"secs": func(v float64) string { return fmt.Sprintf("%.0f", v) },
	"progress": func(p float64) string {
		return fmt.Sprintf("%.1f", p*100)
	},
	"plural": func(n int) string {
		if n > 1 {
			return "s"
		}
		return ""
	},
}
