package web

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"crunch/internal/loadgen"
	"crunch/internal/stats"
)

const (
	defaultDuration  = 300
	defaultIntensity = 80
)

// startRequest is shared by the form and JSON endpoints. Cores defaults to
// every available core when absent.
type startRequest struct {
	Duration  int  `form:"duration,default=300" json:"duration"`
	Intensity int  `form:"intensity,default=80" json:"intensity"`
	Cores     *int `form:"cores" json:"cores"`
}

func (r startRequest) config(maxCores int) loadgen.RunConfig {
	cfg := loadgen.RunConfig{Duration: r.Duration, Intensity: r.Intensity, Cores: maxCores}
	if r.Cores != nil {
		cfg.Cores = *r.Cores
	}
	return cfg
}

type pageData struct {
	Stats    stats.Snapshot
	Progress float64
	MaxCores int
	CoreOpts []int

	DefaultDuration  int
	DefaultIntensity int
}

func (s *Server) index(c *gin.Context) {
	snap := s.stats.Snapshot()
	maxCores := s.ctrl.MaxCores()
	opts := make([]int, maxCores)
	for i := range opts {
		opts[i] = i + 1
	}
	c.HTML(http.StatusOK, "index.html", pageData{
		Stats:            snap,
		Progress:         snap.Progress(),
		MaxCores:         maxCores,
		CoreOpts:         opts,
		DefaultDuration:  defaultDuration,
		DefaultIntensity: defaultIntensity,
	})
}

func (s *Server) startForm(c *gin.Context) {
	var req startRequest
	if err := c.ShouldBind(&req); err != nil {
		c.String(http.StatusBadRequest, "Error: %v", err)
		return
	}
	if _, err := s.ctrl.Start(req.config(s.ctrl.MaxCores())); err != nil {
		if errors.Is(err, loadgen.ErrAlreadyRunning) {
			c.String(http.StatusBadRequest, "A test is already running")
			return
		}
		c.String(http.StatusBadRequest, "Error: %v", err)
		return
	}
	c.Redirect(http.StatusFound, "/")
}

func (s *Server) stopForm(c *gin.Context) {
	s.ctrl.Stop()
	c.Redirect(http.StatusFound, "/")
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

func (s *Server) apiStats(c *gin.Context) {
	c.JSON(http.StatusOK, s.stats.Snapshot())
}

func (s *Server) apiStart(c *gin.Context) {
	var req startRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	state, err := s.ctrl.Start(req.config(s.ctrl.MaxCores()))
	if err != nil {
		var verr *loadgen.ValidationError
		switch {
		case errors.Is(err, loadgen.ErrAlreadyRunning):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "run_id": state.RunID})
		case errors.As(err, &verr):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "field": verr.Field})
		default:
			s.log.Warn("start failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}
	c.JSON(http.StatusCreated, state)
}

func (s *Server) apiStop(c *gin.Context) {
	s.ctrl.Stop()
	c.JSON(http.StatusOK, s.ctrl.Status())
}

func (s *Server) apiHistory(c *gin.Context) {
	c.JSON(http.StatusOK, s.history.List())
}
