package loadgen

import (
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Controller owns the single active run. All state changes happen under mu;
// worker joins happen outside it so Status never waits on workers.
type Controller struct {
	mu    sync.Mutex
	phase Phase
	run   *activeRun

	cores     CoreCounter
	log       *zap.Logger
	recorder  CycleRecorder
	observers []Observer

	grace  time.Duration
	period time.Duration
	work   func(w *Worker)
	now    func() time.Time
}

type activeRun struct {
	id        string
	cfg       RunConfig
	startedAt time.Time
	stoppedAt time.Time
	signal    *StopSignal
	timer     *time.Timer
	workers   []*workerHandle
	wg        sync.WaitGroup
	finished  chan struct{}
}

type workerHandle struct {
	worker *Worker
	done   chan struct{}
}

type Option func(*Controller)

func WithLogger(log *zap.Logger) Option {
	return func(c *Controller) { c.log = log }
}

// WithRecorder attaches a CycleRecorder to every worker. It is reset at the
// start of each run.
func WithRecorder(r CycleRecorder) Option {
	return func(c *Controller) { c.recorder = r }
}

func WithObserver(o Observer) Option {
	return func(c *Controller) { c.observers = append(c.observers, o) }
}

func NewController(cores CoreCounter, opts ...Option) *Controller {
	c := &Controller{
		phase:  PhaseIdle,
		cores:  cores,
		log:    zap.NewNop(),
		grace:  GracePeriod,
		period: DutyCyclePeriod,
		work:   func(w *Worker) { w.Run() },
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// MaxCores is the upper bound for RunConfig.Cores.
func (c *Controller) MaxCores() int {
	n := 0
	if c.cores != nil {
		n = c.cores.AvailableCores()
	}
	if n < 1 {
		n = runtime.NumCPU()
	}
	return n
}

// Start validates cfg and, if no run is active, launches cfg.Cores workers and
// arms the auto-stop timer. It returns *ValidationError or ErrAlreadyRunning
// on rejection; nothing is mutated in that case.
func (c *Controller) Start(cfg RunConfig) (RunState, error) {
	if err := cfg.Validate(c.MaxCores()); err != nil {
		c.log.Info("run rejected", zap.Error(err))
		c.notifyRejected(cfg, err)
		return c.Status(), err
	}

	c.mu.Lock()
	if c.phase != PhaseIdle {
		state := c.stateLocked()
		c.mu.Unlock()
		c.log.Info("run rejected", zap.String("reason", ErrAlreadyRunning.Error()), zap.String("active", state.RunID))
		c.notifyRejected(cfg, ErrAlreadyRunning)
		return state, ErrAlreadyRunning
	}

	if c.recorder != nil {
		c.recorder.Reset()
	}
	c.ensureProcs(cfg.Cores)

	r := &activeRun{
		id:        uuid.New().String(),
		cfg:       cfg,
		startedAt: c.now(),
		signal:    NewStopSignal(),
		workers:   make([]*workerHandle, 0, cfg.Cores),
		finished:  make(chan struct{}),
	}
	for i := 0; i < cfg.Cores; i++ {
		c.spawn(r, i+1)
	}
	r.timer = time.AfterFunc(cfg.DurationTime(), func() {
		c.finish(r, StopExpired)
	})

	c.run = r
	c.phase = PhaseRunning
	state := c.stateLocked()
	c.mu.Unlock()

	c.log.Info("run started",
		zap.String("run", r.id),
		zap.Int("duration", cfg.Duration),
		zap.Int("intensity", cfg.Intensity),
		zap.Int("cores", cfg.Cores))
	for _, o := range c.observers {
		o.RunStarted(state)
	}
	return state, nil
}

// Stop ends the active run, if any, and returns once it is fully torn down.
func (c *Controller) Stop() {
	c.stopCurrent(StopManual)
}

// Shutdown is Stop for host termination.
func (c *Controller) Shutdown() {
	c.stopCurrent(StopShutdown)
}

func (c *Controller) stopCurrent(reason StopReason) {
	c.mu.Lock()
	r := c.run
	c.mu.Unlock()
	if r == nil {
		return
	}
	c.finish(r, reason)
}

// Status returns a copy of the current state.
func (c *Controller) Status() RunState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stateLocked()
}

func (c *Controller) stateLocked() RunState {
	r := c.run
	if r == nil {
		return RunState{Phase: PhaseIdle}
	}
	cfg := r.cfg
	end := r.stoppedAt
	if end.IsZero() {
		end = c.now()
	}
	return RunState{
		Running:   true,
		Phase:     c.phase,
		RunID:     r.id,
		Config:    &cfg,
		StartedAt: r.startedAt,
		Workers:   len(r.workers),
		Elapsed:   end.Sub(r.startedAt),
	}
}

func (c *Controller) spawn(r *activeRun, id int) {
	h := &workerHandle{
		worker: &Worker{
			ID:        id,
			Intensity: r.cfg.Intensity,
			Signal:    r.signal,
			Period:    c.period,
			Recorder:  c.recorder,
			Log:       c.log.With(zap.String("run", r.id)),
		},
		done: make(chan struct{}),
	}
	r.workers = append(r.workers, h)
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer close(h.done)
		defer func() {
			if p := recover(); p != nil {
				c.log.Error("worker crashed", zap.Int("worker", id), zap.Any("panic", p))
			}
		}()
		c.work(h.worker)
	}()
}

// finish tears down r. Only the first caller for a run does the work; later
// callers for the same run wait for it. Callers holding a stale run return
// immediately.
func (c *Controller) finish(r *activeRun, reason StopReason) {
	c.mu.Lock()
	if c.run != r {
		c.mu.Unlock()
		return
	}
	if c.phase == PhaseStopping {
		c.mu.Unlock()
		<-r.finished
		return
	}
	c.phase = PhaseStopping
	r.timer.Stop()
	r.stoppedAt = c.now()
	r.signal.Signal()
	c.mu.Unlock()

	c.log.Info("stopping run", zap.String("run", r.id), zap.String("reason", string(reason)))
	hung := c.join(r)

	rec := RunRecord{
		RunID:       r.id,
		Config:      r.cfg,
		StartedAt:   r.startedAt,
		StoppedAt:   r.stoppedAt,
		Elapsed:     r.stoppedAt.Sub(r.startedAt),
		Reason:      reason,
		HungWorkers: hung,
	}
	c.log.Info("run stopped",
		zap.String("run", r.id),
		zap.String("reason", string(reason)),
		zap.Duration("elapsed", rec.Elapsed),
		zap.Int("hungWorkers", hung))
	for _, o := range c.observers {
		o.RunFinished(rec)
	}

	c.mu.Lock()
	c.run = nil
	c.phase = PhaseIdle
	c.mu.Unlock()
	close(r.finished)
}

// join waits up to the grace period for every worker of r and returns how many
// were still alive afterwards. Those are abandoned: a goroutine cannot be
// killed, but the signal stays set so it exits at its next check.
func (c *Controller) join(r *activeRun) int {
	all := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(all)
	}()

	timer := time.NewTimer(c.grace)
	defer timer.Stop()
	select {
	case <-all:
		return 0
	case <-timer.C:
	}

	hung := 0
	for _, h := range r.workers {
		select {
		case <-h.done:
		default:
			hung++
			c.log.Warn("worker did not exit within grace period, abandoning",
				zap.String("run", r.id),
				zap.Int("worker", h.worker.ID),
				zap.Duration("grace", c.grace))
		}
	}
	return hung
}

func (c *Controller) ensureProcs(cores int) {
	if old := runtime.GOMAXPROCS(0); old < cores {
		runtime.GOMAXPROCS(cores)
		c.log.Info("raised GOMAXPROCS", zap.Int("oldValue", old), zap.Int("newValue", cores))
	}
}

func (c *Controller) notifyRejected(cfg RunConfig, err error) {
	for _, o := range c.observers {
		o.RunRejected(cfg, err)
	}
}
