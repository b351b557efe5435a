package loadgen

import (
	"math"
	"runtime"
	"time"

	"go.uber.org/zap"
)

// burnIterations is sized so one burn() call takes a few microseconds,
// keeping stop-signal checks well under a millisecond apart.
const burnIterations = 2000

// Worker consumes CPU in a duty cycle until its StopSignal fires.
type Worker struct {
	ID        int
	Intensity int
	Signal    *StopSignal
	Period    time.Duration
	Recorder  CycleRecorder
	Log       *zap.Logger

	sink float64
}

// Run blocks until the stop signal is observed. It never panics.
func (w *Worker) Run() {
	log := w.Log
	if log == nil {
		log = zap.NewNop()
	}
	defer func() {
		if r := recover(); r != nil {
			log.Error("worker crashed", zap.Int("worker", w.ID), zap.Any("panic", r))
		}
	}()

	// One OS thread per worker so several workers load several cores.
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	busy, idle := w.split()
	log.Info("worker started",
		zap.Int("worker", w.ID),
		zap.Int("intensity", w.Intensity),
		zap.Duration("busy", busy),
		zap.Duration("idle", idle))

	for !w.Signal.IsSignaled() {
		start := time.Now()
		for time.Since(start) < busy {
			if w.Signal.IsSignaled() {
				return
			}
			w.burn()
		}
		busyTook := time.Since(start)

		var idleTook time.Duration
		if idle > 0 {
			idleStart := time.Now()
			if !w.rest(idle) {
				return
			}
			idleTook = time.Since(idleStart)
		}

		if w.Recorder != nil {
			w.Recorder.ObserveCycle(w.ID, busyTook, idleTook)
		}
	}
}

// split returns the busy and idle parts of one period.
func (w *Worker) split() (busy, idle time.Duration) {
	period := w.Period
	if period <= 0 {
		period = DutyCyclePeriod
	}
	intensity := w.Intensity
	if intensity > MaxIntensity {
		intensity = MaxIntensity
	}
	if intensity < 0 {
		intensity = 0
	}
	busy = period * time.Duration(intensity) / 100
	return busy, period - busy
}

// rest waits for d or the stop signal. It reports false when the signal won.
func (w *Worker) rest(d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-w.Signal.Done():
		return false
	}
}

func (w *Worker) burn() {
	x := w.sink
	for i := 0; i < burnIterations; i++ {
		x += math.Sqrt(float64(i) * 3.14159 * 2.71828)
	}
	if x > 1e12 {
		x = 0
	}
	w.sink = x
}
