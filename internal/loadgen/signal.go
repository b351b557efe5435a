package loadgen

import (
	"sync"
	"sync/atomic"
)

// StopSignal is a one-shot broadcast shared by every worker of a run.
// It cannot be reset; each run gets a fresh one.
type StopSignal struct {
	once     sync.Once
	signaled atomic.Bool
	done     chan struct{}
}

func NewStopSignal() *StopSignal {
	return &StopSignal{done: make(chan struct{})}
}

// Signal marks the signal as fired. Calls after the first are no-ops.
func (s *StopSignal) Signal() {
	s.once.Do(func() {
		s.signaled.Store(true)
		close(s.done)
	})
}

func (s *StopSignal) IsSignaled() bool {
	return s.signaled.Load()
}

// Done is closed when the signal fires, for use in select.
func (s *StopSignal) Done() <-chan struct{} {
	return s.done
}
