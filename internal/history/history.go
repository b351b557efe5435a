package history

import (
	"sync"
	"time"

	"crunch/internal/loadgen"
)

// MaxItems caps the number of runs kept in memory.
const MaxItems = 100

type Item struct {
	ID          string             `json:"id"`
	Config      loadgen.RunConfig  `json:"config"`
	StartedAt   time.Time          `json:"started_at"`
	StoppedAt   time.Time          `json:"stopped_at"`
	Elapsed     float64            `json:"elapsed_seconds"`
	Reason      loadgen.StopReason `json:"reason"`
	HungWorkers int                `json:"hung_workers"`
}

// Store keeps finished runs for the lifetime of the process only.
type Store struct {
	mu    sync.RWMutex
	items []Item
}

func NewStore() *Store {
	return &Store{}
}

func (s *Store) Save(item Item) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Add to beginning
	s.items = append([]Item{item}, s.items...)

	if len(s.items) > MaxItems {
		s.items = s.items[:MaxItems]
	}
}

// List returns a copy, newest first.
func (s *Store) List() []Item {
	s.mu.RLock()
	defer s.mu.RUnlock()

	res := make([]Item, len(s.items))
	copy(res, s.items)
	return res
}

func (s *Store) Get(id string) (Item, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, item := range s.items {
		if item.ID == id {
			return item, true
		}
	}
	return Item{}, false
}

// RunFinished records a finished run. Together with the no-op hooks below it
// makes Store a loadgen.Observer.
func (s *Store) RunFinished(rec loadgen.RunRecord) {
	s.Save(Item{
		ID:          rec.RunID,
		Config:      rec.Config,
		StartedAt:   rec.StartedAt,
		StoppedAt:   rec.StoppedAt,
		Elapsed:     rec.Elapsed.Seconds(),
		Reason:      rec.Reason,
		HungWorkers: rec.HungWorkers,
	})
}

func (s *Store) RunStarted(loadgen.RunState)          {}
func (s *Store) RunRejected(loadgen.RunConfig, error) {}
