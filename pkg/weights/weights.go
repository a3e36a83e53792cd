// Package weights holds the shared score-fusion weights and the feedback
// loop that tunes them. Ranking calls snapshot the weights once at call
// start; the tuner is the only writer.
package weights

import (
	"sync"
)

// Weights are the per-component fusion weights. Zero values are valid (the
// component still scores but contributes nothing).
type Weights struct {
	Category   float64 `json:"category"`
	Distance   float64 `json:"distance"`
	Time       float64 `json:"time"`
	Attributes float64 `json:"attributes"`
	Text       float64 `json:"text"`
	Image      float64 `json:"image"`
}

// Default returns the baseline weight set.
func Default() Weights {
	return Weights{
		Category:   0.25,
		Distance:   0.20,
		Time:       0.15,
		Attributes: 0.15,
		Text:       0.15,
		Image:      0.10,
	}
}

// Store guards a shared weight set with snapshot-on-read semantics. Callers
// that captured a snapshot keep a consistent view even while the tuner
// updates the live set.
type Store struct {
	mu sync.RWMutex
	w  Weights
}

// NewStore creates a store seeded with the given weights.
func NewStore(w Weights) *Store {
	return &Store{w: w}
}

// Snapshot returns a copy of the current weights.
func (s *Store) Snapshot() Weights {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.w
}

// Update applies fn to the live weights under the write lock.
func (s *Store) Update(fn func(*Weights)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.w)
}
