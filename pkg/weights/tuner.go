package weights

import (
	"sync"

	"github.com/Gobusters/ectologger"
)

// TunerConfig bounds the feedback loop.
type TunerConfig struct {
	// WindowSize is the number of recent judgements considered.
	WindowSize int
	// MinSamples gates adjustment until enough evidence accumulated.
	MinSamples int
	// AcceptTarget is the acceptance rate below which weights are nudged.
	AcceptTarget float64
	// Step is the per-adjustment weight delta.
	Step float64
	// MinWeight/MaxWeight clamp every component after adjustment.
	MinWeight float64
	MaxWeight float64
}

// DefaultTunerConfig returns the default feedback-loop bounds.
func DefaultTunerConfig() TunerConfig {
	return TunerConfig{
		WindowSize:   50,
		MinSamples:   20,
		AcceptTarget: 0.3,
		Step:         0.02,
		MinWeight:    0.05,
		MaxWeight:    0.5,
	}
}

// Tuner observes match acceptance over a sliding window and nudges the
// shared weights toward the descriptive signals (text, image) when the
// acceptance rate drops, on the theory that geo/time proximity alone is
// producing weak suggestions. Adjustments are bounded so repeated feedback
// can never push a weight outside [MinWeight, MaxWeight].
type Tuner struct {
	store  *Store
	logger ectologger.Logger
	cfg    TunerConfig

	mu     sync.Mutex
	window []bool
}

// NewTuner creates a tuner writing to the given store.
func NewTuner(store *Store, logger ectologger.Logger, cfg TunerConfig) *Tuner {
	if cfg.WindowSize <= 0 {
		cfg = DefaultTunerConfig()
	}
	return &Tuner{
		store:  store,
		logger: logger,
		cfg:    cfg,
		window: make([]bool, 0, cfg.WindowSize),
	}
}

// Seed preloads the window with historical judgements, oldest first. Used at
// startup to resume from persisted feedback. Seeding never triggers an
// adjustment.
func (t *Tuner) Seed(accepted []bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, a := range accepted {
		t.push(a)
	}
}

// Record adds one judgement and adjusts weights when the window shows a low
// acceptance rate. The window is cleared after an adjustment so the same
// evidence is not applied twice.
func (t *Tuner) Record(accepted bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.push(accepted)

	rate, n := t.rate()
	if n < t.cfg.MinSamples || rate >= t.cfg.AcceptTarget {
		return
	}

	var before, after Weights
	t.store.Update(func(w *Weights) {
		before = *w
		w.Text = t.clamp(w.Text + t.cfg.Step)
		w.Image = t.clamp(w.Image + t.cfg.Step)
		w.Distance = t.clamp(w.Distance - t.cfg.Step)
		w.Time = t.clamp(w.Time - t.cfg.Step)
		after = *w
	})
	t.window = t.window[:0]

	if t.logger != nil {
		t.logger.WithFields(map[string]any{
			"acceptance_rate": rate,
			"samples":         n,
			"weights_before":  before,
			"weights_after":   after,
		}).Info("Adjusted fusion weights from feedback")
	}
}

// AcceptanceRate returns the current windowed rate and sample count.
func (t *Tuner) AcceptanceRate() (float64, int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.rate()
}

func (t *Tuner) push(accepted bool) {
	if len(t.window) == t.cfg.WindowSize {
		copy(t.window, t.window[1:])
		t.window = t.window[:len(t.window)-1]
	}
	t.window = append(t.window, accepted)
}

func (t *Tuner) rate() (float64, int) {
	if len(t.window) == 0 {
		return 0, 0
	}
	accepted := 0
	for _, a := range t.window {
		if a {
			accepted++
		}
	}
	return float64(accepted) / float64(len(t.window)), len(t.window)
}

func (t *Tuner) clamp(v float64) float64 {
	if v < t.cfg.MinWeight {
		return t.cfg.MinWeight
	}
	if v > t.cfg.MaxWeight {
		return t.cfg.MaxWeight
	}
	return v
}
