package weights

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStoreSnapshot(t *testing.T) {
	t.Run("SnapshotIsCopy", func(t *testing.T) {
		store := NewStore(Default())
		snap := store.Snapshot()

		store.Update(func(w *Weights) { w.Text = 0.9 })

		assert.Equal(t, 0.15, snap.Text)
		assert.Equal(t, 0.9, store.Snapshot().Text)
	})

	t.Run("ConcurrentReadersAndWriter", func(t *testing.T) {
		store := NewStore(Default())
		var wg sync.WaitGroup

		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				store.Update(func(w *Weights) { w.Category += 0.0001 })
			}
		}()
		for r := 0; r < 4; r++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := 0; i < 100; i++ {
					_ = store.Snapshot()
				}
			}()
		}

		wg.Wait()
		assert.InDelta(t, 0.25+100*0.0001, store.Snapshot().Category, 1e-9)
	})
}

func TestTuner(t *testing.T) {
	t.Run("NoAdjustmentBelowMinSamples", func(t *testing.T) {
		store := NewStore(Default())
		tuner := NewTuner(store, nil, DefaultTunerConfig())

		for i := 0; i < 10; i++ {
			tuner.Record(false)
		}

		assert.Equal(t, Default(), store.Snapshot())
	})

	t.Run("NoAdjustmentWhenRateHealthy", func(t *testing.T) {
		store := NewStore(Default())
		tuner := NewTuner(store, nil, DefaultTunerConfig())

		for i := 0; i < 30; i++ {
			tuner.Record(i%2 == 0)
		}

		assert.Equal(t, Default(), store.Snapshot())
	})

	t.Run("LowAcceptanceShiftsTowardTextAndImage", func(t *testing.T) {
		store := NewStore(Default())
		cfg := DefaultTunerConfig()
		tuner := NewTuner(store, nil, cfg)

		for i := 0; i < cfg.MinSamples; i++ {
			tuner.Record(false)
		}

		w := store.Snapshot()
		assert.InDelta(t, 0.15+cfg.Step, w.Text, 1e-9)
		assert.InDelta(t, 0.10+cfg.Step, w.Image, 1e-9)
		assert.InDelta(t, 0.20-cfg.Step, w.Distance, 1e-9)
		assert.InDelta(t, 0.15-cfg.Step, w.Time, 1e-9)
		assert.Equal(t, 0.25, w.Category)
	})

	t.Run("WindowClearedAfterAdjustment", func(t *testing.T) {
		store := NewStore(Default())
		cfg := DefaultTunerConfig()
		tuner := NewTuner(store, nil, cfg)

		for i := 0; i < cfg.MinSamples; i++ {
			tuner.Record(false)
		}
		_, n := tuner.AcceptanceRate()
		assert.Equal(t, 0, n)
	})

	t.Run("ClampPreventsRunawayDrift", func(t *testing.T) {
		store := NewStore(Default())
		cfg := DefaultTunerConfig()
		tuner := NewTuner(store, nil, cfg)

		// Many adjustment rounds of all-rejected feedback.
		for round := 0; round < 40; round++ {
			for i := 0; i < cfg.MinSamples; i++ {
				tuner.Record(false)
			}
		}

		w := store.Snapshot()
		assert.LessOrEqual(t, w.Text, cfg.MaxWeight)
		assert.LessOrEqual(t, w.Image, cfg.MaxWeight)
		assert.GreaterOrEqual(t, w.Distance, cfg.MinWeight)
		assert.GreaterOrEqual(t, w.Time, cfg.MinWeight)
	})

	t.Run("SeedFillsWindowWithoutAdjusting", func(t *testing.T) {
		store := NewStore(Default())
		tuner := NewTuner(store, nil, DefaultTunerConfig())

		seed := make([]bool, 30)
		tuner.Seed(seed)

		rate, n := tuner.AcceptanceRate()
		assert.Equal(t, 30, n)
		assert.Equal(t, 0.0, rate)
		assert.Equal(t, Default(), store.Snapshot())
	})

	t.Run("WindowSlides", func(t *testing.T) {
		store := NewStore(Default())
		cfg := DefaultTunerConfig()
		cfg.MinSamples = 1000 // never adjust in this test
		tuner := NewTuner(store, nil, cfg)

		for i := 0; i < cfg.WindowSize; i++ {
			tuner.Record(false)
		}
		for i := 0; i < cfg.WindowSize/2; i++ {
			tuner.Record(true)
		}

		rate, n := tuner.AcceptanceRate()
		assert.Equal(t, cfg.WindowSize, n)
		assert.InDelta(t, 0.5, rate, 1e-9)
	})
}
