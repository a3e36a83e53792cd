package matching

import (
	"fmt"

	"github.com/reuniteio/reunite/pkg/weights"
)

// Config holds the non-weight knobs of the ranking pipeline. Fusion weights
// live in a weights.Store so the feedback loop can tune them at runtime.
type Config struct {
	// MaxRadiusKm bounds the precise distance filter and sets the distance
	// decay factor (maxRadius/3).
	MaxRadiusKm float64
	// TimeWindowDays is the slack applied around point timestamps during
	// temporal filtering and sets the time decay factor (windowDays*24/3).
	TimeWindowDays int
	// MinMatchScore is the persistence threshold; weaker pairs are ranked
	// but never stored.
	MinMatchScore float64
	// TopK is the default result truncation; callers may override per call.
	TopK int
	// GeoCellPrecision is the cell key length for spatial blocking.
	GeoCellPrecision int
	// ScoreWorkerCount bounds the scoring fan-out per ranking call.
	ScoreWorkerCount int
	// RecencyFallbackLimit caps the candidate list when the query has
	// neither a cell key nor coordinates.
	RecencyFallbackLimit int

	// EnableText and EnableImage switch the optional signals. Disabled
	// signals are excluded from both numerator and denominator of the
	// fusion, keeping baseline-only scores correctly normalized.
	EnableText  bool
	EnableImage bool

	// EnableFuzzyText substitutes lexical similarity for the text component
	// when embeddings are missing on either side.
	EnableFuzzyText bool
	// EnablePeakDecay substitutes the plateau time-decay curve for the
	// plain exponential.
	EnablePeakDecay bool

	// SubcategoryMismatchScore is the category component value when
	// categories match but both subcategories are present and differ.
	SubcategoryMismatchScore float64

	// PeakDecay tunes the plateau curve when EnablePeakDecay is on.
	PeakHours     float64
	HalfLifeHours float64
	DecayFloor    float64
}

// DefaultConfig returns the deployment defaults.
func DefaultConfig() Config {
	return Config{
		MaxRadiusKm:              50,
		TimeWindowDays:           14,
		MinMatchScore:            0.4,
		TopK:                     20,
		GeoCellPrecision:         5,
		ScoreWorkerCount:         4,
		RecencyFallbackLimit:     100,
		EnableText:               true,
		EnableImage:              true,
		EnableFuzzyText:          true,
		EnablePeakDecay:          true,
		SubcategoryMismatchScore: 0.6,
		PeakHours:                24,
		HalfLifeHours:            168,
		DecayFloor:               0.1,
	}
}

// Validate rejects configuration that would make scoring meaningless. The
// weight check uses only weights active under the enable flags so a
// baseline-only deployment with zeroed text/image weights stays valid.
func (c Config) Validate(w weights.Weights) error {
	active := w.Category + w.Distance + w.Time + w.Attributes
	if c.EnableText {
		active += w.Text
	}
	if c.EnableImage {
		active += w.Image
	}
	if active <= 0 {
		return fmt.Errorf("%w: active weights sum to zero", ErrInvalidConfig)
	}

	if w.Category < 0 || w.Distance < 0 || w.Time < 0 || w.Attributes < 0 || w.Text < 0 || w.Image < 0 {
		return fmt.Errorf("%w: negative weight", ErrInvalidConfig)
	}
	if c.MaxRadiusKm <= 0 {
		return fmt.Errorf("%w: max radius must be positive", ErrInvalidConfig)
	}
	if c.TimeWindowDays <= 0 {
		return fmt.Errorf("%w: time window must be positive", ErrInvalidConfig)
	}
	if c.TopK <= 0 {
		return fmt.Errorf("%w: top-k must be positive", ErrInvalidConfig)
	}
	if c.GeoCellPrecision < 1 || c.GeoCellPrecision > 12 {
		return fmt.Errorf("%w: cell precision out of range [1,12]", ErrInvalidConfig)
	}
	if c.ScoreWorkerCount <= 0 {
		return fmt.Errorf("%w: worker count must be positive", ErrInvalidConfig)
	}
	if c.SubcategoryMismatchScore < 0 || c.SubcategoryMismatchScore > 1 {
		return fmt.Errorf("%w: subcategory mismatch score out of range [0,1]", ErrInvalidConfig)
	}
	return nil
}
