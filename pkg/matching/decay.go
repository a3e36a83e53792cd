package matching

import (
	"math"
)

// PeakDecay is the plateau time-decay curve: full relevance inside the peak
// window, exponential half-life decay beyond it, floored so recency never
// fully eliminates a candidate.
type PeakDecay struct {
	PeakHours     float64
	HalfLifeHours float64
	Floor         float64
}

// Score maps an absolute time delta in hours to [Floor, 1].
func (d PeakDecay) Score(hours float64) float64 {
	if hours < 0 {
		hours = -hours
	}
	if hours <= d.PeakHours {
		return 1
	}
	if d.HalfLifeHours <= 0 {
		return d.Floor
	}
	s := math.Exp(-math.Ln2 * (hours - d.PeakHours) / d.HalfLifeHours)
	if s < d.Floor {
		return d.Floor
	}
	return s
}
