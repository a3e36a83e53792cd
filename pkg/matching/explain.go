package matching

import (
	"strings"
)

// Confidence labels derived from the final fused score.
const (
	ConfidenceHigh   = "High"
	ConfidenceMedium = "Medium"
	ConfidenceLow    = "Low"
)

// explain assembles the human-readable summary returned with every scored
// candidate: one phrase per component that cleared (or clearly missed) its
// threshold, plus an overall confidence label.
func explain(breakdown map[string]float64, final float64) (string, string) {
	var phrases []string

	if v, ok := breakdown[ComponentCategory]; ok {
		switch {
		case v >= 1.0:
			phrases = append(phrases, "Strong category match")
		case v >= 0.6:
			phrases = append(phrases, "Category match")
		case v == 0:
			phrases = append(phrases, "Different category")
		}
	}

	if v, ok := breakdown[ComponentDistance]; ok && v != neutralScore {
		switch {
		case v >= 0.9:
			phrases = append(phrases, "Very close location")
		case v >= 0.6:
			phrases = append(phrases, "Nearby location")
		case v < 0.2:
			phrases = append(phrases, "Distant location")
		}
	}

	if v, ok := breakdown[ComponentTime]; ok && v != neutralScore {
		switch {
		case v >= 0.9:
			phrases = append(phrases, "Similar timeframe")
		case v >= 0.6:
			phrases = append(phrases, "Close timeframe")
		case v < 0.2:
			phrases = append(phrases, "Distant timeframe")
		}
	}

	if v, ok := breakdown[ComponentAttributes]; ok && v != neutralScore {
		switch {
		case v >= 0.99:
			phrases = append(phrases, "All attributes match")
		case v >= 0.5:
			phrases = append(phrases, "Some attributes match")
		}
	}

	if v, ok := breakdown[ComponentText]; ok && v != neutralScore {
		switch {
		case v >= 0.8:
			phrases = append(phrases, "Very similar description")
		case v >= 0.6:
			phrases = append(phrases, "Similar description")
		}
	}

	if v, ok := breakdown[ComponentImage]; ok && v != neutralScore {
		switch {
		case v >= 0.9:
			phrases = append(phrases, "Nearly identical images")
		case v >= 0.75:
			phrases = append(phrases, "Similar images")
		}
	}

	confidence := ConfidenceLow
	switch {
	case final >= 0.75:
		confidence = ConfidenceHigh
	case final >= 0.5:
		confidence = ConfidenceMedium
	}

	if len(phrases) == 0 {
		phrases = append(phrases, "Limited signals available")
	}

	return strings.Join(phrases, "; "), confidence
}
