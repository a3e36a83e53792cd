package config

import (
	"github.com/reuniteio/reunite/pkg/matching"
	"github.com/reuniteio/reunite/pkg/weights"
)

// MatchingConfig maps the environment settings onto the ranking pipeline
// configuration.
func (c *Config) MatchingConfig() matching.Config {
	return matching.Config{
		MaxRadiusKm:              c.MaxRadiusKm,
		TimeWindowDays:           c.TimeWindowDays,
		MinMatchScore:            c.MinMatchScore,
		TopK:                     c.TopK,
		GeoCellPrecision:         c.GeoCellPrecision,
		ScoreWorkerCount:         c.ScoreWorkerCount,
		RecencyFallbackLimit:     c.RecencyFallbackLimit,
		EnableText:               c.TextSignalEnabled,
		EnableImage:              c.ImageSignalEnabled,
		EnableFuzzyText:          c.FuzzyTextEnabled,
		EnablePeakDecay:          c.PeakDecayEnabled,
		SubcategoryMismatchScore: c.SubcategoryMismatchScore,
		PeakHours:                c.PeakHours,
		HalfLifeHours:            c.HalfLifeHours,
		DecayFloor:               c.DecayFloor,
	}
}

// InitialWeights returns the configured fusion weights used to seed the
// shared weight store before any feedback arrives.
func (c *Config) InitialWeights() weights.Weights {
	return weights.Weights{
		Category:   c.WeightCategory,
		Distance:   c.WeightDistance,
		Time:       c.WeightTime,
		Attributes: c.WeightAttributes,
		Text:       c.WeightText,
		Image:      c.WeightImage,
	}
}

// TunerConfig maps the environment settings onto the feedback-loop bounds.
func (c *Config) TunerConfig() weights.TunerConfig {
	return weights.TunerConfig{
		WindowSize:   c.TunerWindowSize,
		MinSamples:   c.TunerMinSamples,
		AcceptTarget: c.TunerAcceptTarget,
		Step:         c.TunerStep,
		MinWeight:    c.TunerMinWeight,
		MaxWeight:    c.TunerMaxWeight,
	}
}
