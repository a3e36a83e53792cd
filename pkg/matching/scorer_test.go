package matching

import (
	"context"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"

	"github.com/reuniteio/reunite/pkg/models"
	"github.com/reuniteio/reunite/pkg/weights"
)

func testLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

func strPtr(s string) *string        { return &s }
func f64Ptr(f float64) *float64      { return &f }
func timePtr(t time.Time) *time.Time { return &t }

func testItem(id string, status models.ItemStatus) *models.Item {
	return &models.Item{
		ID:      id,
		Status:  status,
		OwnerID: "owner-" + id,
		Title:   "item " + id,
	}
}

func TestScorerCategoryScore(t *testing.T) {
	s := NewScorer(testLogger(), DefaultConfig())

	tests := []struct {
		name     string
		qCat     string
		qSub     *string
		cCat     string
		cSub     *string
		expected float64
	}{
		{"ExactWithSubcategory", "electronics", strPtr("phone"), "electronics", strPtr("phone"), 1.0},
		{"CategoryOnly", "electronics", nil, "electronics", nil, 0.8},
		{"OneSidedSubcategory", "electronics", strPtr("phone"), "electronics", nil, 0.8},
		{"SubcategoryMismatch", "electronics", strPtr("phone"), "electronics", strPtr("laptop"), 0.6},
		{"CategoryMismatch", "electronics", nil, "bags", nil, 0.0},
		{"CaseInsensitive", "Electronics", strPtr("Phone"), "electronics", strPtr("phone"), 1.0},
		{"QueryCategoryMissing", "", nil, "electronics", nil, neutralScore},
		{"CandidateCategoryMissing", "electronics", nil, "", nil, neutralScore},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			query := testItem("q", models.ItemStatusLost)
			query.Category = tt.qCat
			query.Subcategory = tt.qSub
			cand := testItem("c", models.ItemStatusFound)
			cand.Category = tt.cCat
			cand.Subcategory = tt.cSub

			assert.InDelta(t, tt.expected, s.categoryScore(query, cand), 1e-9)
		})
	}
}

func TestScorerDistanceScore(t *testing.T) {
	s := NewScorer(testLogger(), DefaultConfig())

	t.Run("SameLocationScoresOne", func(t *testing.T) {
		query := testItem("q", models.ItemStatusLost)
		query.Latitude = f64Ptr(40.7128)
		query.Longitude = f64Ptr(-74.0060)
		cand := testItem("c", models.ItemStatusFound)
		cand.Latitude = f64Ptr(40.7128)
		cand.Longitude = f64Ptr(-74.0060)

		score, km := s.distanceScore(query, cand)
		assert.InDelta(t, 1.0, score, 1e-9)
		assert.NotNil(t, km)
		assert.InDelta(t, 0, *km, 1e-6)
	})

	t.Run("DecaysWithDistance", func(t *testing.T) {
		query := testItem("q", models.ItemStatusLost)
		query.Latitude = f64Ptr(40.7128)
		query.Longitude = f64Ptr(-74.0060)
		near := testItem("n", models.ItemStatusFound)
		near.Latitude = f64Ptr(40.7228)
		near.Longitude = f64Ptr(-74.0060)
		far := testItem("f", models.ItemStatusFound)
		far.Latitude = f64Ptr(41.0)
		far.Longitude = f64Ptr(-74.0060)

		nearScore, _ := s.distanceScore(query, near)
		farScore, _ := s.distanceScore(query, far)
		assert.Greater(t, nearScore, farScore)
	})

	t.Run("MissingCoordinatesIsNeutral", func(t *testing.T) {
		query := testItem("q", models.ItemStatusLost)
		cand := testItem("c", models.ItemStatusFound)
		cand.Latitude = f64Ptr(40.0)
		cand.Longitude = f64Ptr(-74.0)

		score, km := s.distanceScore(query, cand)
		assert.Equal(t, neutralScore, score)
		assert.Nil(t, km)
	})
}

func TestScorerTimeScore(t *testing.T) {
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("ZeroDeltaScoresOne", func(t *testing.T) {
		s := NewScorer(testLogger(), DefaultConfig())
		query := testItem("q", models.ItemStatusLost)
		query.OccurredAt = timePtr(base)
		cand := testItem("c", models.ItemStatusFound)
		cand.OccurredAt = timePtr(base)

		score, hours := s.timeScore(query, cand)
		assert.InDelta(t, 1.0, score, 1e-9)
		assert.NotNil(t, hours)
		assert.InDelta(t, 0, *hours, 1e-9)
	})

	t.Run("PlateauHoldsInsidePeakWindow", func(t *testing.T) {
		s := NewScorer(testLogger(), DefaultConfig())
		query := testItem("q", models.ItemStatusLost)
		query.OccurredAt = timePtr(base)
		cand := testItem("c", models.ItemStatusFound)
		cand.OccurredAt = timePtr(base.Add(12 * time.Hour))

		score, _ := s.timeScore(query, cand)
		assert.InDelta(t, 1.0, score, 1e-9)
	})

	t.Run("PlainExponentialWhenPeakDecayDisabled", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.EnablePeakDecay = false
		s := NewScorer(testLogger(), cfg)

		query := testItem("q", models.ItemStatusLost)
		query.OccurredAt = timePtr(base)
		cand := testItem("c", models.ItemStatusFound)
		cand.OccurredAt = timePtr(base.Add(12 * time.Hour))

		score, _ := s.timeScore(query, cand)
		assert.Less(t, score, 1.0)
		assert.Greater(t, score, 0.0)
	})

	t.Run("WindowMidpointUsed", func(t *testing.T) {
		s := NewScorer(testLogger(), DefaultConfig())
		query := testItem("q", models.ItemStatusLost)
		query.WindowStart = timePtr(base)
		query.WindowEnd = timePtr(base.Add(4 * time.Hour))
		cand := testItem("c", models.ItemStatusFound)
		cand.OccurredAt = timePtr(base.Add(2 * time.Hour))

		score, hours := s.timeScore(query, cand)
		assert.InDelta(t, 1.0, score, 1e-9)
		assert.InDelta(t, 0, *hours, 1e-9)
	})

	t.Run("NoTimestampIsNeutral", func(t *testing.T) {
		s := NewScorer(testLogger(), DefaultConfig())
		query := testItem("q", models.ItemStatusLost)
		cand := testItem("c", models.ItemStatusFound)
		cand.OccurredAt = timePtr(base)

		score, hours := s.timeScore(query, cand)
		assert.Equal(t, neutralScore, score)
		assert.Nil(t, hours)
	})
}

func TestScorerAttributeScore(t *testing.T) {
	s := NewScorer(testLogger(), DefaultConfig())

	tests := []struct {
		name     string
		query    [3]*string // brand, color, model
		cand     [3]*string
		expected float64
	}{
		{"AllMatch", [3]*string{strPtr("apple"), strPtr("black"), strPtr("iphone13")}, [3]*string{strPtr("apple"), strPtr("black"), strPtr("iphone13")}, 1.0},
		{"TwoOfThree", [3]*string{strPtr("apple"), strPtr("black"), strPtr("iphone13")}, [3]*string{strPtr("apple"), strPtr("black"), strPtr("iphone14")}, 2.0 / 3.0},
		{"OneSidedCountsAgainst", [3]*string{strPtr("apple"), nil, nil}, [3]*string{nil, nil, nil}, 0.0},
		{"NothingSpecifiedIsNeutral", [3]*string{nil, nil, nil}, [3]*string{nil, nil, nil}, neutralScore},
		{"CaseInsensitive", [3]*string{strPtr("Apple"), nil, nil}, [3]*string{strPtr("apple"), nil, nil}, 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			query := testItem("q", models.ItemStatusLost)
			query.Brand, query.Color, query.Model = tt.query[0], tt.query[1], tt.query[2]
			cand := testItem("c", models.ItemStatusFound)
			cand.Brand, cand.Color, cand.Model = tt.cand[0], tt.cand[1], tt.cand[2]

			assert.InDelta(t, tt.expected, s.attributeScore(query, cand), 1e-9)
		})
	}
}

func TestScorerTextScore(t *testing.T) {
	ctx := context.Background()

	t.Run("IdenticalEmbeddingsScoreOne", func(t *testing.T) {
		s := NewScorer(testLogger(), DefaultConfig())
		query := testItem("q", models.ItemStatusLost)
		query.Embedding = []float64{0.5, 0.5, 0.1}
		cand := testItem("c", models.ItemStatusFound)
		cand.Embedding = []float64{0.5, 0.5, 0.1}

		assert.InDelta(t, 1.0, s.textScore(ctx, query, cand), 1e-9)
	})

	t.Run("OppositeEmbeddingsScoreZero", func(t *testing.T) {
		s := NewScorer(testLogger(), DefaultConfig())
		query := testItem("q", models.ItemStatusLost)
		query.Embedding = []float64{1, 0}
		cand := testItem("c", models.ItemStatusFound)
		cand.Embedding = []float64{-1, 0}

		assert.InDelta(t, 0.0, s.textScore(ctx, query, cand), 1e-9)
	})

	t.Run("LengthMismatchIsNeutral", func(t *testing.T) {
		s := NewScorer(testLogger(), DefaultConfig())
		query := testItem("q", models.ItemStatusLost)
		query.Embedding = []float64{1, 0}
		cand := testItem("c", models.ItemStatusFound)
		cand.Embedding = []float64{1, 0, 0}

		assert.Equal(t, neutralScore, s.textScore(ctx, query, cand))
	})

	t.Run("ZeroVectorScoresZero", func(t *testing.T) {
		s := NewScorer(testLogger(), DefaultConfig())
		query := testItem("q", models.ItemStatusLost)
		query.Embedding = []float64{0, 0}
		cand := testItem("c", models.ItemStatusFound)
		cand.Embedding = []float64{1, 0}

		assert.InDelta(t, 0.0, s.textScore(ctx, query, cand), 1e-9)
	})

	t.Run("FuzzyFallbackWhenEmbeddingMissing", func(t *testing.T) {
		s := NewScorer(testLogger(), DefaultConfig())
		query := testItem("q", models.ItemStatusLost)
		query.Title = "black leather wallet"
		cand := testItem("c", models.ItemStatusFound)
		cand.Title = "black leather wallet"

		assert.InDelta(t, 1.0, s.textScore(ctx, query, cand), 1e-6)
	})

	t.Run("NeutralWhenFuzzyDisabledAndNoEmbeddings", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.EnableFuzzyText = false
		s := NewScorer(testLogger(), cfg)

		query := testItem("q", models.ItemStatusLost)
		cand := testItem("c", models.ItemStatusFound)

		assert.Equal(t, neutralScore, s.textScore(ctx, query, cand))
	})
}

func TestScorerImageScore(t *testing.T) {
	ctx := context.Background()
	s := NewScorer(testLogger(), DefaultConfig())

	t.Run("IdenticalHashesScoreOne", func(t *testing.T) {
		query := testItem("q", models.ItemStatusLost)
		query.ImageHashes = []models.ImageHash{{MediaID: "m1", PHash: strPtr("ffffffffffffffff")}}
		cand := testItem("c", models.ItemStatusFound)
		cand.ImageHashes = []models.ImageHash{{MediaID: "m2", PHash: strPtr("ffffffffffffffff")}}

		assert.InDelta(t, 1.0, s.imageScore(ctx, query, cand), 1e-9)
	})

	t.Run("EightDifferentBits", func(t *testing.T) {
		query := testItem("q", models.ItemStatusLost)
		query.ImageHashes = []models.ImageHash{{MediaID: "m1", PHash: strPtr("ffffffffffffffff")}}
		cand := testItem("c", models.ItemStatusFound)
		cand.ImageHashes = []models.ImageHash{{MediaID: "m2", PHash: strPtr("ffffffffffffff00")}}

		assert.InDelta(t, 1.0-8.0/64.0, s.imageScore(ctx, query, cand), 1e-9)
	})

	t.Run("NoHashesIsNeutral", func(t *testing.T) {
		query := testItem("q", models.ItemStatusLost)
		cand := testItem("c", models.ItemStatusFound)

		assert.Equal(t, neutralScore, s.imageScore(ctx, query, cand))
	})
}

func TestScorerScoreFusion(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	w := weights.Default()

	perfectPair := func() (*models.Item, *models.Item) {
		query := testItem("q", models.ItemStatusLost)
		query.Category = "electronics"
		query.Subcategory = strPtr("phone")
		query.Brand = strPtr("apple")
		query.Color = strPtr("black")
		query.Latitude = f64Ptr(40.7128)
		query.Longitude = f64Ptr(-74.0060)
		query.OccurredAt = timePtr(base)
		query.Embedding = []float64{0.1, 0.9}
		query.ImageHashes = []models.ImageHash{{MediaID: "m1", PHash: strPtr("abcdef0123456789")}}

		cand := testItem("c", models.ItemStatusFound)
		cand.Category = "electronics"
		cand.Subcategory = strPtr("phone")
		cand.Brand = strPtr("apple")
		cand.Color = strPtr("black")
		cand.Latitude = f64Ptr(40.7128)
		cand.Longitude = f64Ptr(-74.0060)
		cand.OccurredAt = timePtr(base)
		cand.Embedding = []float64{0.1, 0.9}
		cand.ImageHashes = []models.ImageHash{{MediaID: "m2", PHash: strPtr("abcdef0123456789")}}
		return query, cand
	}

	t.Run("PerfectPairScoresOne", func(t *testing.T) {
		s := NewScorer(testLogger(), DefaultConfig())
		query, cand := perfectPair()

		result := s.Score(ctx, query, cand, w)
		assert.InDelta(t, 1.0, result.Score, 1e-9)
		assert.Equal(t, ConfidenceHigh, result.Confidence)
		assert.Len(t, result.Breakdown, 6)
	})

	t.Run("FinalScoreAlwaysInUnitInterval", func(t *testing.T) {
		s := NewScorer(testLogger(), DefaultConfig())
		query, _ := perfectPair()
		cand := testItem("c", models.ItemStatusFound)
		cand.Category = "bags"

		result := s.Score(ctx, query, cand, w)
		assert.GreaterOrEqual(t, result.Score, 0.0)
		assert.LessOrEqual(t, result.Score, 1.0)
	})

	t.Run("DisabledSignalsExcludedFromFusion", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.EnableText = false
		cfg.EnableImage = false
		s := NewScorer(testLogger(), cfg)

		query, cand := perfectPair()
		result := s.Score(ctx, query, cand, w)

		// Baseline components are all 1.0, so the baseline-normalized
		// fusion must still be 1.0 with text/image gone.
		assert.InDelta(t, 1.0, result.Score, 1e-9)
		assert.NotContains(t, result.Breakdown, ComponentText)
		assert.NotContains(t, result.Breakdown, ComponentImage)
		assert.Len(t, result.Breakdown, 4)
	})

	t.Run("CategoryMismatchDragsScoreDown", func(t *testing.T) {
		s := NewScorer(testLogger(), DefaultConfig())
		query, cand := perfectPair()
		cand.Category = "bags"
		cand.Subcategory = nil

		mismatch := s.Score(ctx, query, cand, w)
		_, full := perfectPair()
		match := s.Score(ctx, query, full, w)
		assert.Less(t, mismatch.Score, match.Score)
	})

	t.Run("MissingSignalsNeutralNotZero", func(t *testing.T) {
		s := NewScorer(testLogger(), DefaultConfig())
		query := testItem("q", models.ItemStatusLost)
		cand := testItem("c", models.ItemStatusFound)

		result := s.Score(ctx, query, cand, w)
		// Attribute/text components resolve from the empty titles; every
		// breakdown entry that had no data must sit at the sentinel.
		assert.Equal(t, neutralScore, result.Breakdown[ComponentCategory])
		assert.Equal(t, neutralScore, result.Breakdown[ComponentDistance])
		assert.Equal(t, neutralScore, result.Breakdown[ComponentTime])
		assert.Equal(t, neutralScore, result.Breakdown[ComponentImage])
	})
}
