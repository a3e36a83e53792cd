package matching

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/reuniteio/reunite/pkg/models"
)

func TestFilterTemporal(t *testing.T) {
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	slack := 14 * 24 * time.Hour

	itemAt := func(id string, at time.Time) models.Item {
		i := testItem(id, models.ItemStatusFound)
		i.OccurredAt = timePtr(at)
		return *i
	}

	t.Run("KeepsCandidatesInsideSlack", func(t *testing.T) {
		query := testItem("q", models.ItemStatusLost)
		query.OccurredAt = timePtr(base)

		candidates := []models.Item{
			itemAt("same-day", base),
			itemAt("week-later", base.Add(7*24*time.Hour)),
			itemAt("month-later", base.Add(30*24*time.Hour)),
		}

		out := filterTemporal(query, candidates, slack)
		ids := make([]string, 0, len(out))
		for _, c := range out {
			ids = append(ids, c.ID)
		}
		assert.Equal(t, []string{"same-day", "week-later"}, ids)
	})

	t.Run("ExplicitWindowsOverlap", func(t *testing.T) {
		query := testItem("q", models.ItemStatusLost)
		query.WindowStart = timePtr(base)
		query.WindowEnd = timePtr(base.Add(48 * time.Hour))

		inside := testItem("inside", models.ItemStatusFound)
		inside.WindowStart = timePtr(base.Add(24 * time.Hour))
		inside.WindowEnd = timePtr(base.Add(72 * time.Hour))

		outside := testItem("outside", models.ItemStatusFound)
		outside.WindowStart = timePtr(base.Add(100 * time.Hour))
		outside.WindowEnd = timePtr(base.Add(120 * time.Hour))

		out := filterTemporal(query, []models.Item{*inside, *outside}, slack)
		assert.Len(t, out, 1)
		assert.Equal(t, "inside", out[0].ID)
	})

	t.Run("AmbiguousCandidatesPassThrough", func(t *testing.T) {
		query := testItem("q", models.ItemStatusLost)
		query.OccurredAt = timePtr(base)

		noTime := *testItem("no-time", models.ItemStatusFound)

		out := filterTemporal(query, []models.Item{noTime}, slack)
		assert.Len(t, out, 1)
	})

	t.Run("AmbiguousQueryPassesEverything", func(t *testing.T) {
		query := testItem("q", models.ItemStatusLost)

		candidates := []models.Item{
			itemAt("a", base),
			itemAt("b", base.Add(365 * 24 * time.Hour)),
		}

		out := filterTemporal(query, candidates, slack)
		assert.Len(t, out, 2)
	})

	t.Run("InvertedQueryWindowTreatedAsAmbiguous", func(t *testing.T) {
		query := testItem("q", models.ItemStatusLost)
		query.WindowStart = timePtr(base.Add(48 * time.Hour))
		query.WindowEnd = timePtr(base)

		assert.True(t, windowInvalid(query))

		out := filterTemporal(query, []models.Item{itemAt("a", base.Add(1000 * time.Hour))}, slack)
		assert.Len(t, out, 1)
	})
}

func TestFilterCategory(t *testing.T) {
	withCat := func(id, cat string) models.Item {
		i := testItem(id, models.ItemStatusFound)
		i.Category = cat
		return *i
	}

	t.Run("HardGateOnMismatch", func(t *testing.T) {
		query := testItem("q", models.ItemStatusLost)
		query.Category = "electronics"

		out := filterCategory(query, []models.Item{
			withCat("keep", "electronics"),
			withCat("drop", "bags"),
			withCat("keep-case", "Electronics"),
		})

		assert.Len(t, out, 2)
		assert.Equal(t, "keep", out[0].ID)
		assert.Equal(t, "keep-case", out[1].ID)
	})

	t.Run("CandidateWithoutCategoryRetained", func(t *testing.T) {
		query := testItem("q", models.ItemStatusLost)
		query.Category = "electronics"

		out := filterCategory(query, []models.Item{withCat("uncategorized", "")})
		assert.Len(t, out, 1)
	})

	t.Run("QueryWithoutCategoryPassesAll", func(t *testing.T) {
		query := testItem("q", models.ItemStatusLost)

		out := filterCategory(query, []models.Item{
			withCat("a", "bags"),
			withCat("b", "electronics"),
		})
		assert.Len(t, out, 2)
	})
}

func TestPeakDecay(t *testing.T) {
	d := PeakDecay{PeakHours: 24, HalfLifeHours: 168, Floor: 0.1}

	t.Run("FullScoreInsidePeak", func(t *testing.T) {
		assert.Equal(t, 1.0, d.Score(0))
		assert.Equal(t, 1.0, d.Score(24))
	})

	t.Run("HalfScoreAtHalfLifePastPeak", func(t *testing.T) {
		assert.InDelta(t, 0.5, d.Score(24+168), 1e-9)
	})

	t.Run("FlooredFarOut", func(t *testing.T) {
		assert.Equal(t, 0.1, d.Score(10000))
	})

	t.Run("NegativeDeltaMirrors", func(t *testing.T) {
		assert.Equal(t, d.Score(30), d.Score(-30))
	})

	t.Run("ZeroHalfLifeDropsToFloor", func(t *testing.T) {
		flat := PeakDecay{PeakHours: 24, HalfLifeHours: 0, Floor: 0.2}
		assert.Equal(t, 0.2, flat.Score(25))
	})
}
