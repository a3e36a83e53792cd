package matching

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reuniteio/reunite/pkg/geo"
	"github.com/reuniteio/reunite/pkg/models"
)

func TestRetrieve(t *testing.T) {
	ctx := context.Background()

	t.Run("CellBlockingIncludesNeighbors", func(t *testing.T) {
		lat, lon := 40.7128, -74.0060
		cell, err := geo.CellKey(lat, lon, 5)
		require.NoError(t, err)

		query := lostItem("q", cell)

		neighbors, err := geo.Neighbors(cell)
		require.NoError(t, err)
		require.Greater(t, len(neighbors), 1)
		adjacent := neighbors[0]
		if adjacent == cell {
			adjacent = neighbors[1]
		}

		inCell := foundItem("in-cell", cell, 1)
		inNeighbor := foundItem("in-neighbor", adjacent, 1)
		elsewhere := foundItem("elsewhere", "zzzzz", 1)

		svc := newTestService(t, DefaultConfig(), newFakeItemStore(query, inCell, inNeighbor, elsewhere), newFakeMatchStore())
		candidates, err := svc.retrieve(ctx, query)
		require.NoError(t, err)

		ids := make(map[string]bool, len(candidates))
		for _, c := range candidates {
			ids[c.ID] = true
		}
		assert.True(t, ids["in-cell"])
		assert.True(t, ids["in-neighbor"])
		assert.False(t, ids["elsewhere"])
	})

	t.Run("CellDerivedFromCoordinates", func(t *testing.T) {
		lat, lon := 40.7128, -74.0060
		cell, err := geo.CellKey(lat, lon, 5)
		require.NoError(t, err)

		query := lostItem("q", "")
		query.GeoCell = nil
		query.Latitude = &lat
		query.Longitude = &lon

		cand := foundItem("c", cell, 1)

		svc := newTestService(t, DefaultConfig(), newFakeItemStore(query, cand), newFakeMatchStore())
		candidates, err := svc.retrieve(ctx, query)
		require.NoError(t, err)
		require.Len(t, candidates, 1)
		assert.Equal(t, "c", candidates[0].ID)
	})

	t.Run("BadCellKeyFallsBackToBoundingBox", func(t *testing.T) {
		lat, lon := 40.7128, -74.0060
		query := lostItem("q", "not!a!cell")
		query.Latitude = &lat
		query.Longitude = &lon

		nearLat, nearLon := 40.72, -74.0
		cand := foundItem("near", "", 1)
		cand.GeoCell = nil
		cand.Latitude = &nearLat
		cand.Longitude = &nearLon

		svc := newTestService(t, DefaultConfig(), newFakeItemStore(query, cand), newFakeMatchStore())
		candidates, err := svc.retrieve(ctx, query)
		require.NoError(t, err)
		require.Len(t, candidates, 1)
		assert.Equal(t, "near", candidates[0].ID)
	})

	t.Run("PreciseDistanceFilterDropsBeyondRadius", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.MaxRadiusKm = 10

		lat, lon := 40.7128, -74.0060
		query := lostItem("q", "")
		query.GeoCell = nil
		query.Latitude = &lat
		query.Longitude = &lon

		farLat, farLon := 41.5, -74.0060 // well beyond 10km
		far := foundItem("far", "", 1)
		far.GeoCell = nil
		far.Latitude = &farLat
		far.Longitude = &farLon

		noCoords := foundItem("no-coords", "", 1)
		noCoords.GeoCell = nil

		svc := newTestService(t, cfg, newFakeItemStore(query, far, noCoords), newFakeMatchStore())
		candidates := svc.preciseDistanceFilter(query, []models.Item{*far, *noCoords})

		require.Len(t, candidates, 1)
		assert.Equal(t, "no-coords", candidates[0].ID)
	})

	t.Run("RecencyFallbackCapped", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.RecencyFallbackLimit = 3

		query := lostItem("q", "")
		query.GeoCell = nil

		store := newFakeItemStore(query)
		for _, id := range []string{"a", "b", "c", "d", "e"} {
			f := foundItem(id, "", 1)
			f.GeoCell = nil
			store.items[id] = f
		}

		svc := newTestService(t, cfg, store, newFakeMatchStore())
		candidates, err := svc.retrieve(ctx, query)
		require.NoError(t, err)
		assert.Len(t, candidates, 3)
	})
}
