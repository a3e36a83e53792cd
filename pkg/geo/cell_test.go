package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCellKey(t *testing.T) {
	t.Run("KnownVector", func(t *testing.T) {
		key, err := CellKey(57.64911, 10.40744, 11)
		require.NoError(t, err)
		assert.Equal(t, "u4pruydqqvj", key)
	})

	t.Run("PrecisionControlsLength", func(t *testing.T) {
		for precision := 1; precision <= 12; precision++ {
			key, err := CellKey(6.9271, 79.8612, precision)
			require.NoError(t, err)
			assert.Len(t, key, precision)
		}
	})

	t.Run("CoarserPrecisionIsPrefix", func(t *testing.T) {
		full, err := CellKey(6.9271, 79.8612, 9)
		require.NoError(t, err)
		coarse, err := CellKey(6.9271, 79.8612, 5)
		require.NoError(t, err)
		assert.Equal(t, full[:5], coarse)
	})

	t.Run("Deterministic", func(t *testing.T) {
		a, err := CellKey(-33.8688, 151.2093, DefaultPrecision)
		require.NoError(t, err)
		b, err := CellKey(-33.8688, 151.2093, DefaultPrecision)
		require.NoError(t, err)
		assert.Equal(t, a, b)
	})

	t.Run("InvalidLatitude", func(t *testing.T) {
		_, err := CellKey(91, 0, 5)
		assert.ErrorIs(t, err, ErrInvalidCoordinate)
	})

	t.Run("InvalidLongitude", func(t *testing.T) {
		_, err := CellKey(0, -181, 5)
		assert.ErrorIs(t, err, ErrInvalidCoordinate)
	})

	t.Run("InvalidPrecision", func(t *testing.T) {
		_, err := CellKey(0, 0, 0)
		assert.ErrorIs(t, err, ErrInvalidCoordinate)
	})
}

func TestNeighbors(t *testing.T) {
	t.Run("NineCellBlock", func(t *testing.T) {
		key, err := CellKey(6.9271, 79.8612, 5)
		require.NoError(t, err)

		cells, err := Neighbors(key)
		require.NoError(t, err)

		assert.Len(t, cells, 9)
		assert.Contains(t, cells, key)
		for _, c := range cells {
			assert.Len(t, c, len(key))
		}
	})

	t.Run("AllUnique", func(t *testing.T) {
		cells, err := Neighbors("u4pru")
		require.NoError(t, err)

		seen := make(map[string]struct{})
		for _, c := range cells {
			_, dup := seen[c]
			assert.False(t, dup, "duplicate cell %s", c)
			seen[c] = struct{}{}
		}
	})

	t.Run("NeighborsAreAdjacent", func(t *testing.T) {
		key, err := CellKey(51.5074, -0.1278, 5)
		require.NoError(t, err)

		bounds, err := decodeBounds(key)
		require.NoError(t, err)
		centerLat := (bounds.latLo + bounds.latHi) / 2
		centerLon := (bounds.lonLo + bounds.lonHi) / 2
		cellDiagKm := DistanceKm(bounds.latLo, bounds.lonLo, bounds.latHi, bounds.lonHi)

		cells, err := Neighbors(key)
		require.NoError(t, err)
		for _, c := range cells {
			nb, err := decodeBounds(c)
			require.NoError(t, err)
			nbLat := (nb.latLo + nb.latHi) / 2
			nbLon := (nb.lonLo + nb.lonHi) / 2
			assert.LessOrEqual(t, DistanceKm(centerLat, centerLon, nbLat, nbLon), 2*cellDiagKm)
		}
	})

	t.Run("PolarCellDropsOutOfRangeNeighbors", func(t *testing.T) {
		key, err := CellKey(89.99, 0, 5)
		require.NoError(t, err)

		cells, err := Neighbors(key)
		require.NoError(t, err)
		assert.NotEmpty(t, cells)
		assert.LessOrEqual(t, len(cells), 9)
		assert.Contains(t, cells, key)
	})

	t.Run("AntimeridianWraps", func(t *testing.T) {
		key, err := CellKey(0, 179.99, 5)
		require.NoError(t, err)

		cells, err := Neighbors(key)
		require.NoError(t, err)
		assert.Len(t, cells, 9)
	})

	t.Run("InvalidKey", func(t *testing.T) {
		_, err := Neighbors("abcia")
		assert.ErrorIs(t, err, ErrInvalidCoordinate)

		_, err = Neighbors("")
		assert.ErrorIs(t, err, ErrInvalidCoordinate)
	})
}

func TestDistanceKm(t *testing.T) {
	t.Run("ZeroDistance", func(t *testing.T) {
		assert.Equal(t, 0.0, DistanceKm(6.9271, 79.8612, 6.9271, 79.8612))
	})

	t.Run("OneDegreeLatitude", func(t *testing.T) {
		d := DistanceKm(0, 0, 1, 0)
		assert.InDelta(t, 111.19, d, 0.5)
	})

	t.Run("HalfKilometer", func(t *testing.T) {
		d := DistanceKm(6.9271, 79.8612, 6.9271+0.0045, 79.8612)
		assert.InDelta(t, 0.5, d, 0.01)
	})

	t.Run("Symmetric", func(t *testing.T) {
		a := DistanceKm(48.8566, 2.3522, 51.5074, -0.1278)
		b := DistanceKm(51.5074, -0.1278, 48.8566, 2.3522)
		assert.InDelta(t, a, b, 1e-9)
		assert.Greater(t, a, 300.0)
		assert.Less(t, a, 400.0)
	})
}

func TestBoundingBoxAround(t *testing.T) {
	t.Run("ContainsRadius", func(t *testing.T) {
		box, err := BoundingBoxAround(6.9271, 79.8612, 50)
		require.NoError(t, err)

		assert.False(t, box.Wraps())
		assert.InDelta(t, 6.9271-50/kmPerDegreeLat, box.MinLat, 1e-9)
		assert.InDelta(t, 6.9271+50/kmPerDegreeLat, box.MaxLat, 1e-9)
		assert.Less(t, box.MinLon, 79.8612)
		assert.Greater(t, box.MaxLon, 79.8612)
	})

	t.Run("WrapsAtAntimeridian", func(t *testing.T) {
		box, err := BoundingBoxAround(0, 179.9, 50)
		require.NoError(t, err)
		assert.True(t, box.Wraps())
	})

	t.Run("PoleCoversAllLongitudes", func(t *testing.T) {
		box, err := BoundingBoxAround(89.95, 10, 50)
		require.NoError(t, err)
		assert.Equal(t, -180.0, box.MinLon)
		assert.Equal(t, 180.0, box.MaxLon)
	})

	t.Run("InvalidCenter", func(t *testing.T) {
		_, err := BoundingBoxAround(95, 0, 10)
		assert.ErrorIs(t, err, ErrInvalidCoordinate)
	})
}
