package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONB(t *testing.T) {
	t.Run("ScanBytes", func(t *testing.T) {
		var col JSONB[map[string]float64]
		require.NoError(t, col.Scan([]byte(`{"category":1,"distance":0.5}`)))
		assert.Equal(t, map[string]float64{"category": 1, "distance": 0.5}, col.GetValue())
	})

	t.Run("ScanString", func(t *testing.T) {
		var col JSONB[[]float64]
		require.NoError(t, col.Scan(`[0.1,0.2]`))
		assert.Equal(t, []float64{0.1, 0.2}, col.GetValue())
	})

	t.Run("ScanUnsupportedType", func(t *testing.T) {
		var col JSONB[map[string]float64]
		assert.Error(t, col.Scan(42))
	})

	t.Run("ValueMarshals", func(t *testing.T) {
		col := JSONB[map[string]float64]{Data: map[string]float64{"text": 0.9}}
		v, err := col.Value()
		require.NoError(t, err)
		assert.JSONEq(t, `{"text":0.9}`, string(v.([]byte)))
	})

	t.Run("ValueOfZeroData", func(t *testing.T) {
		var col JSONB[map[string]float64]
		v, err := col.Value()
		require.NoError(t, err)
		assert.Equal(t, "null", string(v.([]byte)))
	})
}
