package fingerprint

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSnapshot(t *testing.T) {
	t.Run("KeyOrderDoesNotMatter", func(t *testing.T) {
		a := Snapshot(map[string]any{"title": "black wallet", "category": "accessories"}, nil)
		b := Snapshot(map[string]any{"category": "accessories", "title": "black wallet"}, nil)
		assert.Equal(t, a, b)
	})

	t.Run("ValueChangeChangesHash", func(t *testing.T) {
		a := Snapshot(map[string]any{"title": "black wallet"}, nil)
		b := Snapshot(map[string]any{"title": "brown wallet"}, nil)
		assert.NotEqual(t, a, b)
	})

	t.Run("ExcludedFieldsIgnored", func(t *testing.T) {
		exclude := map[string]bool{"updated_at": true}
		a := Snapshot(map[string]any{"title": "keys", "updated_at": "2024-06-01"}, exclude)
		b := Snapshot(map[string]any{"title": "keys", "updated_at": "2024-06-02"}, exclude)
		assert.Equal(t, a, b)
	})

	t.Run("ExclusionCoversSubtree", func(t *testing.T) {
		exclude := map[string]bool{"meta": true}
		a := Snapshot(map[string]any{"title": "keys", "meta": map[string]any{"seen": float64(1)}}, exclude)
		b := Snapshot(map[string]any{"title": "keys", "meta": map[string]any{"seen": float64(2)}}, exclude)
		assert.Equal(t, a, b)
	})

	t.Run("NestedArraysHashed", func(t *testing.T) {
		a := Snapshot(map[string]any{"hashes": []any{"abc", "def"}}, nil)
		b := Snapshot(map[string]any{"hashes": []any{"def", "abc"}}, nil)
		assert.NotEqual(t, a, b)
	})
}
