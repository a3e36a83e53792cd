package normalizers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reuniteio/reunite/pkg/models"
)

func TestBuiltinNormalizers(t *testing.T) {
	tests := []struct {
		normalizer string
		input      string
		expected   string
	}{
		{"lowercase", "HeLLo", "hello"},
		{"trim", "  hello  ", "hello"},
		{"collapse_whitespace", "  a \t b\n\nc ", "a b c"},
		{"remove_punctuation", "o'brien-smith!", "obriensmith"},
		{"alphanumeric", "iPhone 13 Pro!", "iPhone13Pro"},
		{"nbrand", "Sony-Ericsson ", "sonyericsson"},
		{"nmodel", "iPhone 13 Pro", "iphone13pro"},
		{"ncolor", " Navy ", "blue"},
		{"ncolor", "Chartreuse", "chartreuse"},
	}

	for _, tt := range tests {
		t.Run(tt.normalizer+"/"+tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, Apply(tt.input, tt.normalizer))
		})
	}
}

func TestApplyChain(t *testing.T) {
	assert.Equal(t, "hello world", ApplyChain("  Hello   World!  ", "lowercase", "remove_punctuation", "collapse_whitespace"))
}

func TestApplyUnknownNormalizerIsIdentity(t *testing.T) {
	assert.Equal(t, "AsIs", Apply("AsIs", "does-not-exist"))
}

func TestNormalizeItem(t *testing.T) {
	strPtr := func(s string) *string { return &s }

	t.Run("CanonicalizesComparableAttributes", func(t *testing.T) {
		item := &models.Item{
			Title:       "  Black   leather wallet ",
			Category:    " Accessories ",
			Subcategory: strPtr(" Wallets "),
			Brand:       strPtr("Louis-Vuitton"),
			Model:       strPtr("Zippy XL"),
			Color:       strPtr("Navy"),
		}

		NormalizeItem(item)

		assert.Equal(t, "accessories", item.Category)
		assert.Equal(t, "wallets", *item.Subcategory)
		assert.Equal(t, "louisvuitton", *item.Brand)
		assert.Equal(t, "zippyxl", *item.Model)
		assert.Equal(t, "blue", *item.Color)
		assert.Equal(t, "Black leather wallet", item.Title)
	})

	t.Run("EmptyAttributesNilledOut", func(t *testing.T) {
		item := &models.Item{
			Brand: strPtr("  !!  "),
			Color: strPtr(""),
		}

		NormalizeItem(item)

		assert.Nil(t, item.Brand)
		assert.Nil(t, item.Color)
	})

	t.Run("NilAttributesUntouched", func(t *testing.T) {
		item := &models.Item{Title: "x", Category: "y"}
		require.NotPanics(t, func() { NormalizeItem(item) })
		assert.Nil(t, item.Brand)
	})
}
