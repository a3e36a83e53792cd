// Package normalizers provides attribute normalization for ingested item
// snapshots, so that "Blue!" and " blue" compare equal during scoring.
package normalizers

import (
	"strings"
	"unicode"

	"github.com/reuniteio/reunite/pkg/fuzzy"
	"github.com/reuniteio/reunite/pkg/models"
)

// Normalizer is a function that normalizes a string value
type Normalizer func(string) string

// registry holds all registered normalizers
var registry = make(map[string]Normalizer)

func init() {
	// Register built-in normalizers
	Register("lowercase", Lowercase)
	Register("trim", Trim)
	Register("collapse_whitespace", CollapseWhitespace)
	Register("remove_punctuation", RemovePunctuation)
	Register("alphanumeric", Alphanumeric)
	Register("nbrand", NormalizeBrand)
	Register("nmodel", NormalizeModel)
	Register("ncolor", NormalizeColor)
}

// Register adds a normalizer to the registry
func Register(name string, fn Normalizer) {
	registry[name] = fn
}

// Get retrieves a normalizer by name
func Get(name string) (Normalizer, bool) {
	fn, ok := registry[name]
	return fn, ok
}

// Apply applies a named normalizer to a value
func Apply(value, normalizer string) string {
	fn, ok := registry[normalizer]
	if !ok {
		return value
	}
	return fn(value)
}

// ApplyChain applies multiple normalizers in sequence
func ApplyChain(value string, normalizers ...string) string {
	result := value
	for _, name := range normalizers {
		result = Apply(result, name)
	}
	return result
}

// NormalizeItem canonicalizes the comparable attributes of a snapshot in
// place. Title and description are left as reported; the fuzzy matcher does
// its own normalization on those.
func NormalizeItem(item *models.Item) {
	item.Category = ApplyChain(item.Category, "trim", "lowercase")
	normalizePtr(&item.Subcategory, "trim", "lowercase")
	normalizePtr(&item.Brand, "nbrand")
	normalizePtr(&item.Model, "nmodel")
	normalizePtr(&item.Color, "ncolor")
	item.Title = ApplyChain(item.Title, "trim", "collapse_whitespace")
}

// normalizePtr applies a chain to an optional attribute, nilling it out when
// normalization leaves nothing behind.
func normalizePtr(s **string, normalizers ...string) {
	if *s == nil {
		return
	}
	v := ApplyChain(**s, normalizers...)
	if v == "" {
		*s = nil
		return
	}
	*s = &v
}

// Built-in normalizers

// Lowercase converts string to lowercase
func Lowercase(s string) string {
	return strings.ToLower(s)
}

// Trim removes leading and trailing whitespace
func Trim(s string) string {
	return strings.TrimSpace(s)
}

// CollapseWhitespace squeezes runs of whitespace into single spaces
func CollapseWhitespace(s string) string {
	var result strings.Builder
	prevSpace := false
	for _, r := range strings.TrimSpace(s) {
		if unicode.IsSpace(r) {
			if !prevSpace {
				result.WriteRune(' ')
				prevSpace = true
			}
			continue
		}
		result.WriteRune(r)
		prevSpace = false
	}
	return result.String()
}

// RemovePunctuation removes all punctuation characters
func RemovePunctuation(s string) string {
	var result strings.Builder
	for _, r := range s {
		if !unicode.IsPunct(r) {
			result.WriteRune(r)
		}
	}
	return result.String()
}

// Alphanumeric keeps only alphanumeric characters
func Alphanumeric(s string) string {
	var result strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			result.WriteRune(r)
		}
	}
	return result.String()
}

// NormalizeBrand canonicalizes a brand name: lowercase, punctuation
// stripped, whitespace collapsed ("Sony-Ericsson " -> "sonyericsson").
func NormalizeBrand(s string) string {
	return CollapseWhitespace(RemovePunctuation(Lowercase(s)))
}

// NormalizeModel canonicalizes a model identifier to its alphanumeric core
// ("iPhone 13 Pro" -> "iphone13pro").
func NormalizeModel(s string) string {
	return Alphanumeric(Lowercase(s))
}

// NormalizeColor maps a reported color to its base family when one is known
// ("navy" -> "blue"), otherwise lowercases and trims.
func NormalizeColor(s string) string {
	v := strings.ToLower(strings.TrimSpace(s))
	if base, ok := fuzzy.ColorFamily(v); ok {
		return base
	}
	return v
}
