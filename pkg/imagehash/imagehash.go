// Package imagehash compares perceptual image hashes between items. Hashes
// arrive precomputed (phash/dhash/ahash/whash, hex-encoded 64-bit); this
// package only measures Hamming similarity between them.
package imagehash

import (
	"fmt"
	"math/bits"
	"strconv"
	"strings"

	"github.com/reuniteio/reunite/pkg/models"
)

// hashBits is the assumed hash width.
const hashBits = 64

// ParseHex decodes a hex hash string into its 64-bit value. Accepts an
// optional 0x prefix.
func ParseHex(s string) (uint64, error) {
	s = strings.TrimPrefix(strings.TrimSpace(strings.ToLower(s)), "0x")
	if s == "" || len(s) > 16 {
		return 0, fmt.Errorf("invalid hash string %q", s)
	}
	v, err := strconv.ParseUint(s, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid hash string %q: %w", s, err)
	}
	return v, nil
}

// HammingDistance returns the number of differing bits between two hex
// hashes.
func HammingDistance(aHex, bHex string) (int, error) {
	a, err := ParseHex(aHex)
	if err != nil {
		return 0, err
	}
	b, err := ParseHex(bHex)
	if err != nil {
		return 0, err
	}
	return bits.OnesCount64(a ^ b), nil
}

// Similarity returns 1 - hamming/64 for two hex hashes.
func Similarity(aHex, bHex string) (float64, error) {
	d, err := HammingDistance(aHex, bHex)
	if err != nil {
		return 0, err
	}
	return 1 - float64(d)/hashBits, nil
}

// Result summarizes a cross-item hash comparison.
type Result struct {
	// Score is the best per-pair similarity; meaningful only when Compared > 0.
	Score float64
	// Compared counts media pairs that shared at least one parseable hash kind.
	Compared int
	// Malformed counts hash strings that failed to parse.
	Malformed int
}

// Compare scores two items' media hashes: for each media pair, the mean
// similarity across hash kinds present on both sides, then the maximum
// across all pairs. Malformed hashes are skipped and counted.
func Compare(a, b []models.ImageHash) Result {
	var res Result

	for _, ha := range a {
		for _, hb := range b {
			sim, kinds, malformed := pairSimilarity(ha, hb)
			res.Malformed += malformed
			if kinds == 0 {
				continue
			}
			res.Compared++
			if sim > res.Score {
				res.Score = sim
			}
		}
	}

	return res
}

// pairSimilarity returns the mean similarity over hash kinds both sides
// carry, the number of kinds compared, and the number of malformed strings.
func pairSimilarity(a, b models.ImageHash) (float64, int, int) {
	type kindPair struct{ a, b *string }
	pairs := []kindPair{
		{a.PHash, b.PHash},
		{a.DHash, b.DHash},
		{a.AHash, b.AHash},
		{a.WHash, b.WHash},
	}

	var sum float64
	var kinds, malformed int

	for _, p := range pairs {
		if p.a == nil || p.b == nil {
			continue
		}
		sim, err := Similarity(*p.a, *p.b)
		if err != nil {
			malformed++
			continue
		}
		sum += sim
		kinds++
	}

	if kinds == 0 {
		return 0, 0, malformed
	}
	return sum / float64(kinds), kinds, malformed
}
