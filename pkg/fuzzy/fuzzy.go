// Package fuzzy implements lexical similarity for item titles and
// descriptions: normalization, abbreviation expansion, stopword removal,
// light stemming, and a blended similarity score over whole-string,
// token-sorted, partial, and keyword-overlap comparisons.
package fuzzy

import (
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Matcher computes blended lexical similarity between two texts.
type Matcher struct {
	// KeywordThreshold is the per-keyword similarity above which a keyword
	// pair counts as matched in the overlap component.
	KeywordThreshold float64
	// ColorBonus is added once when both texts mention colors of the same
	// base family.
	ColorBonus float64
}

// NewMatcher returns a Matcher with default thresholds.
func NewMatcher() *Matcher {
	return &Matcher{
		KeywordThreshold: 0.8,
		ColorBonus:       0.05,
	}
}

// blend weights for the similarity components
const (
	wholeWeight     = 0.25
	tokenSortWeight = 0.25
	partialWeight   = 0.20
	keywordWeight   = 0.30
)

// Similarity returns a blended score in [0,1] for two raw texts. Empty or
// all-stopword inputs score 0.
func (m *Matcher) Similarity(a, b string) float64 {
	na, nb := Normalize(a), Normalize(b)
	if na == "" || nb == "" {
		return 0
	}

	ta, tb := tokenize(na), tokenize(nb)

	score := wholeWeight*Ratio(na, nb) +
		tokenSortWeight*tokenSortRatio(ta, tb) +
		partialWeight*partialRatio(na, nb) +
		keywordWeight*m.keywordOverlap(ta, tb)

	if m.colorAgreement(ta, tb) {
		score += m.ColorBonus
	}

	if score > 1 {
		return 1
	}
	return score
}

var diacriticStripper = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize lowercases, strips diacritics, and collapses punctuation to
// single spaces. "Teléfono móvil!" becomes "telefono movil".
func Normalize(s string) string {
	stripped, _, err := transform.String(diacriticStripper, s)
	if err == nil {
		s = stripped
	}

	var b strings.Builder
	b.Grow(len(s))
	lastSpace := true
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			lastSpace = false
			continue
		}
		if !lastSpace {
			b.WriteByte(' ')
			lastSpace = true
		}
	}
	return strings.TrimSpace(b.String())
}

// Tokens returns the normalized, abbreviation-expanded, stopword-free,
// stemmed tokens of a raw text.
func Tokens(s string) []string {
	return tokenize(Normalize(s))
}

// tokenize expects already-normalized input.
func tokenize(normalized string) []string {
	if normalized == "" {
		return nil
	}
	fields := strings.Fields(normalized)
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if expanded, ok := abbreviations[f]; ok {
			f = expanded
		}
		if _, drop := stopwords[f]; drop {
			continue
		}
		tokens = append(tokens, stem(f))
	}
	return tokens
}

// stem strips common English suffixes. Deliberately shallow: it only needs
// to align singular/plural and tense variants of item words.
func stem(tok string) string {
	switch {
	case len(tok) > 5 && strings.HasSuffix(tok, "ing"):
		return tok[:len(tok)-3]
	case len(tok) > 4 && strings.HasSuffix(tok, "ies"):
		return tok[:len(tok)-3] + "y"
	case len(tok) > 4 && sibilantPlural(tok):
		return tok[:len(tok)-2]
	case len(tok) > 4 && strings.HasSuffix(tok, "ed"):
		return tok[:len(tok)-2]
	case len(tok) > 3 && strings.HasSuffix(tok, "s") && !strings.HasSuffix(tok, "ss"):
		return tok[:len(tok)-1]
	default:
		return tok
	}
}

// sibilantPlural matches "-es" plurals after s/x/z/ch/sh (boxes, glasses,
// watches) where stripping only the "s" would leave a stray "e".
func sibilantPlural(tok string) bool {
	for _, suffix := range []string{"sses", "xes", "zes", "ches", "shes"} {
		if strings.HasSuffix(tok, suffix) {
			return true
		}
	}
	return false
}

// Levenshtein returns the edit distance between two strings, by rune.
func Levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := 0; j <= len(rb); j++ {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min3(curr[j-1]+1, prev[j]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}

	return prev[len(rb)]
}

// Ratio returns 1 - editDistance/maxLen in [0,1]. Two empty strings are
// identical; one empty string matches nothing.
func Ratio(a, b string) float64 {
	if a == b {
		return 1
	}
	la, lb := len([]rune(a)), len([]rune(b))
	longest := la
	if lb > longest {
		longest = lb
	}
	if longest == 0 {
		return 1
	}
	return 1 - float64(Levenshtein(a, b))/float64(longest)
}

func tokenSortRatio(ta, tb []string) float64 {
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}
	sa := append([]string(nil), ta...)
	sb := append([]string(nil), tb...)
	sort.Strings(sa)
	sort.Strings(sb)
	return Ratio(strings.Join(sa, " "), strings.Join(sb, " "))
}

// partialRatio slides the shorter string across the longer and returns the
// best window ratio, so "phone" scores high against "black phone in case".
func partialRatio(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	if len(ra) > len(rb) {
		ra, rb = rb, ra
	}
	if len(ra) == 0 {
		return 0
	}
	if len(ra) == len(rb) {
		return Ratio(string(ra), string(rb))
	}

	best := 0.0
	for start := 0; start+len(ra) <= len(rb); start++ {
		r := Ratio(string(ra), string(rb[start:start+len(ra)]))
		if r > best {
			best = r
		}
		if best == 1 {
			break
		}
	}
	return best
}

// keywordOverlap is the Dice coefficient over keyword sets, where a keyword
// pair counts as matched only when its ratio clears the threshold.
func (m *Matcher) keywordOverlap(ta, tb []string) float64 {
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}

	used := make([]bool, len(tb))
	matched := 0
	for _, qt := range ta {
		for j, ct := range tb {
			if used[j] {
				continue
			}
			if Ratio(qt, ct) >= m.KeywordThreshold {
				used[j] = true
				matched++
				break
			}
		}
	}

	return float64(2*matched) / float64(len(ta)+len(tb))
}

// colorAgreement reports whether both token lists mention a color and the
// mentioned colors share a base family.
func (m *Matcher) colorAgreement(ta, tb []string) bool {
	for _, a := range ta {
		fa, ok := colorFamilies[a]
		if !ok {
			continue
		}
		for _, b := range tb {
			if fb, ok := colorFamilies[b]; ok && fa == fb {
				return true
			}
		}
	}
	return false
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}
