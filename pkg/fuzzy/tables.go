package fuzzy

// abbreviations canonicalizes common shorthand seen in item reports. Applied
// per token after normalization, before stemming.
var abbreviations = map[string]string{
	"ph":      "phone",
	"tel":     "phone",
	"cell":    "phone",
	"mob":     "phone",
	"mobile":  "phone",
	"iph":     "iphone",
	"tv":      "television",
	"nb":      "notebook",
	"lap":     "laptop",
	"pc":      "computer",
	"comp":    "computer",
	"bkpk":    "backpack",
	"bp":      "backpack",
	"hp":      "headphones",
	"chrgr":   "charger",
	"doc":     "document",
	"docs":    "document",
	"specs":   "glasses",
	"sunnies": "sunglasses",
	"billfold": "wallet",
	"umb":      "umbrella",
}

// stopwords are dropped during tokenization. Includes report boilerplate
// ("lost my...", "found a...") alongside ordinary function words.
var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "the": {}, "and": {}, "or": {}, "of": {}, "in": {},
	"on": {}, "at": {}, "with": {}, "for": {}, "to": {}, "from": {}, "by": {},
	"is": {}, "was": {}, "are": {}, "were": {}, "be": {}, "been": {},
	"i": {}, "my": {}, "it": {}, "its": {}, "this": {}, "that": {},
	"near": {}, "around": {}, "somewhere": {},
	"lost": {}, "found": {}, "missing": {}, "item": {}, "please": {}, "help": {},
}

// colorFamilies maps color words to a base family so "charcoal" and "jet
// black" still agree on black.
var colorFamilies = map[string]string{
	"black": "black", "charcoal": "black", "jet": "black", "onyx": "black",
	"white": "white", "ivory": "white", "cream": "white", "offwhite": "white",
	"gray": "gray", "grey": "gray", "silver": "gray", "slate": "gray", "graphite": "gray",
	"red": "red", "maroon": "red", "crimson": "red", "scarlet": "red", "burgundy": "red",
	"orange": "orange", "tangerine": "orange", "rust": "orange",
	"yellow": "yellow", "gold": "yellow", "golden": "yellow", "amber": "yellow", "mustard": "yellow",
	"green": "green", "olive": "green", "lime": "green", "emerald": "green", "forest": "green",
	"blue": "blue", "navy": "blue", "azure": "blue", "cobalt": "blue", "teal": "blue", "turquoise": "blue", "cyan": "blue",
	"purple": "purple", "violet": "purple", "lavender": "purple", "plum": "purple",
	"pink": "pink", "rose": "pink", "fuchsia": "pink", "magenta": "pink", "salmon": "pink",
	"brown": "brown", "tan": "brown", "beige": "brown", "khaki": "brown", "chocolate": "brown", "bronze": "brown",
}

// ColorFamily returns the base family for a color word, normalized first.
func ColorFamily(word string) (string, bool) {
	family, ok := colorFamilies[Normalize(word)]
	return family, ok
}

// SameColorFamily reports whether two color words resolve to the same base
// family. Unknown colors never match.
func SameColorFamily(a, b string) bool {
	fa, ok := ColorFamily(a)
	if !ok {
		return false
	}
	fb, ok := ColorFamily(b)
	if !ok {
		return false
	}
	return fa == fb
}
