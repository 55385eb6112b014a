package intent

import "strings"

// Lexical shopping-intent signals. Deliberately loose: a weak signal with
// real search results still beats general chat, and a false positive only
// costs one empty product search.
var productVerbs = []string{
	"recommend", "rec ", "recs", "suggest", "find me", "looking for", "link me",
	"where can i buy", "where do i buy", "where to buy", "shop for", "need a new",
	"best ", "top ", "dupe", "dupes", "alternative to", "cheaper than",
	"should i get", "should i buy", "worth it", "send me a link",
}

var productNouns = []string{
	"serum", "moisturizer", "cleanser", "sunscreen", "spf", "retinol", "toner",
	"shampoo", "conditioner", "mascara", "foundation", "concealer", "blush",
	"lip ", "lotion", "cream", "oil", "mask", "perfume", "fragrance",
	"leggings", "jeans", "sneakers", "boots", "dress", "bag", "gift",
	"blender", "air fryer", "vacuum", "pillow", "candle", "planner",
}

// ExtractProductIntent reports whether the text reads as a shopping request
// and returns the search query to use (the raw text, trimmed - the search
// gateway does its own keyword extraction).
func ExtractProductIntent(text string) (string, bool) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return "", false
	}
	lower := strings.ToLower(trimmed)

	for _, v := range productVerbs {
		if strings.Contains(lower, v) {
			return trimmed, true
		}
	}
	for _, n := range productNouns {
		if strings.Contains(lower, n) {
			return trimmed, true
		}
	}
	return "", false
}
