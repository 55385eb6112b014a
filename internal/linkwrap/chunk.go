package linkwrap

import (
	"fmt"
	"strings"
	"unicode"
)

// DefaultChunkBudget is the per-SMS character budget for a chunk body.
const DefaultChunkBudget = 450

// Chunk splits text into SMS-sized pieces. Splits happen at the last
// whitespace boundary inside the budget so URLs are never cut, and the
// boundary whitespace stays with the leading chunk: concatenating the
// returned bodies reproduces the input byte for byte. When more than one
// chunk results, each is prefixed with "[i/N] ".
func Chunk(text string, budget int) []string {
	if budget <= 0 {
		budget = DefaultChunkBudget
	}
	if len(text) <= budget {
		if strings.TrimSpace(text) == "" {
			return nil
		}
		return []string{text}
	}

	var bodies []string
	rest := text
	for len(rest) > budget {
		cut := lastWhitespace(rest, budget-1)
		if cut <= 0 {
			// One unbroken run longer than the budget; hard cut.
			cut = budget - 1
		}
		bodies = append(bodies, rest[:cut+1])
		rest = rest[cut+1:]
	}
	if len(rest) > 0 {
		bodies = append(bodies, rest)
	}

	if len(bodies) <= 1 {
		return bodies
	}
	out := make([]string, len(bodies))
	for i, body := range bodies {
		out[i] = fmt.Sprintf("[%d/%d] %s", i+1, len(bodies), body)
	}
	return out
}

// lastWhitespace returns the index of the last whitespace byte within
// s[:limit+1], or -1 when none exists.
func lastWhitespace(s string, limit int) int {
	if limit >= len(s) {
		limit = len(s) - 1
	}
	for i := limit; i >= 0; i-- {
		if unicode.IsSpace(rune(s[i])) {
			return i
		}
	}
	return -1
}

// StripChunkPrefix removes a "[i/N] " marker, returning the body unchanged
// when no marker is present.
func StripChunkPrefix(chunk string) string {
	if !strings.HasPrefix(chunk, "[") {
		return chunk
	}
	end := strings.Index(chunk, "] ")
	if end < 0 {
		return chunk
	}
	marker := chunk[1:end]
	parts := strings.SplitN(marker, "/", 2)
	if len(parts) != 2 {
		return chunk
	}
	for _, p := range parts {
		if p == "" {
			return chunk
		}
		for _, r := range p {
			if r < '0' || r > '9' {
				return chunk
			}
		}
	}
	return chunk[end+2:]
}
