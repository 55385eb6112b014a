// Package products normalizes heterogeneous product-search results into the
// canonical candidate shape the composer consumes.
package products

import (
	"regexp"
	"sort"
	"strings"
)

var asinRe = regexp.MustCompile(`/(?:dp|gp/product)/([A-Z0-9]{10})`)

// Candidate is an ephemeral product recommendation. It is never persisted.
type Candidate struct {
	Title    string `json:"title"`
	URL      string `json:"url"`
	Review   string `json:"review,omitempty"`
	Merchant string `json:"merchant,omitempty"`
}

// ASIN extracts the Amazon identifier from the candidate URL, or "".
func (c Candidate) ASIN() string {
	if m := asinRe.FindStringSubmatch(c.URL); m != nil {
		return m[1]
	}
	return ""
}

// Identifier is the dedupe key: ASIN when present, else the lowercased title.
func (c Candidate) Identifier() string {
	if asin := c.ASIN(); asin != "" {
		return asin
	}
	return strings.ToLower(strings.TrimSpace(c.Title))
}

func (c Candidate) isAmazon() bool {
	return strings.Contains(strings.ToLower(c.URL), "amazon.")
}

// Normalize trims fields and drops candidates without a usable http(s) URL.
// A candidate lacking a link must never reach the composer.
func Normalize(in []Candidate) []Candidate {
	out := make([]Candidate, 0, len(in))
	for _, c := range in {
		c.Title = strings.TrimSpace(c.Title)
		c.URL = strings.TrimSpace(c.URL)
		c.Review = strings.TrimSpace(c.Review)
		c.Merchant = strings.TrimSpace(c.Merchant)
		if c.URL == "" || !strings.HasPrefix(c.URL, "http://") && !strings.HasPrefix(c.URL, "https://") {
			continue
		}
		if c.Title == "" {
			c.Title = "this one"
		}
		out = append(out, c)
	}
	return out
}

// Dedupe keeps the first candidate per identifier, preserving order.
func Dedupe(in []Candidate) []Candidate {
	seen := make(map[string]bool, len(in))
	out := make([]Candidate, 0, len(in))
	for _, c := range in {
		id := c.Identifier()
		if id != "" && seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, c)
	}
	return out
}

// PreferAmazonFirst stable-sorts Amazon links ahead of other merchants;
// relative order inside each group is unchanged.
func PreferAmazonFirst(in []Candidate) []Candidate {
	out := make([]Candidate, len(in))
	copy(out, in)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].isAmazon() && !out[j].isAmazon()
	})
	return out
}
