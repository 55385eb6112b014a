package products

import (
	"context"

	"github.com/bestielabs/bestie-platform/pkg/logging"
)

// Constraints narrows a product search.
type Constraints struct {
	PricePreference string
	TargetCount     int
}

// Searcher is the external product-search collaborator.
type Searcher interface {
	Search(ctx context.Context, query string, c Constraints) ([]Candidate, error)
}

// Builder wraps a Searcher and guarantees the candidate invariants: usable
// URLs only, deduplicated by identifier, Amazon-first ordering, capped count.
type Builder struct {
	searcher    Searcher
	preferAmzn  bool
	maxResults  int
	logger      *logging.Logger
}

// NewBuilder constructs a candidate builder around the search collaborator.
func NewBuilder(searcher Searcher, maxResults int, preferAmazon bool, logger *logging.Logger) *Builder {
	if searcher == nil {
		panic("products: searcher cannot be nil")
	}
	if maxResults <= 0 {
		maxResults = 3
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Builder{
		searcher:   searcher,
		preferAmzn: preferAmazon,
		maxResults: maxResults,
		logger:     logger,
	}
}

// Build runs the search and normalizes results. Search failure and an empty
// result set both come back as an empty slice: downstream treats "no
// candidates" as "no shopping branch", never as an error.
func (b *Builder) Build(ctx context.Context, query string, c Constraints) []Candidate {
	if b == nil {
		return nil
	}
	raw, err := b.searcher.Search(ctx, query, c)
	if err != nil {
		b.logger.Warn("product search failed, continuing without candidates", "error", err, "query", query)
		return nil
	}

	out := Dedupe(Normalize(raw))
	if b.preferAmzn {
		out = PreferAmazonFirst(out)
	}
	if len(out) > b.maxResults {
		out = out[:b.maxResults]
	}
	return out
}
