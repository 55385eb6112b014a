package compose

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bestielabs/bestie-platform/internal/products"
)

type stubGenerator struct {
	reply   string
	err     error
	lastReq Request
}

func (s *stubGenerator) Generate(_ context.Context, req Request) (string, error) {
	s.lastReq = req
	return s.reply, s.err
}

func TestComposeCapsCandidatesAtThree(t *testing.T) {
	gen := &stubGenerator{reply: "here you go"}
	c := NewComposer(gen, nil)

	req := Request{UserText: "recs?", Candidates: []products.Candidate{
		{Title: "a", URL: "https://example.com/a"},
		{Title: "b", URL: "https://example.com/b"},
		{Title: "c", URL: "https://example.com/c"},
		{Title: "d", URL: "https://example.com/d"},
	}}

	got := c.Compose(context.Background(), req)
	assert.Equal(t, "here you go", got)
	assert.Len(t, gen.lastReq.Candidates, 3)
}

func TestComposeSystemCarriesURLContract(t *testing.T) {
	gen := &stubGenerator{reply: "ok"}
	c := NewComposer(gen, nil)

	c.Compose(context.Background(), Request{
		UserText:   "serum?",
		BotName:    "Coco",
		Candidates: []products.Candidate{{Title: "CeraVe", URL: "https://www.amazon.com/dp/B0ABCD1234"}},
	})

	joined := ""
	for _, s := range gen.lastReq.System {
		joined += s + "\n"
	}
	assert.Contains(t, joined, "Never invent, shorten, or alter a URL")
	assert.Contains(t, joined, "https://www.amazon.com/dp/B0ABCD1234")
	assert.Contains(t, joined, "Coco")
}

func TestComposeFallbackFirstCandidate(t *testing.T) {
	gen := &stubGenerator{err: errors.New("model timeout")}
	c := NewComposer(gen, nil)

	got := c.Compose(context.Background(), Request{
		UserText: "recs?",
		Candidates: []products.Candidate{
			{Title: "CeraVe Cleanser", URL: "https://www.amazon.com/dp/B0ABCD1234"},
			{Title: "Other", URL: "https://example.com/x"},
		},
	})
	assert.Equal(t, "CeraVe Cleanser: https://www.amazon.com/dp/B0ABCD1234", got)
}

func TestComposeFallbackApologyWithoutCandidates(t *testing.T) {
	gen := &stubGenerator{err: errors.New("model timeout")}
	c := NewComposer(gen, nil)

	got := c.Compose(context.Background(), Request{UserText: "hi"})
	assert.Equal(t, ApologyLine, got)
}

func TestComposeEmptyGenerationFallsBack(t *testing.T) {
	gen := &stubGenerator{reply: "   "}
	c := NewComposer(gen, nil)

	got := c.Compose(context.Background(), Request{UserText: "hi"})
	require.Equal(t, ApologyLine, got)
}
