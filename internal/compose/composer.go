package compose

import (
	"context"
	"fmt"
	"strings"

	"github.com/bestielabs/bestie-platform/internal/products"
	"github.com/bestielabs/bestie-platform/pkg/logging"
)

// maxCandidates bounds how many products are handed to the generator. More
// than three reads as a catalog dump over SMS.
const maxCandidates = 3

// ApologyLine is the static fallback when generation fails and no candidate
// can be formatted directly.
const ApologyLine = "Ugh, my brain glitched for a sec. Say that again, babe?"

const personaPrompt = `You are Bestie, a warm, funny, extremely-online shopping sidekick texting a close friend. Keep replies short enough for SMS, skip corporate tone, and never use bullet-point essays.`

const urlContract = `When products are provided, mention each one with its URL exactly as given. Never invent, shorten, or alter a URL. If no products are provided, do not fabricate links.`

// Composer invokes the generator with the right payload per branch and
// downgrades failures to a deterministic fallback.
type Composer struct {
	gen    Generator
	logger *logging.Logger
}

// NewComposer wraps the generator collaborator.
func NewComposer(gen Generator, logger *logging.Logger) *Composer {
	if gen == nil {
		panic("compose: generator cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Composer{gen: gen, logger: logger}
}

// Compose produces exactly one reply string. Generator failure is recoverable
// here: the first candidate formatted directly, or the static apology.
func (c *Composer) Compose(ctx context.Context, req Request) string {
	if len(req.Candidates) > maxCandidates {
		req.Candidates = req.Candidates[:maxCandidates]
	}

	system := []string{personaPrompt, urlContract}
	if name := strings.TrimSpace(req.BotName); name != "" {
		system = append(system, fmt.Sprintf("The user calls you %s; answer to that name.", name))
	}
	if len(req.Candidates) > 0 {
		system = append(system, candidateBlock(req.Candidates))
	}
	req.System = append(system, req.System...)

	text, err := c.gen.Generate(ctx, req)
	if err == nil {
		text = strings.TrimSpace(text)
	}
	if err != nil || text == "" {
		c.logger.Warn("generation failed, using fallback reply", "error", err, "user_id", req.UserID)
		return Fallback(req.Candidates)
	}
	return text
}

// Fallback formats the first candidate directly, or apologizes.
func Fallback(candidates []products.Candidate) string {
	if len(candidates) > 0 {
		return fmt.Sprintf("%s: %s", candidates[0].Title, candidates[0].URL)
	}
	return ApologyLine
}

func candidateBlock(candidates []products.Candidate) string {
	var b strings.Builder
	b.WriteString("Products to recommend (use these URLs verbatim):\n")
	for i, cand := range candidates {
		fmt.Fprintf(&b, "%d. %s - %s", i+1, cand.Title, cand.URL)
		if cand.Review != "" {
			fmt.Fprintf(&b, " (%s)", cand.Review)
		}
		b.WriteString("\n")
	}
	return b.String()
}
