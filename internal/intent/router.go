// Package intent classifies an inbound message into the pipeline branch that
// will produce its reply. Routing is a first-match-wins decision list over
// pure predicates; the router holds no mutable state.
package intent

import (
	"math/rand"
	"regexp"
	"strings"
)

// Kind tags the routing outcome.
type Kind string

const (
	KindOnboarding Kind = "onboarding"
	KindFAQ        Kind = "faq"
	KindRename     Kind = "rename"
	KindMedia      Kind = "media"
	KindProduct    Kind = "product"
	KindChat       Kind = "chat"
)

// Decision is the tagged routing result. Canned kinds (onboarding, faq,
// rename) carry the final reply body and bypass the output pipeline.
type Decision struct {
	Kind       Kind
	Reply      string
	NewBotName string
	MediaURL   string
	MediaType  string
	Query      string
}

// Router evaluates the ordered branch list.
type Router struct {
	pick    func(n int) int
	quizURL string
}

// RouterOption customizes routing.
type RouterOption func(*Router)

// WithQuizURL sets the style-quiz link carried by the quiz FAQ replies.
func WithQuizURL(url string) RouterOption {
	return func(r *Router) { r.quizURL = url }
}

// NewRouter builds a router using the default random picker for canned lines.
func NewRouter(opts ...RouterOption) *Router {
	r := &Router{pick: rand.Intn}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func newRouterWithPick(pick func(n int) int) *Router {
	return &Router{pick: pick}
}

var onboardingLines = []string{
	"Hey babe, I'm your Bestie! Text me what you're shopping for and I'll find the good stuff. What are we hunting today?",
	"Omg hi! I'm Bestie, your shopping sidekick. Tell me what you need - skincare, hair, gifts, anything - and I'll send picks with links.",
	"Hey! Bestie here. I live in your texts now. Ask me for product recs, dupes, or just vent about your skin. What's up first?",
	"Hi hi! I'm Bestie. Think of me as your group chat's most online friend. What can I find for you today?",
}

// OnboardingLines exposes the fixed first-contact lines for tests and the
// re-engagement job.
func OnboardingLines() []string {
	out := make([]string, len(onboardingLines))
	copy(out, onboardingLines)
	return out
}

var renameConfirmations = []string{
	"Done! %s it is. Love it.",
	"Ooh, %s. Very chic. That's me now.",
	"%s at your service, babe.",
	"Okay okay, %s is my name now. Obsessed.",
}

// Route classifies one inbound message. priorMessages is the count of
// messages already stored for the conversation; zero means first contact.
func (r *Router) Route(text string, priorMessages int, mediaURLs []string) Decision {
	if priorMessages == 0 {
		return Decision{Kind: KindOnboarding, Reply: onboardingLines[r.pick(len(onboardingLines))]}
	}

	if reply, ok := matchFAQ(text, r.quizURL); ok {
		return Decision{Kind: KindFAQ, Reply: reply}
	}

	// An unparseable rename never surfaces; it just falls through to the
	// next branch.
	if name, ok := matchRename(text); ok {
		confirmation := renameConfirmations[r.pick(len(renameConfirmations))]
		return Decision{
			Kind:       KindRename,
			NewBotName: name,
			Reply:      strings.Replace(confirmation, "%s", name, 1),
		}
	}

	if url, mediaType, ok := detectMedia(text, mediaURLs); ok {
		return Decision{Kind: KindMedia, MediaURL: url, MediaType: mediaType}
	}

	if query, ok := ExtractProductIntent(text); ok {
		return Decision{Kind: KindProduct, Query: query}
	}

	return Decision{Kind: KindChat}
}

var renamePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\byour name is\s+(\w{2,32})\b`),
	regexp.MustCompile(`(?i)\bi['’]?ll call you\s+(\w{2,32})\b`),
	regexp.MustCompile(`(?i)\bfrom now on,?\s+you(?:['’]?re| are)\s+(\w{2,32})\b`),
	regexp.MustCompile(`(?i)\bcall you\s+(\w{2,32})\s+from now on\b`),
}

func matchRename(text string) (string, bool) {
	for _, re := range renamePatterns {
		if m := re.FindStringSubmatch(text); m != nil {
			return m[1], true
		}
	}
	return "", false
}

var mediaExtensions = map[string]string{
	".jpg": "image", ".jpeg": "image", ".png": "image", ".gif": "image", ".webp": "image", ".heic": "image",
	".mp3": "audio", ".m4a": "audio", ".wav": "audio", ".ogg": "audio", ".amr": "audio",
}

var urlRe = regexp.MustCompile(`https?://\S+`)

func detectMedia(text string, mediaURLs []string) (string, string, bool) {
	candidates := append([]string{}, mediaURLs...)
	candidates = append(candidates, urlRe.FindAllString(text, -1)...)

	for _, raw := range candidates {
		trimmed := strings.TrimRight(raw, ".,;:!?")
		lower := strings.ToLower(trimmed)
		if i := strings.IndexAny(lower, "?#"); i >= 0 {
			lower = lower[:i]
		}
		for ext, mediaType := range mediaExtensions {
			if strings.HasSuffix(lower, ext) {
				return trimmed, mediaType, true
			}
		}
	}
	return "", "", false
}
