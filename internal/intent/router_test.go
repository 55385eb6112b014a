package intent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func firstPick(_ int) int { return 0 }

func TestRouteFirstContactIsOnboarding(t *testing.T) {
	r := newRouterWithPick(firstPick)

	// Content is irrelevant on first contact, even a pricing question.
	d := r.Route("how much is vip", 0, nil)
	assert.Equal(t, KindOnboarding, d.Kind)
	assert.Contains(t, OnboardingLines(), d.Reply, "onboarding lines go out verbatim")
}

func TestRouteFAQ(t *testing.T) {
	r := NewRouter()

	d := r.Route("hey how much is vip again?", 5, nil)
	require.Equal(t, KindFAQ, d.Kind)
	assert.Equal(t, VIPPricingReply, d.Reply)
}

func TestRouteQuizFAQCarriesLink(t *testing.T) {
	r := NewRouter(WithQuizURL("https://tally.example.com/r/bestie"))

	for _, text := range []string{"how do I take the quiz?", "send me the quiz link pls"} {
		d := r.Route(text, 4, nil)
		require.Equal(t, KindFAQ, d.Kind, "text: %s", text)
		assert.Contains(t, d.Reply, "https://tally.example.com/r/bestie",
			"a quiz reply must carry the link it promises")
	}
}

func TestRouteQuizDisabledWithoutLink(t *testing.T) {
	r := NewRouter()

	d := r.Route("how do I take the quiz?", 4, nil)
	assert.NotEqual(t, KindFAQ, d.Kind, "no configured link means no quiz promise")
}

func TestRouteRename(t *testing.T) {
	r := newRouterWithPick(firstPick)

	tests := []struct {
		text     string
		wantName string
	}{
		{"your name is Coco", "Coco"},
		{"ok i'll call you Max", "Max"},
		{"from now on you are Sparkles", "Sparkles"},
		{"From now on, you're Dot", "Dot"},
	}
	for _, tt := range tests {
		d := r.Route(tt.text, 3, nil)
		require.Equal(t, KindRename, d.Kind, "text: %s", tt.text)
		assert.Equal(t, tt.wantName, d.NewBotName)
		assert.Contains(t, d.Reply, tt.wantName)
	}
}

func TestRouteRenameTooLongFallsThrough(t *testing.T) {
	r := NewRouter()

	d := r.Route("your name is Supercalifragilisticexpialidociousness", 3, nil)
	assert.NotEqual(t, KindRename, d.Kind, "name over 32 word chars is not a rename")
}

func TestRouteMedia(t *testing.T) {
	r := NewRouter()

	d := r.Route("what do you think of this? https://cdn.example.com/pic.jpg", 2, nil)
	require.Equal(t, KindMedia, d.Kind)
	assert.Equal(t, "https://cdn.example.com/pic.jpg", d.MediaURL)
	assert.Equal(t, "image", d.MediaType)

	d = r.Route("listen", 2, []string{"https://cdn.example.com/voice.mp3?x=1"})
	require.Equal(t, KindMedia, d.Kind)
	assert.Equal(t, "audio", d.MediaType)
}

func TestRouteProductIntent(t *testing.T) {
	r := NewRouter()

	d := r.Route("can you recommend a vitamin c serum under $30", 4, nil)
	require.Equal(t, KindProduct, d.Kind)
	assert.Equal(t, "can you recommend a vitamin c serum under $30", d.Query)
}

func TestRouteChatFallback(t *testing.T) {
	r := NewRouter()

	d := r.Route("ugh today was so long", 4, nil)
	assert.Equal(t, KindChat, d.Kind)
}

func TestRouteOrderFAQBeatsProduct(t *testing.T) {
	r := NewRouter()

	// Mentions a product noun but hits the FAQ trigger first.
	d := r.Route("how much is vip and do you have a serum rec", 4, nil)
	assert.Equal(t, KindFAQ, d.Kind)
}
