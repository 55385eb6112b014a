package promo

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type stubReader struct {
	entries []LogEntry
	err     error
}

func (s stubReader) RecentOutbound(_ context.Context, _ int64, _ time.Time) ([]LogEntry, error) {
	return s.entries, s.err
}

func newInjector(reader DeliveryReader) *Injector {
	inj := NewInjector(reader, true, 2, 4*time.Hour, nil)
	inj.now = func() time.Time { return time.Date(2026, 3, 15, 18, 0, 0, 0, time.UTC) }
	return inj
}

func TestMaybeInjectOnFriction(t *testing.T) {
	inj := newInjector(stubReader{})

	got := inj.MaybeInject(context.Background(), "Try the CeraVe one first.", 1, "ugh nothing works on my skin")
	assert.True(t, strings.HasSuffix(got, PitchLine))
}

func TestMaybeInjectNoTriggerNoPitch(t *testing.T) {
	inj := newInjector(stubReader{})

	reply := "It ships in two days."
	assert.Equal(t, reply, inj.MaybeInject(context.Background(), reply, 1, "when does it arrive"))
}

func TestMaybeInjectOptOutVeto(t *testing.T) {
	inj := newInjector(stubReader{})

	for _, text := range []string{
		"stop trying to sell me stuff",
		"please don't sell to me",
		"no vip thanks",
		"quit pitching",
	} {
		reply := "Okay! Here's the rec."
		assert.Equal(t, reply, inj.MaybeInject(context.Background(), reply, 1, text), "opt-out text: %s", text)
	}
}

func TestMaybeInjectDailyCap(t *testing.T) {
	now := time.Date(2026, 3, 15, 18, 0, 0, 0, time.UTC)
	inj := newInjector(stubReader{entries: []LogEntry{
		{Body: "join vip babe", CreatedAt: now.Add(-20 * time.Hour)},
		{Body: "link: https://bestie.gumroad.com/l/vip", CreatedAt: now.Add(-10 * time.Hour)},
	}})
	inj.now = func() time.Time { return now }

	reply := "Honestly the serum is great."
	assert.Equal(t, reply, inj.MaybeInject(context.Background(), reply, 1, "ugh I'm so frustrated"))
}

func TestMaybeInjectCooldown(t *testing.T) {
	now := time.Date(2026, 3, 15, 18, 0, 0, 0, time.UTC)
	inj := newInjector(stubReader{entries: []LogEntry{
		{Body: "vip perks are wild", CreatedAt: now.Add(-30 * time.Minute)},
	}})
	inj.now = func() time.Time { return now }

	reply := "Totally get it."
	assert.Equal(t, reply, inj.MaybeInject(context.Background(), reply, 1, "ugh help me"))
}

func TestMaybeInjectSkipsWhenReplyAlreadyLinksProgram(t *testing.T) {
	inj := newInjector(stubReader{})

	reply := "Join here: https://bestie.gumroad.com/l/vip"
	assert.Equal(t, reply, inj.MaybeInject(context.Background(), reply, 1, "tell me about vip"))
}

func TestMaybeInjectLogFailureSkipsPitch(t *testing.T) {
	inj := newInjector(stubReader{err: errors.New("db down")})

	reply := "Here you go."
	assert.Equal(t, reply, inj.MaybeInject(context.Background(), reply, 1, "ugh frustrated"))
}

func TestMaybeInjectDisabled(t *testing.T) {
	inj := NewInjector(stubReader{}, false, 2, time.Hour, nil)

	reply := "Sure thing."
	assert.Equal(t, reply, inj.MaybeInject(context.Background(), reply, 1, "ugh"))
}
