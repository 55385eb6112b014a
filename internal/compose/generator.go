// Package compose turns a routed inbound message into reply text, either via
// the external text generator or a deterministic fallback.
package compose

import (
	"context"

	"github.com/bestielabs/bestie-platform/internal/products"
)

// ChatRole identifies the speaker of a history turn.
type ChatRole string

const (
	ChatRoleUser      ChatRole = "user"
	ChatRoleAssistant ChatRole = "assistant"
)

// ChatTurn is one prior exchange supplied as generation context.
type ChatTurn struct {
	Role    ChatRole
	Content string
}

// Request carries everything the generator needs for one reply.
type Request struct {
	UserText   string
	Candidates []products.Candidate
	UserID     int64
	BotName    string
	System     []string
	History    []ChatTurn
}

// Generator is the external text-generation collaborator. Treat it as a
// fallible remote call, never as synchronous-fast.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// MediaAnalyzer describes images and transcribes audio referenced by inbound
// messages.
type MediaAnalyzer interface {
	DescribeImage(ctx context.Context, url string) (string, error)
	TranscribeAudio(ctx context.Context, url string) (string, error)
}
