// Package reply contains the asynchronous reply-orchestration pipeline: the
// queue consumer, the per-job control flow, and the terminal send path.
package reply

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

type queueClient interface {
	Send(ctx context.Context, body string) error
	Receive(ctx context.Context, maxMessages int, waitSeconds int) ([]queueMessage, error)
	Delete(ctx context.Context, receiptHandle string) error
}

type queueMessage struct {
	ID            string
	Body          string
	ReceiptHandle string
}

// Job carries one inbound message through the pipeline. The webhook layer
// normalizes the phone to E.164 before enqueueing.
type Job struct {
	ConversationID int64    `json:"conversation_id"`
	UserID         int64    `json:"user_id"`
	Text           string   `json:"text"`
	UserPhone      string   `json:"user_phone,omitempty"`
	MediaURLs      []string `json:"media_urls,omitempty"`
}

type queuePayload struct {
	ID          string `json:"id"`
	Job         Job    `json:"job"`
	TrackStatus bool   `json:"track_status"`
}

// PublishOption customizes how a job is enqueued.
type PublishOption func(*queuePayload)

// WithoutJobTracking disables job status persistence for fire-and-forget work.
func WithoutJobTracking() PublishOption {
	return func(p *queuePayload) {
		p.TrackStatus = false
	}
}

func encodePayload(payload queuePayload) (queuePayload, string, error) {
	if payload.ID == "" {
		payload.ID = uuid.NewString()
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return queuePayload{}, "", fmt.Errorf("reply: failed to encode payload: %w", err)
	}

	return payload, string(body), nil
}
