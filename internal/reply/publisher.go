package reply

import (
	"context"
	"fmt"

	"github.com/bestielabs/bestie-platform/pkg/logging"
)

// Publisher enqueues reply jobs and records their pending status.
type Publisher struct {
	queue  queueClient
	jobs   JobRecorder
	logger *logging.Logger
}

// NewPublisher builds a publisher over the queue. The job recorder is
// optional; without it jobs are fire-and-forget.
func NewPublisher(queue queueClient, jobs JobRecorder, logger *logging.Logger) *Publisher {
	if queue == nil {
		panic("reply: queue cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Publisher{queue: queue, jobs: jobs, logger: logger}
}

// Publish enqueues one job and returns its ID.
func (p *Publisher) Publish(ctx context.Context, job Job, opts ...PublishOption) (string, error) {
	payload := queuePayload{Job: job, TrackStatus: p.jobs != nil}
	for _, opt := range opts {
		opt(&payload)
	}

	payload, body, err := encodePayload(payload)
	if err != nil {
		return "", err
	}

	if payload.TrackStatus && p.jobs != nil {
		record := &JobRecord{
			JobID:          payload.ID,
			ConversationID: job.ConversationID,
			Job:            &job,
		}
		if err := p.jobs.PutPending(ctx, record); err != nil {
			// Status tracking is best-effort; the queue is the source of truth.
			p.logger.Warn("failed to record pending job", "error", err, "job_id", payload.ID)
		}
	}

	if err := p.queue.Send(ctx, body); err != nil {
		return "", fmt.Errorf("reply: failed to enqueue job: %w", err)
	}

	p.logger.Debug("reply job enqueued", "job_id", payload.ID, "conversation_id", job.ConversationID)
	return payload.ID, nil
}
