// Package webhook exposes the HTTP intake surface: inbound SMS deliveries
// from the messaging gateway and billing events from the subscription
// provider. Handlers validate, persist, and enqueue; all reply work happens
// in the worker.
package webhook

import (
	"context"
	"crypto/hmac"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/bestielabs/bestie-platform/internal/billing"
	"github.com/bestielabs/bestie-platform/internal/phone"
	"github.com/bestielabs/bestie-platform/internal/reply"
	"github.com/bestielabs/bestie-platform/pkg/logging"
)

const maxBodyBytes = 64 * 1024

type intakeStore interface {
	EnsureUser(ctx context.Context, phoneE164 string) (int64, error)
	LatestConversation(ctx context.Context, userID int64) (int64, error)
	InsertInbound(ctx context.Context, conversationID int64, externalID, body string) (bool, error)
}

type profileEnsurer interface {
	EnsureProfile(ctx context.Context, userID int64) error
}

type jobPublisher interface {
	Publish(ctx context.Context, job reply.Job, opts ...reply.PublishOption) (string, error)
}

type billingProcessor interface {
	Apply(ctx context.Context, ev billing.Event) error
}

type jobReader interface {
	GetJob(ctx context.Context, jobID string) (*reply.JobRecord, error)
}

// Handler serves the intake endpoints.
type Handler struct {
	store         intakeStore
	profiles      profileEnsurer
	publisher     jobPublisher
	billing       billingProcessor
	jobs          jobReader
	secret        string
	billingSecret string
	logger        *logging.Logger
	tracer        trace.Tracer
}

// Config wires handler collaborators.
type Config struct {
	Store         intakeStore
	Profiles      profileEnsurer
	Publisher     jobPublisher
	Billing       billingProcessor
	Jobs          jobReader
	WebhookSecret string
	BillingSecret string
	Logger        *logging.Logger
}

// NewHandler builds the intake handler.
func NewHandler(cfg Config) *Handler {
	if cfg.Store == nil {
		panic("webhook: store cannot be nil")
	}
	if cfg.Publisher == nil {
		panic("webhook: publisher cannot be nil")
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	return &Handler{
		store:         cfg.Store,
		profiles:      cfg.Profiles,
		publisher:     cfg.Publisher,
		billing:       cfg.Billing,
		jobs:          cfg.Jobs,
		secret:        cfg.WebhookSecret,
		billingSecret: cfg.BillingSecret,
		logger:        cfg.Logger,
		tracer:        otel.Tracer("bestie.internal.webhook"),
	}
}

// inboundPayload is the messaging gateway's delivery format.
type inboundPayload struct {
	MessageID string   `json:"message_id"`
	Phone     string   `json:"phone"`
	Text      string   `json:"text"`
	MediaURLs []string `json:"media_urls,omitempty"`
}

// HandleInbound ingests one SMS delivery and enqueues the reply job. A
// redelivered message_id returns 200 without enqueueing, so the gateway can
// retry freely.
func (h *Handler) HandleInbound(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "webhook.inbound")
	defer span.End()

	if h.secret != "" && !secretMatch(r.Header.Get("X-Webhook-Secret"), h.secret) {
		h.logger.Warn("inbound webhook rejected: bad secret")
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var payload inboundPayload
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&payload); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	from := phone.Normalize(payload.Phone)
	if payload.MessageID == "" || from == "" || (payload.Text == "" && len(payload.MediaURLs) == 0) {
		err := errors.New("missing required inbound fields")
		h.logger.Error("invalid inbound payload", "error", err)
		span.RecordError(err)
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	span.SetAttributes(attribute.String("bestie.inbound.message_id", payload.MessageID))

	userID, err := h.store.EnsureUser(ctx, from)
	if err != nil {
		h.logger.Error("failed to persist user", "error", err)
		span.RecordError(err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if h.profiles != nil {
		if err := h.profiles.EnsureProfile(ctx, userID); err != nil {
			h.logger.Warn("failed to ensure profile", "error", err, "user_id", userID)
		}
	}

	conversationID, err := h.store.LatestConversation(ctx, userID)
	if err != nil {
		h.logger.Error("failed to resolve conversation", "error", err, "user_id", userID)
		span.RecordError(err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	inserted, err := h.store.InsertInbound(ctx, conversationID, payload.MessageID, payload.Text)
	if err != nil {
		h.logger.Error("failed to persist inbound message", "error", err, "conversation_id", conversationID)
		span.RecordError(err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if !inserted {
		// Redelivery: the original job already covers it.
		h.logger.Info("duplicate inbound delivery ignored", "message_id", payload.MessageID)
		writeJSON(w, http.StatusOK, map[string]string{"status": "duplicate"})
		return
	}

	publishCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	jobID, err := h.publisher.Publish(publishCtx, reply.Job{
		ConversationID: conversationID,
		UserID:         userID,
		Text:           payload.Text,
		UserPhone:      from,
		MediaURLs:      payload.MediaURLs,
	})
	if err != nil {
		h.logger.Error("failed to enqueue reply job", "error", err, "conversation_id", conversationID)
		span.RecordError(err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued", "job_id": jobID})
}

// HandleBilling ingests a form-encoded subscription-provider event. The
// provider cannot set headers, so the shared secret rides a form field.
func (h *Handler) HandleBilling(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "webhook.billing")
	defer span.End()

	if h.billing == nil {
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}

	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	if h.billingSecret != "" && !secretMatch(r.PostForm.Get("secret"), h.billingSecret) {
		h.logger.Warn("billing webhook rejected: bad secret")
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	ev := billing.ParseEvent(r.PostForm)
	if err := h.billing.Apply(ctx, ev); err != nil {
		span.RecordError(err)
		if errors.Is(err, billing.ErrNoPhone) {
			http.Error(w, "Bad Request", http.StatusBadRequest)
			return
		}
		h.logger.Error("failed to apply billing event", "error", err, "kind", string(ev.Kind))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"received": true})
}

// JobStatus reports the lifecycle state of a queued reply job. The job
// payload stays private; callers only get status fields.
func (h *Handler) JobStatus(w http.ResponseWriter, r *http.Request) {
	if h.jobs == nil {
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}

	jobID := chi.URLParam(r, "jobID")
	rec, err := h.jobs.GetJob(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, reply.ErrJobNotFound) {
			http.Error(w, "Not Found", http.StatusNotFound)
			return
		}
		h.logger.Error("failed to fetch job record", "error", err, "job_id", jobID)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	body := map[string]string{
		"job_id":     rec.JobID,
		"status":     string(rec.Status),
		"updated_at": rec.UpdatedAt,
	}
	if rec.ErrorMessage != "" {
		body["error_message"] = rec.ErrorMessage
	}
	writeJSON(w, http.StatusOK, body)
}

// HealthCheck reports process liveness.
func (h *Handler) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func secretMatch(got, want string) bool {
	return hmac.Equal([]byte(got), []byte(want))
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
