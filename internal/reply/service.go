package reply

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bestielabs/bestie-platform/internal/compose"
	"github.com/bestielabs/bestie-platform/internal/entitlement"
	"github.com/bestielabs/bestie-platform/internal/intent"
	"github.com/bestielabs/bestie-platform/internal/linkwrap"
	"github.com/bestielabs/bestie-platform/internal/observability/metrics"
	"github.com/bestielabs/bestie-platform/internal/products"
	"github.com/bestielabs/bestie-platform/pkg/logging"
)

// audioUnsupportedLine is sent when a voice note arrives and no transcription
// backend is available.
const audioUnsupportedLine = "Babe, I can't listen to voice notes yet. Type it out for me?"

var reengageLines = []string{
	"Miss me? I found some stuff you'd love. What are we shopping for this week?",
	"Hey you! It's been a minute. Need picks for anything - skincare, gifts, a treat-yourself moment?",
	"Still here, still extremely online. Text me what you're hunting for and I'll do the digging.",
}

type entitlementGate interface {
	Evaluate(ctx context.Context, userID int64, userPhone string) entitlement.Decision
	DenialMessage(reason entitlement.Status) string
}

type profileStore interface {
	GetRecord(ctx context.Context, userID int64) (*entitlement.Record, error)
	SetBotName(ctx context.Context, userID int64, name string) error
	IncrementDailyUsed(ctx context.Context, userID int64) error
}

type conversationStore interface {
	MessageCount(ctx context.Context, conversationID int64) (int, error)
	History(ctx context.Context, conversationID int64, limit int) ([]compose.ChatTurn, error)
}

type dedupGuard interface {
	ShouldSend(ctx context.Context, conversationID int64, content string) bool
}

type replyComposer interface {
	Compose(ctx context.Context, req compose.Request) string
}

type candidateBuilder interface {
	Build(ctx context.Context, query string, c products.Constraints) []products.Candidate
}

type pitchInjector interface {
	MaybeInject(ctx context.Context, reply string, conversationID int64, userText string) string
}

// Service runs the full reply pipeline for one queued job: entitlement gate,
// intent routing, composition, promotion injection, link rewriting, chunked
// delivery, and the outbound delivery log.
type Service struct {
	gate      entitlementGate
	profiles  profileStore
	convos    conversationStore
	guard     dedupGuard
	composer  replyComposer
	transport Transport

	router   *intent.Router
	builder  candidateBuilder
	injector pitchInjector
	analyzer compose.MediaAnalyzer
	log      *DeliveryLog
	cache    *TranscriptCache
	pipeline linkwrap.Pipeline
	metrics  *metrics.PipelineMetrics

	historyLimit int
	partDelay    time.Duration
	sleep        func(time.Duration)
	pick         func(n int) int
	logger       *logging.Logger
}

// ServiceOption customizes optional collaborators.
type ServiceOption func(*Service)

// WithCandidateBuilder wires the product search branch. Without it, product
// intents fall back to plain chat composition.
func WithCandidateBuilder(b candidateBuilder) ServiceOption {
	return func(s *Service) { s.builder = b }
}

// WithIntentRouter overrides the default routing table, e.g. to carry the
// configured quiz link.
func WithIntentRouter(r *intent.Router) ServiceOption {
	return func(s *Service) {
		if r != nil {
			s.router = r
		}
	}
}

// WithPitchInjector wires the promotion injector.
func WithPitchInjector(i pitchInjector) ServiceOption {
	return func(s *Service) { s.injector = i }
}

// WithMediaAnalyzer wires image description and audio transcription.
func WithMediaAnalyzer(a compose.MediaAnalyzer) ServiceOption {
	return func(s *Service) { s.analyzer = a }
}

// WithDeliveryLog wires the durable outbound log.
func WithDeliveryLog(l *DeliveryLog) ServiceOption {
	return func(s *Service) { s.log = l }
}

// WithTranscriptCache wires the Redis transcript cache.
func WithTranscriptCache(c *TranscriptCache) ServiceOption {
	return func(s *Service) { s.cache = c }
}

// WithPipeline overrides the outbound link/chunk pipeline.
func WithPipeline(p linkwrap.Pipeline) ServiceOption {
	return func(s *Service) { s.pipeline = p }
}

// WithPartDelay sets the pause between multi-part SMS chunks so carriers
// deliver them in order.
func WithPartDelay(d time.Duration) ServiceOption {
	return func(s *Service) { s.partDelay = d }
}

// WithPipelineMetrics wires Prometheus counters.
func WithPipelineMetrics(m *metrics.PipelineMetrics) ServiceOption {
	return func(s *Service) { s.metrics = m }
}

func withSleep(fn func(time.Duration)) ServiceOption {
	return func(s *Service) { s.sleep = fn }
}

func withPick(fn func(n int) int) ServiceOption {
	return func(s *Service) { s.pick = fn }
}

// NewService wires the reply pipeline. The required collaborators cover the
// non-negotiable stages; everything optional arrives via options.
func NewService(
	gate entitlementGate,
	profiles profileStore,
	convos conversationStore,
	guard dedupGuard,
	composer replyComposer,
	transport Transport,
	logger *logging.Logger,
	opts ...ServiceOption,
) *Service {
	if gate == nil {
		panic("reply: gate cannot be nil")
	}
	if profiles == nil {
		panic("reply: profile store cannot be nil")
	}
	if convos == nil {
		panic("reply: conversation store cannot be nil")
	}
	if guard == nil {
		panic("reply: dedup guard cannot be nil")
	}
	if composer == nil {
		panic("reply: composer cannot be nil")
	}
	if transport == nil {
		panic("reply: transport cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	s := &Service{
		gate:         gate,
		profiles:     profiles,
		convos:       convos,
		guard:        guard,
		composer:     composer,
		transport:    transport,
		router:       intent.NewRouter(),
		pipeline:     linkwrap.Pipeline{ChunkBudget: linkwrap.DefaultChunkBudget},
		historyLimit: 20,
		sleep:        time.Sleep,
		pick:         rand.Intn,
		logger:       logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ProcessJob produces and delivers exactly one reply for a queued inbound
// message. A nil return means the job is finished, including the cases where
// the gate denied it or the dedup guard suppressed the send.
func (s *Service) ProcessJob(ctx context.Context, job *Job) error {
	if job == nil {
		return fmt.Errorf("reply: nil job")
	}

	decision := s.gate.Evaluate(ctx, job.UserID, job.UserPhone)
	if !decision.Allowed {
		s.metrics.ObserveGateDenied(string(decision.Reason))
		if err := s.deliver(ctx, job, []string{s.gate.DenialMessage(decision.Reason)}); err != nil {
			s.metrics.ObserveJob("paywall", "error")
			return err
		}
		s.metrics.ObserveJob("paywall", "ok")
		return nil
	}

	var botName string
	if rec, err := s.profiles.GetRecord(ctx, job.UserID); err != nil {
		s.logger.Warn("profile lookup failed, using default persona name", "error", err, "user_id", job.UserID)
	} else if rec != nil {
		botName = rec.BotName
	}

	count, err := s.convos.MessageCount(ctx, job.ConversationID)
	if err != nil {
		return fmt.Errorf("reply: count messages: %w", err)
	}
	// The triggering inbound message is already stored; routing wants the
	// count of messages before it.
	prior := count - 1
	if prior < 0 {
		prior = 0
	}

	dec := s.router.Route(job.Text, prior, job.MediaURLs)
	branch := string(dec.Kind)

	var body string
	canned := false

	switch dec.Kind {
	case intent.KindOnboarding, intent.KindFAQ:
		body = dec.Reply
		canned = true

	case intent.KindRename:
		if err := s.profiles.SetBotName(ctx, job.UserID, dec.NewBotName); err != nil {
			// Confirm anyway; the name just won't stick until the next try.
			s.logger.Warn("persisting bot name failed", "error", err, "user_id", job.UserID)
		}
		body = dec.Reply
		canned = true

	case intent.KindMedia:
		body, canned = s.composeMedia(ctx, job, dec, botName)

	case intent.KindProduct:
		var cands []products.Candidate
		if s.builder != nil {
			cands = s.builder.Build(ctx, dec.Query, products.Constraints{TargetCount: 3})
		}
		body = s.compose(ctx, job, compose.Request{
			UserText:   job.Text,
			Candidates: cands,
			UserID:     job.UserID,
			BotName:    botName,
		})

	default:
		body = s.compose(ctx, job, compose.Request{
			UserText: job.Text,
			UserID:   job.UserID,
			BotName:  botName,
		})
	}

	chunks := []string{body}
	if !canned {
		if s.injector != nil {
			body = s.injector.MaybeInject(ctx, body, job.ConversationID, job.Text)
		}
		chunks = s.pipeline.Run(body)
	}

	// Dedup keys off the finalized chunked output, so a redelivered job
	// hashes identically and gets suppressed.
	if !s.guard.ShouldSend(ctx, job.ConversationID, strings.Join(chunks, "\n")) {
		s.metrics.ObserveDedupSuppressed()
		s.metrics.ObserveJob(branch, "suppressed")
		return nil
	}

	if err := s.deliver(ctx, job, chunks); err != nil {
		s.metrics.ObserveJob(branch, "error")
		return err
	}

	if err := s.profiles.IncrementDailyUsed(ctx, job.UserID); err != nil {
		s.logger.Warn("daily usage increment failed", "error", err, "user_id", job.UserID)
	}
	s.metrics.ObserveJob(branch, "ok")
	return nil
}

// composeMedia handles photo and voice-note messages. The analyzer's text
// result is the reply body; it still takes the promotion and output stages.
// The bool result marks the reply as canned (skips both).
func (s *Service) composeMedia(ctx context.Context, job *Job, dec intent.Decision, botName string) (string, bool) {
	chatReq := compose.Request{UserText: job.Text, UserID: job.UserID, BotName: botName}

	if s.analyzer == nil {
		if dec.MediaType == "audio" {
			return audioUnsupportedLine, true
		}
		return s.compose(ctx, job, chatReq), false
	}

	var (
		body string
		err  error
	)
	switch dec.MediaType {
	case "audio":
		body, err = s.analyzer.TranscribeAudio(ctx, dec.MediaURL)
		if err != nil || strings.TrimSpace(body) == "" {
			s.logger.Warn("audio analysis unavailable", "error", err, "conversation_id", job.ConversationID)
			return audioUnsupportedLine, true
		}
	default:
		body, err = s.analyzer.DescribeImage(ctx, dec.MediaURL)
		if err != nil || strings.TrimSpace(body) == "" {
			s.logger.Warn("image analysis failed, replying from text only", "error", err, "conversation_id", job.ConversationID)
			return s.compose(ctx, job, chatReq), false
		}
	}
	return strings.TrimSpace(body), false
}

func (s *Service) compose(ctx context.Context, job *Job, req compose.Request) string {
	if history, err := s.convos.History(ctx, job.ConversationID, s.historyLimit); err != nil {
		s.logger.Warn("history load failed, composing without context", "error", err, "conversation_id", job.ConversationID)
	} else {
		req.History = history
	}

	start := time.Now()
	body := s.composer.Compose(ctx, req)
	s.metrics.ObserveGeneratorLatency(time.Since(start).Seconds())
	return body
}

// deliver persists and sends each chunk in order. A failed insert never
// blocks the send; the message matters more than the audit row. An error is
// returned only when nothing reached the transport.
func (s *Service) deliver(ctx context.Context, job *Job, chunks []string) error {
	var sent int
	var lastErr error

	for i, chunk := range chunks {
		if i > 0 && s.partDelay > 0 {
			s.sleep(s.partDelay)
		}

		externalID := uuid.NewString()
		if s.log != nil {
			if err := s.log.InsertOutbound(ctx, job.ConversationID, externalID, chunk); err != nil {
				s.logger.Warn("delivery log insert failed", "error", err, "conversation_id", job.ConversationID)
			}
		}

		if err := s.transport.Send(ctx, job.UserPhone, chunk); err != nil {
			s.logger.Error("outbound send failed", "error", err, "conversation_id", job.ConversationID, "chunk", i+1, "of", len(chunks))
			lastErr = err
			continue
		}
		sent++
		s.metrics.ObserveChunkSent()

		if s.cache != nil {
			if err := s.cache.Append(ctx, job.ConversationID, chunk); err != nil {
				s.logger.Warn("transcript cache append failed", "error", err, "conversation_id", job.ConversationID)
			}
		}
	}

	if sent == 0 && lastErr != nil {
		return fmt.Errorf("reply: deliver chunks: %w", lastErr)
	}
	return nil
}

// SendFallback delivers the static apology after a job fails terminally. The
// dedup guard still applies so a poison job retried by the queue cannot spam
// apologies.
func (s *Service) SendFallback(ctx context.Context, job *Job) {
	if job == nil || job.UserPhone == "" {
		return
	}
	if !s.guard.ShouldSend(ctx, job.ConversationID, compose.ApologyLine) {
		s.metrics.ObserveDedupSuppressed()
		return
	}
	if err := s.deliver(ctx, job, []string{compose.ApologyLine}); err != nil {
		s.logger.Error("fallback send failed", "error", err, "conversation_id", job.ConversationID)
	}
}

// ReengageStale nudges subscribed conversations that have gone quiet. It
// returns the number of nudges actually sent.
func (s *Service) ReengageStale(ctx context.Context, olderThan time.Duration, limit int) (int, error) {
	if s.log == nil {
		return 0, fmt.Errorf("reply: re-engagement requires the delivery log")
	}

	stale, err := s.log.StaleConversations(ctx, olderThan, limit)
	if err != nil {
		return 0, fmt.Errorf("reply: find stale conversations: %w", err)
	}

	var sent int
	for _, sc := range stale {
		nudge := reengageLines[s.pick(len(reengageLines))]
		// Keyed per conversation: one quiet stretch, one nudge.
		if !s.guard.ShouldSend(ctx, sc.ConversationID, nudge) {
			s.metrics.ObserveDedupSuppressed()
			continue
		}
		job := &Job{ConversationID: sc.ConversationID, UserID: sc.UserID, UserPhone: sc.Phone}
		if err := s.deliver(ctx, job, []string{nudge}); err != nil {
			s.logger.Error("re-engagement send failed", "error", err, "conversation_id", sc.ConversationID)
			continue
		}
		sent++
	}
	return sent, nil
}
