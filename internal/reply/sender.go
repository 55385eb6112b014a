package reply

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Transport is the SMS delivery collaborator. Fire-and-forget: no delivery
// receipt is consumed by this core.
type Transport interface {
	Send(ctx context.Context, phoneE164, body string) error
}

// WebhookTransport delivers outbound SMS by POSTing to the messaging
// gateway's send endpoint.
type WebhookTransport struct {
	url       string
	authToken string
	client    *http.Client
}

// NewWebhookTransport builds a transport for the configured gateway URL.
func NewWebhookTransport(url, authToken string) *WebhookTransport {
	if url == "" {
		panic("reply: outbound webhook URL cannot be empty")
	}
	return &WebhookTransport{
		url:       url,
		authToken: authToken,
		client:    &http.Client{Timeout: 15 * time.Second},
	}
}

type outboundPayload struct {
	Phone   string `json:"phone"`
	Message string `json:"message"`
}

// Send POSTs one SMS body to the gateway.
func (t *WebhookTransport) Send(ctx context.Context, phoneE164, body string) error {
	data, err := json.Marshal(outboundPayload{Phone: phoneE164, Message: body})
	if err != nil {
		return fmt.Errorf("reply: marshal outbound payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("reply: build outbound request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if t.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+t.authToken)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("reply: outbound request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("reply: outbound gateway returned %d: %s", resp.StatusCode, string(detail))
	}
	return nil
}
