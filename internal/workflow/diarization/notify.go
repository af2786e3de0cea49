package diarization

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Notifiers bundles the two optional, fire-and-forget notification
// channels post_zulip and send_webhook send to. A
// nil field disables that notifier; its task becomes a no-op.
type Notifiers struct {
	Zulip   *ZulipNotifier
	Webhook *WebhookNotifier
}

// ZulipNotifier posts to a Zulip stream over Zulip's REST API directly —
// no Zulip SDK is available, so this is a small stdlib HTTP client
// rather than an adopted library, following a "thin client,
// bearer/basic auth, timeout" shape.
type ZulipNotifier struct {
	baseURL string
	email   string
	apiKey  string
	stream  string
	client  *http.Client
}

func NewZulipNotifier(baseURL, email, apiKey, stream string) *ZulipNotifier {
	return &ZulipNotifier{
		baseURL: baseURL,
		email:   email,
		apiKey:  apiKey,
		stream:  stream,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

// Post sends one stream message. topic is Zulip's thread-like subject
// line within the stream.
func (n *ZulipNotifier) Post(ctx context.Context, topic, content string) error {
	form := url.Values{
		"type":    {"stream"},
		"to":      {n.stream},
		"topic":   {topic},
		"content": {content},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.baseURL+"/api/v1/messages", bytes.NewBufferString(form.Encode()))
	if err != nil {
		return fmt.Errorf("zulip: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(n.email, n.apiKey)

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("zulip: request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("zulip: unexpected status %d", resp.StatusCode)
	}
	return nil
}

// WebhookNotifier POSTs a JSON payload to a configured URL — no specific
// webhook provider is required, so this stays a generic client rather
// than adopting a provider SDK.
type WebhookNotifier struct {
	url    string
	client *http.Client
}

func NewWebhookNotifier(webhookURL string) *WebhookNotifier {
	return &WebhookNotifier{url: webhookURL, client: &http.Client{Timeout: 15 * time.Second}}
}

func (n *WebhookNotifier) Post(ctx context.Context, payload map[string]interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("webhook: encode payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook: request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook: unexpected status %d", resp.StatusCode)
	}
	return nil
}

// postZulip and sendWebhook are optional fire-and-forget notifiers:
// failures are logged and never fail the workflow.

func (s *Services) postZulip(ctx context.Context, input map[string]interface{}) (map[string]interface{}, error) {
	in, err := decodeMap[finalizeOutput](input)
	if err != nil {
		return nil, err
	}
	if s.Notifiers.Zulip != nil {
		content := fmt.Sprintf("Transcript %s finished (%.0fs)", in.TranscriptID, in.DurationSeconds)
		if err := s.Notifiers.Zulip.Post(ctx, in.TranscriptID, content); err != nil {
			s.Log.Warn("post_zulip failed", "transcript_id", in.TranscriptID, "error", err)
		}
	}
	return encodeMap(in)
}

func (s *Services) sendWebhook(ctx context.Context, input map[string]interface{}) (map[string]interface{}, error) {
	in, err := decodeMap[finalizeOutput](input)
	if err != nil {
		return nil, err
	}
	if s.Notifiers.Webhook != nil {
		payload := map[string]interface{}{
			"transcript_id":    in.TranscriptID,
			"status":           "ended",
			"duration_seconds": in.DurationSeconds,
		}
		if err := s.Notifiers.Webhook.Post(ctx, payload); err != nil {
			s.Log.Warn("send_webhook failed", "transcript_id", in.TranscriptID, "error", err)
		}
	}
	return encodeMap(in)
}
