package publisher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	relayerrors "sjsage522/giveawayrelay/pkg/errors"
)

// WebhookPayload is the Discord-compatible webhook body.
type WebhookPayload struct {
	Username string         `json:"username"`
	Content  string         `json:"content,omitempty"`
	Embeds   []WebhookEmbed `json:"embeds"`
}

// WebhookEmbed is a single rich embed.
type WebhookEmbed struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Description string `json:"description"`
	Timestamp   string `json:"timestamp"`
}

// WebhookPublisher posts notifications to a chat webhook.
type WebhookPublisher struct {
	url      string
	username string
	mention  string
	client   *http.Client
}

var _ Publisher = (*WebhookPublisher)(nil)

// NewWebhookPublisher creates a webhook publisher. mention, when set, is
// sent as the message content so the mentioned role is pinged.
func NewWebhookPublisher(webhookURL, username, mention string) *WebhookPublisher {
	return &WebhookPublisher{
		url:      webhookURL,
		username: username,
		mention:  mention,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

// Payload builds the request body for n.
func (w *WebhookPublisher) Payload(n Notification) WebhookPayload {
	description := fmt.Sprintf("📌 Source: **%s**", n.SourceName)
	if n.Description != "" {
		description = n.Description + "\n\n" + description
	}
	at := n.At
	if at.IsZero() {
		at = time.Now()
	}

	return WebhookPayload{
		Username: w.username,
		Content:  w.mention,
		Embeds: []WebhookEmbed{{
			Title:       n.Title,
			URL:         n.URL,
			Description: description,
			Timestamp:   at.UTC().Format(time.RFC3339),
		}},
	}
}

// Publish posts n. Any non-2xx response is an error.
func (w *WebhookPublisher) Publish(ctx context.Context, n Notification) error {
	body, err := json.Marshal(w.Payload(n))
	if err != nil {
		return relayerrors.NewNotification(n.URL, "failed to marshal webhook payload", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return relayerrors.NewNotification(n.URL, "failed to create webhook request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return relayerrors.NewNotification(n.URL, "failed to send webhook request", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return relayerrors.NewNotification(n.URL, "webhook rejected notification",
			fmt.Errorf("status: %s, response: %s", resp.Status, respBody))
	}
	return nil
}

// Close is a no-op
func (w *WebhookPublisher) Close() error {
	return nil
}
