package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	relayerrors "sjsage522/giveawayrelay/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebhookPublisher(t *testing.T) {
	type request struct {
		contentType string
		body        []byte
	}
	requests := make(chan request, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		requests <- request{contentType: r.Header.Get("Content-Type"), body: body}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	p := NewWebhookPublisher(server.URL, "Giveaways Relay", "<@&42>")
	err := p.Publish(context.Background(), Notification{
		SourceName:  "Atlas Alpha",
		URL:         "https://atlas3.io/project/alpha/giveaway/1",
		Title:       "Alpha WL",
		Description: "Mint soon",
		At:          time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	req := <-requests
	assert.Equal(t, "application/json", req.contentType)
	assert.JSONEq(t, `{
		"username": "Giveaways Relay",
		"content": "<@&42>",
		"embeds": [{
			"title": "Alpha WL",
			"url": "https://atlas3.io/project/alpha/giveaway/1",
			"description": "Mint soon\n\n📌 Source: **Atlas Alpha**",
			"timestamp": "2024-05-01T12:00:00Z"
		}]
	}`, string(req.body))
}

func TestWebhookPayloadWithoutMentionOrDescription(t *testing.T) {
	p := NewWebhookPublisher("http://unused", "Giveaways Relay", "")
	payload := p.Payload(Notification{SourceName: "Subber", URL: "https://subber.xyz/giveaway/1", Title: "New giveaway"})

	data, err := json.Marshal(payload)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.NotContains(t, decoded, "content")
	assert.Equal(t, "📌 Source: **Subber**", payload.Embeds[0].Description)
	assert.NotEmpty(t, payload.Embeds[0].Timestamp)
}

func TestWebhookPublisherRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer server.Close()

	err := NewWebhookPublisher(server.URL, "Giveaways Relay", "").
		Publish(context.Background(), Notification{URL: "https://subber.xyz/giveaway/1"})

	var relayErr *relayerrors.RelayError
	require.ErrorAs(t, err, &relayErr)
	assert.Equal(t, relayerrors.ErrorTypeNotification, relayErr.Type)
	assert.Contains(t, err.Error(), "429")
}

type recordingPublisher struct {
	published []Notification
	err       error
	closed    bool
}

func (r *recordingPublisher) Publish(ctx context.Context, n Notification) error {
	r.published = append(r.published, n)
	return r.err
}

func (r *recordingPublisher) Close() error {
	r.closed = true
	return nil
}

func TestFanout(t *testing.T) {
	failing := &recordingPublisher{err: errors.New("down")}
	ok := &recordingPublisher{}
	f := Fanout{failing, ok}

	n := Notification{URL: "https://subber.xyz/giveaway/1"}
	err := f.Publish(context.Background(), n)

	assert.ErrorContains(t, err, "down")
	assert.Equal(t, []Notification{n}, ok.published)
	assert.NoError(t, f.Trim(context.Background()))

	require.NoError(t, f.Close())
	assert.True(t, failing.closed)
	assert.True(t, ok.closed)
}
