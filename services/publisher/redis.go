package publisher

import (
	"context"
	"encoding/base64"
	"encoding/json"

	relayerrors "sjsage522/giveawayrelay/pkg/errors"

	"github.com/redis/go-redis/v9"
)

// StreamField is the stream entry field holding the encoded notification.
const StreamField = "b64_giveaway"

// RedisPublisher mirrors notifications to a Redis stream
type RedisPublisher struct {
	client          redis.UniversalClient
	stream          string
	streamMaxLength int64
}

var (
	_ Publisher = (*RedisPublisher)(nil)
	_ Trimmer   = (*RedisPublisher)(nil)
)

// NewRedisPublisher creates a new Redis publisher on its own client
func NewRedisPublisher(addr string, db int, stream string, streamMaxLength int) *RedisPublisher {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})
	return NewRedisPublisherWithClient(client, stream, streamMaxLength)
}

// NewRedisPublisherWithClient creates a Redis publisher sharing client
func NewRedisPublisherWithClient(client redis.UniversalClient, stream string, streamMaxLength int) *RedisPublisher {
	return &RedisPublisher{
		client:          client,
		stream:          stream,
		streamMaxLength: int64(streamMaxLength),
	}
}

// Publish appends n to the stream
// The JSON message is base64 encoded before publishing
func (p *RedisPublisher) Publish(ctx context.Context, n Notification) error {
	message, err := json.Marshal(n)
	if err != nil {
		return relayerrors.NewNotification(n.URL, "failed to marshal stream message", err)
	}
	encodedMessage := base64.StdEncoding.EncodeToString(message)

	args := &redis.XAddArgs{
		Stream: p.stream,
		Values: map[string]interface{}{
			StreamField: encodedMessage,
		},
	}
	if p.streamMaxLength > 0 {
		args.MaxLen = p.streamMaxLength
		args.Approx = true
	}

	if err := p.client.XAdd(ctx, args).Err(); err != nil {
		return relayerrors.NewNotification(n.URL, "failed to publish to stream", err)
	}
	return nil
}

// Trim trims the stream to exactly the configured maximum length
func (p *RedisPublisher) Trim(ctx context.Context) error {
	if p.streamMaxLength <= 0 {
		return nil
	}
	return p.client.XTrimMaxLen(ctx, p.stream, p.streamMaxLength).Err()
}

// Close closes the Redis connection
func (p *RedisPublisher) Close() error {
	return p.client.Close()
}
