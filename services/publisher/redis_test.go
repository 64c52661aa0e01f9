package publisher

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisPublisher(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	publisher := NewRedisPublisher(mr.Addr(), 0, "giveaways", 100)
	defer publisher.Close()

	n := Notification{
		SourceName: "Atlas Alpha",
		URL:        "https://atlas3.io/project/alpha/giveaway/1",
		Title:      "Alpha WL",
		At:         time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
	require.NoError(t, publisher.Publish(ctx, n))

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	entries, err := client.XRange(ctx, "giveaways", "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, entries, 1)

	raw, err := base64.StdEncoding.DecodeString(entries[0].Values[StreamField].(string))
	require.NoError(t, err)

	var got Notification
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, n, got)
}

func TestRedisPublisherTrim(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	publisher := NewRedisPublisher(mr.Addr(), 0, "giveaways", 3)
	defer publisher.Close()

	for i := 0; i < 10; i++ {
		require.NoError(t, publisher.Publish(ctx, Notification{URL: fmt.Sprintf("https://subber.xyz/giveaway/%d", i)}))
	}
	require.NoError(t, publisher.Trim(ctx))

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	length, err := client.XLen(ctx, "giveaways").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(3), length)
}

func TestRedisPublisherUnavailable(t *testing.T) {
	mr := miniredis.RunT(t)
	publisher := NewRedisPublisher(mr.Addr(), 0, "giveaways", 3)
	defer publisher.Close()
	mr.Close()

	err := publisher.Publish(context.Background(), Notification{URL: "https://subber.xyz/giveaway/1"})
	assert.ErrorContains(t, err, "failed to publish to stream")
}
