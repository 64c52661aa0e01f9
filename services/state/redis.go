package state

import (
	"context"
	"strconv"

	"sjsage522/giveawayrelay/logger"
	relayerrors "sjsage522/giveawayrelay/pkg/errors"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps the state in a Redis hash of url -> epoch milliseconds.
type RedisStore struct {
	client redis.UniversalClient
	key    string
	log    *logger.Logger
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore creates a store on its own client
func NewRedisStore(addr string, db int, key string, log *logger.Logger) *RedisStore {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})
	return NewRedisStoreWithClient(client, key, log)
}

// NewRedisStoreWithClient creates a store sharing an existing client
func NewRedisStoreWithClient(client redis.UniversalClient, key string, log *logger.Logger) *RedisStore {
	if log == nil {
		log = logger.Nop()
	}
	return &RedisStore{client: client, key: key, log: log}
}

// Load reads the whole hash. Unparseable timestamps are skipped.
func (r *RedisStore) Load(ctx context.Context) (*SeenState, error) {
	values, err := r.client.HGetAll(ctx, r.key).Result()
	if err != nil {
		return nil, relayerrors.NewState("failed to load state from redis", err)
	}

	s := New()
	for rawURL, v := range values {
		ms, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			r.log.Warn().Str("url", rawURL).Str("value", v).Msg("Skipping malformed state entry")
			continue
		}
		s.seen[rawURL] = ms
	}
	return s, nil
}

// Save inserts every entry with HSETNX so existing timestamps are kept.
func (r *RedisStore) Save(ctx context.Context, s *SeenState) error {
	entries := s.Entries()
	if len(entries) == 0 {
		return nil
	}

	_, err := r.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for rawURL, ms := range entries {
			pipe.HSetNX(ctx, r.key, rawURL, ms)
		}
		return nil
	})
	if err != nil {
		return relayerrors.NewState("failed to save state to redis", err)
	}
	return nil
}

// Close closes the Redis connection
func (r *RedisStore) Close() error {
	return r.client.Close()
}
