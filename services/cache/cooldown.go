package cache

import (
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"strconv"
	"time"

	"sjsage522/giveawayrelay/logger"
	relayerrors "sjsage522/giveawayrelay/pkg/errors"
)

const cooldownKeyPrefix = "giveawayrelay:cooldown:"

// Cooldown skips sources whose root page recently failed to load.
// A nil Cooldown, or one with a non-positive duration, is disabled.
type Cooldown struct {
	cache    CacheService
	duration time.Duration
	log      *logger.Logger
}

// NewCooldown creates a cooldown backed by c
func NewCooldown(c CacheService, duration time.Duration, log *logger.Logger) *Cooldown {
	if log == nil {
		log = logger.Nop()
	}
	return &Cooldown{cache: c, duration: duration, log: log}
}

func (c *Cooldown) enabled() bool {
	return c != nil && c.cache != nil && c.duration > 0
}

// Key returns the cache key for sourceURL. URLs are hashed because
// memcache keys cannot contain spaces or exceed 250 bytes.
func Key(sourceURL string) string {
	sum := sha1.Sum([]byte(sourceURL))
	return cooldownKeyPrefix + hex.EncodeToString(sum[:])
}

// Active reports whether sourceURL is cooling down. Cache failures other
// than a miss are logged and treated as not cooling down.
func (c *Cooldown) Active(sourceURL string) bool {
	if !c.enabled() {
		return false
	}
	_, err := c.cache.Get(Key(sourceURL))
	if err == nil {
		return true
	}
	if !errors.Is(err, ErrMiss) {
		c.log.Warn().Err(relayerrors.NewCache(sourceURL, "failed to read cooldown", err)).Msg("Cooldown check failed")
	}
	return false
}

// Start puts sourceURL on cooldown.
func (c *Cooldown) Start(sourceURL string) error {
	if !c.enabled() {
		return nil
	}
	value := []byte(strconv.Itoa(int(c.duration / time.Second)))
	if err := c.cache.Set(Key(sourceURL), value, c.duration); err != nil {
		return relayerrors.NewCache(sourceURL, "failed to start cooldown", err)
	}
	return nil
}
