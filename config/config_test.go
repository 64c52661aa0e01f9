package config

import (
	"testing"
	"time"

	relayerrors "sjsage522/giveawayrelay/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	// Test with default values
	config := LoadConfig()
	assert.Equal(t, "Giveaways Relay", config.WebhookUsername)
	assert.Equal(t, 800*time.Millisecond, config.NotifyInterval)
	assert.Equal(t, "sources.txt", config.SourcesFile)
	assert.Equal(t, "sources.json", config.SourcesJSONFile)
	assert.Equal(t, StateBackendFile, config.StateBackend)
	assert.Equal(t, "state.json", config.StateFile)
	assert.True(t, config.SeedOnFirstRun)
	assert.Equal(t, 8, config.MaxChildPages)
	assert.Equal(t, 3, config.RevealAttempts)
	assert.Equal(t, "Mozilla/5.0 GiveawayRelay", config.UserAgent)
	assert.True(t, config.Headless)

	// Test with environment variables
	t.Setenv("DISCORD_WEBHOOK_URL", "https://discord.example/api/webhooks/1/abc")
	t.Setenv("KEYWORDS", " mint|whitelist ")
	t.Setenv("MENTION_ROLE_ID", "42")
	t.Setenv("SEED_ON_FIRST_RUN", "false")
	t.Setenv("STATE_BACKEND", "REDIS")
	t.Setenv("REDIS_DB", "2")
	t.Setenv("MAX_CHILD_PAGES", "3")
	t.Setenv("SOURCE_COOLDOWN_SECONDS", "600")
	t.Setenv("NOTIFY_INTERVAL_MS", "0")

	config = LoadConfig()
	assert.Equal(t, "https://discord.example/api/webhooks/1/abc", config.WebhookURL)
	assert.Equal(t, "mint|whitelist", config.Keywords)
	assert.Equal(t, "<@&42>", config.MentionContent())
	assert.False(t, config.SeedOnFirstRun)
	assert.Equal(t, StateBackendRedis, config.StateBackend)
	assert.Equal(t, 2, config.RedisDB)
	assert.Equal(t, 3, config.MaxChildPages)
	assert.Equal(t, 10*time.Minute, config.SourceCooldown)
	assert.Equal(t, time.Duration(0), config.NotifyInterval)
	assert.NoError(t, config.Validate())
}

func TestLoadConfigMalformedIntegers(t *testing.T) {
	t.Setenv("MAX_CHILD_PAGES", "eight")
	t.Setenv("NOTIFY_INTERVAL_MS", "800ms")
	t.Setenv("REVEAL_ATTEMPTS", "3.5")
	t.Setenv("REDIS_STREAM_MAX_LENGTH", "")
	t.Setenv("SOURCE_COOLDOWN_SECONDS", " 60 ")

	config := LoadConfig()
	assert.Equal(t, 8, config.MaxChildPages)
	assert.Equal(t, 800*time.Millisecond, config.NotifyInterval)
	assert.Equal(t, 3, config.RevealAttempts)
	assert.Equal(t, 1000, config.RedisStreamMaxLength)
	assert.Equal(t, time.Minute, config.SourceCooldown)
}

func TestValidateRequiresWebhook(t *testing.T) {
	t.Setenv("DISCORD_WEBHOOK_URL", "")
	err := LoadConfig().Validate()
	require.Error(t, err)

	var relayErr *relayerrors.RelayError
	require.ErrorAs(t, err, &relayErr)
	assert.Equal(t, relayerrors.ErrorTypeConfiguration, relayErr.Type)
	assert.Contains(t, err.Error(), "DISCORD_WEBHOOK_URL")
}

func TestValidateRejectsBadKeywords(t *testing.T) {
	cfg := &Config{WebhookURL: "https://hook", Keywords: "mint(", StateBackend: StateBackendFile}
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsUnknownBackend(t *testing.T) {
	cfg := &Config{WebhookURL: "https://hook", StateBackend: "sqlite"}
	assert.Error(t, cfg.Validate())
}

func TestMentionContentEmpty(t *testing.T) {
	assert.Equal(t, "", (&Config{}).MentionContent())
}

func TestKeywordPattern(t *testing.T) {
	assert.Nil(t, (&Config{}).KeywordPattern())

	re := (&Config{Keywords: "mint|whitelist"}).KeywordPattern()
	require.NotNil(t, re)
	assert.True(t, re.MatchString("WHITELIST spots"))
	assert.False(t, re.MatchString("Daily Raffle"))
}
