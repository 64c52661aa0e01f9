package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	relayerrors "sjsage522/giveawayrelay/pkg/errors"
)

// Config represents the application configuration. It is built once in main
// and passed down by value; nothing below main reads the environment.
type Config struct {
	// Notification configuration
	WebhookURL      string
	WebhookUsername string
	MentionRoleID   string
	Keywords        string
	NotifyInterval  time.Duration

	// Source feed configuration
	SourcesFile     string
	SourcesJSONFile string
	SourcesTxtURL   string
	SheetCSVURL     string

	// State configuration
	StateBackend   string
	StateFile      string
	SeedOnFirstRun bool

	// Redis configuration
	RedisAddr            string
	RedisDB              int
	RedisStateKey        string
	RedisStream          string
	RedisStreamMaxLength int

	// Memcache configuration
	MemcacheAddr   string
	SourceCooldown time.Duration

	// Crawler configuration
	MaxChildPages  int
	RevealAttempts int
	UserAgent      string
	ChromePath     string
	Headless       bool

	// Environment
	Environment string
}

const (
	// StateBackendFile persists the seen set as a JSON file
	StateBackendFile = "file"
	// StateBackendRedis persists the seen set in a Redis hash
	StateBackendRedis = "redis"
)

// LoadConfig loads the configuration from environment variables with defaults
func LoadConfig() *Config {
	redisDB := getInt("REDIS_DB", 0)
	streamMaxLength := getInt("REDIS_STREAM_MAX_LENGTH", 1000)
	cooldown := getInt("SOURCE_COOLDOWN_SECONDS", 0)
	notifyInterval := getInt("NOTIFY_INTERVAL_MS", 800)
	maxChildPages := getInt("MAX_CHILD_PAGES", 8)
	revealAttempts := getInt("REVEAL_ATTEMPTS", 3)

	return &Config{
		WebhookURL:           os.Getenv("DISCORD_WEBHOOK_URL"),
		WebhookUsername:      getEnv("WEBHOOK_USERNAME", "Giveaways Relay"),
		MentionRoleID:        strings.TrimSpace(os.Getenv("MENTION_ROLE_ID")),
		Keywords:             strings.TrimSpace(os.Getenv("KEYWORDS")),
		NotifyInterval:       time.Duration(notifyInterval) * time.Millisecond,
		SourcesFile:          getEnv("SOURCES_FILE", "sources.txt"),
		SourcesJSONFile:      getEnv("SOURCES_JSON_FILE", "sources.json"),
		SourcesTxtURL:        os.Getenv("SOURCES_TXT_URL"),
		SheetCSVURL:          os.Getenv("SHEET_CSV_URL"),
		StateBackend:         strings.ToLower(getEnv("STATE_BACKEND", StateBackendFile)),
		StateFile:            getEnv("STATE_FILE", "state.json"),
		SeedOnFirstRun:       getBool("SEED_ON_FIRST_RUN", true),
		RedisAddr:            getEnv("REDIS_ADDR", "localhost:6379"),
		RedisDB:              redisDB,
		RedisStateKey:        getEnv("REDIS_STATE_KEY", "giveaways:seen"),
		RedisStream:          os.Getenv("REDIS_STREAM"),
		RedisStreamMaxLength: streamMaxLength,
		MemcacheAddr:         os.Getenv("MEMCACHE_ADDR"),
		SourceCooldown:       time.Duration(cooldown) * time.Second,
		MaxChildPages:        maxChildPages,
		RevealAttempts:       revealAttempts,
		UserAgent:            getEnv("USER_AGENT", "Mozilla/5.0 GiveawayRelay"),
		ChromePath:           os.Getenv("CHROME_PATH"),
		Headless:             getBool("HEADLESS", true),
		Environment:          getEnv("RELAY_ENVIRONMENT", "development"),
	}
}

// Validate checks the configuration. Every error it returns is fatal.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.WebhookURL) == "" {
		return relayerrors.NewConfiguration("DISCORD_WEBHOOK_URL is required", nil)
	}
	if c.Keywords != "" {
		if _, err := regexp.Compile("(?i)" + c.Keywords); err != nil {
			return relayerrors.NewConfiguration("KEYWORDS is not a valid regular expression", err)
		}
	}
	switch c.StateBackend {
	case StateBackendFile, StateBackendRedis:
	default:
		return relayerrors.NewConfiguration(fmt.Sprintf("unknown STATE_BACKEND %q", c.StateBackend), nil)
	}
	if c.MaxChildPages < 0 {
		return relayerrors.NewConfiguration("MAX_CHILD_PAGES must not be negative", nil)
	}
	if c.RevealAttempts < 0 {
		return relayerrors.NewConfiguration("REVEAL_ATTEMPTS must not be negative", nil)
	}
	return nil
}

// KeywordPattern returns the case-insensitive keyword filter, or nil when
// no filter is configured. Call only after Validate.
func (c *Config) KeywordPattern() *regexp.Regexp {
	if c.Keywords == "" {
		return nil
	}
	return regexp.MustCompile("(?i)" + c.Keywords)
}

// MentionContent returns the role mention token, or "" when no role is set.
func (c *Config) MentionContent() string {
	if c.MentionRoleID == "" {
		return ""
	}
	return "<@&" + c.MentionRoleID + ">"
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getBool(key string, defaultValue bool) bool {
	value, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return value
}

// getInt parses an integer variable, falling back to the default when it is
// unset or malformed
func getInt(key string, defaultValue int) int {
	value, err := strconv.Atoi(strings.TrimSpace(os.Getenv(key)))
	if err != nil {
		return defaultValue
	}
	return value
}
