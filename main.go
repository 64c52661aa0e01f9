package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sjsage522/giveawayrelay/config"
	"sjsage522/giveawayrelay/internal"
	"sjsage522/giveawayrelay/internal/browser"
	"sjsage522/giveawayrelay/internal/crawler"
	"sjsage522/giveawayrelay/logger"
	"sjsage522/giveawayrelay/services/cache"
	"sjsage522/giveawayrelay/services/publisher"
	"sjsage522/giveawayrelay/services/sources"
	"sjsage522/giveawayrelay/services/state"
	"sjsage522/giveawayrelay/services/worker"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

const (
	metaNavigationTimeout = 45 * time.Second
	metaIdleTimeout       = 8 * time.Second
	pingTimeout           = 5 * time.Second
)

func main() {
	// Load environment variables
	godotenv.Load()

	// Initialize logger first
	logger.Init()
	log := logger.Default

	// Load and validate configuration
	cfg := config.LoadConfig()
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	os.Exit(run(cfg))
}

func run(cfg *config.Config) int {
	runID := uuid.NewString()
	log := logger.ForWorker().WithStr("run_id", runID)

	log.Info().
		Str("environment", cfg.Environment).
		Str("state_backend", cfg.StateBackend).
		Bool("seed_on_first_run", cfg.SeedOnFirstRun).
		Bool("keywords", cfg.Keywords != "").
		Msg("Starting giveaway relay")

	// Stop crawling on SIGINT/SIGTERM; the state is still saved
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	chrome, err := browser.NewChrome(ctx, browser.ChromeOptions{
		UserAgent: cfg.UserAgent,
		ExecPath:  cfg.ChromePath,
		Headless:  cfg.Headless,
	})
	if err != nil {
		log.Error().Err(err).Msg("Failed to start browser")
		return 1
	}
	defer chrome.Close()

	services, err := initializeServices(ctx, cfg, chrome, runID)
	if err != nil {
		log.Error().Err(err).Msg("Failed to initialize services")
		return 1
	}
	defer services.Cleanup()

	w := worker.NewWorker(services.Dependencies, workerOptions(cfg), log)
	summary, err := w.Run(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Run failed")
		return 1
	}

	log.Info().Int("published", summary.Published).Msg("Done")
	return 0
}

// workerOptions maps the configuration onto the run options
func workerOptions(cfg *config.Config) worker.Options {
	crawl := crawler.DefaultOptions()
	crawl.MaxChildPages = cfg.MaxChildPages
	crawl.RevealAttempts = cfg.RevealAttempts

	return worker.Options{
		SeedOnFirstRun:  cfg.SeedOnFirstRun,
		Keywords:        cfg.KeywordPattern(),
		NotifyInterval:  cfg.NotifyInterval,
		Crawl:           crawl,
		MetaNavTimeout:  metaNavigationTimeout,
		MetaIdleTimeout: metaIdleTimeout,
	}
}

// Services holds all the initialized services
type Services struct {
	internal.Dependencies
	closers []func() error
}

// Cleanup cleans up all services
func (s *Services) Cleanup() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

// initializeServices initializes all required services
func initializeServices(ctx context.Context, cfg *config.Config, b browser.Browser, runID string) (*Services, error) {
	services := &Services{}
	services.Browser = b

	// Source feed
	loader := sources.NewLoader(logger.ForSources().WithStr("run_id", runID))
	loader.LocalTextPath = cfg.SourcesFile
	loader.RemoteTextURL = cfg.SourcesTxtURL
	loader.SheetCSVURL = cfg.SheetCSVURL
	loader.LocalJSONPath = cfg.SourcesJSONFile
	loader.UserAgent = cfg.UserAgent
	services.Sources = loader

	// Seen state
	stateLog := logger.ForState().WithStr("run_id", runID)
	switch cfg.StateBackend {
	case config.StateBackendRedis:
		store := state.NewRedisStore(cfg.RedisAddr, cfg.RedisDB, cfg.RedisStateKey, stateLog)
		services.closers = append(services.closers, store.Close)
		pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
		_, err := store.Load(pingCtx)
		cancel()
		if err != nil {
			services.Cleanup()
			return nil, err
		}
		services.State = store
		logger.Info("Using Redis state at %s (DB: %d, Key: %s)", cfg.RedisAddr, cfg.RedisDB, cfg.RedisStateKey)
	default:
		services.State = state.NewFileStore(cfg.StateFile, stateLog)
		logger.Info("Using state file %s", cfg.StateFile)
	}

	// Publishers
	var pub publisher.Publisher = publisher.NewWebhookPublisher(cfg.WebhookURL, cfg.WebhookUsername, cfg.MentionContent())
	if cfg.RedisStream != "" {
		stream := publisher.NewRedisPublisher(cfg.RedisAddr, cfg.RedisDB, cfg.RedisStream, cfg.RedisStreamMaxLength)
		pub = publisher.Fanout{pub, stream}
		logger.Info("Mirroring notifications to Redis at %s (DB: %d, Stream: %s)", cfg.RedisAddr, cfg.RedisDB, cfg.RedisStream)
	}
	services.Publisher = pub
	services.closers = append(services.closers, pub.Close)

	// Source cooldown
	if cfg.MemcacheAddr != "" && cfg.SourceCooldown > 0 {
		mc := cache.NewMemcacheService(cfg.MemcacheAddr)
		if err := mc.Ping(); err != nil {
			logger.ForCache().Warn().Err(err).Str("addr", cfg.MemcacheAddr).Msg("Memcache unavailable, source cooldown disabled")
		} else {
			services.Cooldown = cache.NewCooldown(mc, cfg.SourceCooldown, logger.ForCache().WithStr("run_id", runID))
			logger.Info("Connected to Memcache at %s (cooldown: %s)", cfg.MemcacheAddr, cfg.SourceCooldown)
		}
	}

	return services, nil
}
