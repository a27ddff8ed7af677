package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/stash-sh/stash/internal/config"
	"github.com/stash-sh/stash/internal/httpserver"
	"github.com/stash-sh/stash/internal/httpserver/deps"
	"github.com/stash-sh/stash/internal/ingest"
	"github.com/stash-sh/stash/internal/logger"
	"github.com/stash-sh/stash/internal/metadata"
	"github.com/stash-sh/stash/internal/queue"
	"github.com/stash-sh/stash/internal/redis"
	"github.com/stash-sh/stash/internal/scheduler"
	"github.com/stash-sh/stash/internal/sources/channels"
	"github.com/stash-sh/stash/internal/store"
	"github.com/stash-sh/stash/internal/store/githubfile"
	"github.com/stash-sh/stash/internal/telegram"
	"github.com/stash-sh/stash/internal/version"
)

type App struct {
	cfg         *config.Config
	logger      logger.Logger
	server      *httpserver.Server
	redisClient *goredis.Client
	sweeper     *scheduler.Sweeper
}

func New() *App {
	cfg := config.Load()

	loggerClient := logger.New(cfg.LogLevel, cfg.PrettyLog)

	// Initialize Redis early - fail fast if unavailable
	loggerClient.Infof("Connecting to Redis at %s", cfg.RedisAddr)
	redisClient, err := redis.New(redis.ConnectOptions{
		Addr:           cfg.RedisAddr,
		User:           cfg.RedisUser,
		Password:       cfg.RedisPassword,
		RedisDB:        cfg.RedisDB,
		DialTimeout:    cfg.RedisDT,
		ReadTimeout:    cfg.RedisRT,
		WriteTimeout:   cfg.RedisWT,
		PoolSize:       cfg.RedisPoolSize,
		ConnectTimeout: cfg.RedisConnectTimeout,
		RetryInterval:  cfg.RedisRetryInterval,
		MaxWait:        cfg.RedisMaxWait,
		PingTimeout:    cfg.RedisPingTimeout,
		WarnThreshold:  cfg.RedisWarnThreshold,
	}, loggerClient)
	if err != nil {
		loggerClient.Errorf("Failed to connect to Redis: %v", err)
		os.Exit(1)
	}
	loggerClient.Info("Redis initialized successfully")

	retryQueue := queue.New(redisClient)

	// Versioned append log over the configured blob backend
	blob := newBlob(cfg, loggerClient)
	appendLog := store.NewLog(blob, loggerClient)
	loggerClient.Info("append log initialized",
		logger.String("backend", cfg.StoreBackend))

	resolver := metadata.New(loggerClient, cfg.ResolveTimeout)

	// Outbound replies (optional)
	var notifier *telegram.Client
	if cfg.TelegramToken != "" {
		notifier = telegram.NewClient(cfg.TelegramToken, "", loggerClient)
		loggerClient.Info("telegram replies enabled")
	} else {
		loggerClient.Info("telegram token not configured, replies disabled")
	}

	// Channel registry (optional)
	var registry *channels.Registry
	if cfg.ChannelFile != "" {
		channelCfg, err := channels.NewLoader(cfg.ChannelFile).Load()
		if err != nil {
			loggerClient.Errorf("Failed to load channel registry: %v", err)
			os.Exit(1)
		}
		registry, err = channels.NewRegistry(channelCfg)
		if err != nil {
			loggerClient.Errorf("Failed to build channel registry: %v", err)
			os.Exit(1)
		}
		loggerClient.Info("channel registry loaded",
			logger.Int("channels", registry.Count()))
	} else {
		loggerClient.Info("channel file not configured, accepting all chats")
	}

	ingestService := ingest.New(resolver, appendLog, retryQueue, loggerClient)

	// Create manual sweep trigger channel
	sweepTrigger := make(chan struct{}, 1)

	sweeper := scheduler.NewSweeper(
		retryQueue,
		appendLog,
		loggerClient,
		cfg.SweepInterval,
		cfg.AlertOnDrop,
		sweepTrigger,
	)

	// Dependencies passed to routes (extend as needed).
	d := deps.Deps{
		Logger:          loggerClient,
		StartTime:       time.Now(),
		Version:         version.Version,
		Commit:          version.Commit,
		BuildDate:       version.BuildDate,
		GoVersion:       version.GoVersion,
		WebhookSecret:   cfg.WebhookSecret,
		Ingest:          ingestService,
		Channels:        registry,
		Notifier:        notifier,
		RedisClient:     redisClient,
		Queue:           retryQueue,
		StoreBackend:    cfg.StoreBackend,
		SweepTrigger:    sweepTrigger,
		AllowedHosts:    cfg.AllowedHosts,
		AllowedCIDRS:    cfg.AllowedCIDRS,
		TrustProxy:      cfg.TrustProxy,
		RateLimitBurst:  cfg.RateLimitBurst,
		RateLimitRefill: cfg.RateLimitRefill,
	}

	server := httpserver.New(cfg, loggerClient, d)

	return &App{
		cfg:         cfg,
		logger:      loggerClient,
		server:      server,
		redisClient: redisClient,
		sweeper:     sweeper,
	}
}

// newBlob picks the conditional-write backend. The memory backend is
// for dev and tests only: it forgets everything on restart.
func newBlob(cfg *config.Config, loggerClient logger.Logger) store.Blob {
	switch cfg.StoreBackend {
	case "memory":
		return store.NewMemBlob()
	default:
		return githubfile.New(githubfile.Options{
			BaseURL: cfg.GitHubAPI,
			Token:   cfg.GitHubToken,
			Owner:   cfg.GitHubOwner,
			Repo:    cfg.GitHubRepo,
			Path:    cfg.GitHubPath,
			Branch:  cfg.GitHubBranch,
			Timeout: cfg.StoreTimeout,
		}, loggerClient)
	}
}

func (a *App) Run() error {
	a.logger.Infof("🚀 Starting Stash v%s on %s", version.Version, a.cfg.ListenPort)
	a.logger.Infof("Stash %s (commit=%s, built=%s, go=%s)",
		version.Version, version.Commit, version.BuildDate, version.GoVersion)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Start retry-queue sweeper (sweeps once now, then periodically)
	if err := a.sweeper.Start(ctx); err != nil {
		return fmt.Errorf("failed to start sweeper: %w", err)
	}
	a.logger.Info("retry sweeper started",
		logger.Duration("interval", a.cfg.SweepInterval))

	errCh := make(chan error, 1)
	go func() {
		if err := a.server.Start(); err != nil {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("⏳ Shutting down gracefully...")
	case err := <-errCh:
		return err
	}

	a.sweeper.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := a.server.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("failed to stop server: %w", err)
	}

	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.logger.Warnf("failed to close redis: %v", err)
		} else {
			a.logger.Info("✅ Redis closed cleanly")
		}
	}

	a.logger.Info("✅ Stash stopped cleanly")
	return nil
}
