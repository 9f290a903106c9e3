package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/maildash/assistant-gateway/internal/api"
	"github.com/maildash/assistant-gateway/internal/cache"
	"github.com/maildash/assistant-gateway/internal/circuitbreaker"
	"github.com/maildash/assistant-gateway/internal/config"
	"github.com/maildash/assistant-gateway/internal/cost"
	"github.com/maildash/assistant-gateway/internal/dispatch"
	"github.com/maildash/assistant-gateway/internal/httputil"
	"github.com/maildash/assistant-gateway/internal/notifications"
	"github.com/maildash/assistant-gateway/internal/prompt"
	"github.com/maildash/assistant-gateway/internal/provider/anthropic"
	"github.com/maildash/assistant-gateway/internal/provider/azureopenai"
	"github.com/maildash/assistant-gateway/internal/provider/bedrock"
	"github.com/maildash/assistant-gateway/internal/provider/demo"
	"github.com/maildash/assistant-gateway/internal/provider/openai"
	"github.com/maildash/assistant-gateway/internal/queue"
	"github.com/maildash/assistant-gateway/internal/ratelimit"
	"github.com/maildash/assistant-gateway/internal/repository"
	"github.com/maildash/assistant-gateway/internal/secrets"
	"github.com/maildash/assistant-gateway/internal/telemetry"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	setupLogger(cfg.LogLevel)

	slog.Info("starting assistant gateway",
		"addr", cfg.Addr,
		"environment", cfg.Environment,
		"provider", cfg.Provider,
		"version", "1.0.0")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.AWSRegion != "" {
		store, err := secrets.NewAWSSecretsManager(ctx, cfg.AWSRegion)
		if err != nil {
			slog.Error("failed to connect to secrets manager", "error", err)
			os.Exit(1)
		}
		if err := secrets.Resolve(ctx, cfg, store); err != nil {
			slog.Error("failed to resolve provider credentials", "error", err)
			os.Exit(1)
		}
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		for _, e := range errs {
			slog.Warn("configuration problem", "error", e)
		}
		if cfg.Production() {
			slog.Error("refusing to start with invalid configuration in production")
			os.Exit(1)
		}
	}

	shutdownTelemetry, err := telemetry.Init(ctx, "assistant-gateway", cfg.OTLPEndpoint)
	if err != nil {
		slog.Error("failed to initialize tracing", "error", err)
		os.Exit(1)
	}

	var limiter ratelimit.Limiter
	if cfg.RateLimit.Enabled {
		if cfg.RedisURL != "" {
			redisLimiter, err := ratelimit.NewRedis(cfg.RedisURL, cfg.RateLimit.MaxRequestsPerMinute, cfg.RateLimit.MaxRequestsPerHour)
			if err != nil {
				slog.Error("failed to connect to redis for rate limiting", "error", err)
				os.Exit(1)
			}
			defer redisLimiter.Close()
			limiter = redisLimiter
			slog.Info("using redis rate limiter")
		} else {
			memLimiter := ratelimit.New(cfg.RateLimit.MaxRequestsPerMinute, cfg.RateLimit.MaxRequestsPerHour)
			defer memLimiter.Stop()
			limiter = memLimiter
			slog.Info("using in-memory rate limiter",
				"perMinute", cfg.RateLimit.MaxRequestsPerMinute,
				"perHour", cfg.RateLimit.MaxRequestsPerHour)
		}
	}

	var responseCache cache.Cache
	if cfg.Caching.Enabled {
		if cfg.RedisURL != "" {
			redisCache, err := cache.NewRedisCache(cfg.RedisURL)
			if err != nil {
				slog.Warn("failed to connect to redis for cache, using in-memory", "error", err)
			} else {
				defer redisCache.Close()
				responseCache = redisCache
				slog.Info("using redis response cache")
			}
		}
		if responseCache == nil {
			memCache := cache.NewInMemoryCache()
			defer memCache.Stop()
			responseCache = memCache
			slog.Info("using in-memory response cache", "ttl", cfg.Caching.TTL)
		}
	}

	var notifier notifications.Notifier
	if cfg.SNSTopicArn != "" && cfg.AWSRegion != "" {
		notifier, err = notifications.NewSNSNotifier(ctx, cfg.AWSRegion, cfg.SNSTopicArn)
		if err != nil {
			slog.Error("failed to connect to sns", "error", err)
			os.Exit(1)
		}
		slog.Info("publishing provider events to sns", "topic", cfg.SNSTopicArn)
	} else {
		notifier = notifications.NewInMemoryNotifier()
	}

	prompts := prompt.NewLoader(cfg.Context.FilePath, cfg.Context.MaxLength)
	breakers := circuitbreaker.NewManager(circuitbreaker.DefaultConfig())
	dispatcher := dispatch.New(cfg, prompts, breakers, notifier)

	httpClient := httputil.DefaultClient()
	for kind, desc := range cfg.Providers {
		switch kind {
		case "openai":
			dispatcher.Register(openai.New(desc, httpClient))
		case "azure-openai":
			dispatcher.Register(azureopenai.New(desc, httpClient))
		case "anthropic":
			dispatcher.Register(anthropic.New(desc, httpClient))
		case "bedrock":
			if desc.Region == "" {
				continue
			}
			adapter, err := bedrock.New(ctx, desc)
			if err != nil {
				slog.Warn("failed to initialize bedrock adapter", "error", err)
				continue
			}
			dispatcher.Register(adapter)
		}
		slog.Info("registered provider", "provider", kind, "configured", desc.Configured())
	}
	dispatcher.Register(demo.New())

	var usageQueue queue.Queue
	if cfg.SQSQueueURL != "" && cfg.AWSRegion != "" {
		usageQueue, err = queue.NewSQSQueue(ctx, cfg.AWSRegion, cfg.SQSQueueURL)
		if err != nil {
			slog.Error("failed to connect to sqs", "error", err)
			os.Exit(1)
		}
		slog.Info("publishing usage records to sqs", "queue", cfg.SQSQueueURL)
	} else {
		usageQueue = queue.NewInMemoryQueue()
	}

	var usageRepo repository.UsageRepository
	if cfg.DatabaseURL != "" {
		pgRepo, err := repository.NewPostgresUsageRepository(cfg.DatabaseURL)
		if err != nil {
			slog.Error("failed to connect to postgres", "error", err)
			os.Exit(1)
		}
		defer pgRepo.Close()
		usageRepo = pgRepo
		slog.Info("persisting usage records to postgres")
	} else {
		usageRepo = repository.NewInMemoryUsageRepository()
		slog.Info("persisting usage records in memory")
	}

	worker := queue.NewWorker(usageQueue, usageRepo, 5*time.Second)
	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		worker.Run(ctx)
	}()

	handler := api.NewHandler(api.HandlerConfig{
		Config:     cfg,
		Dispatcher: dispatcher,
		Limiter:    limiter,
		Prompts:    prompts,
		Cache:      responseCache,
		Queue:      usageQueue,
		Calculator: cost.NewCalculator(),
		UsageRepo:  usageRepo,
	})

	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.Info("server listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}

	cancel()
	select {
	case <-workerDone:
	case <-shutdownCtx.Done():
		slog.Warn("usage worker did not drain before deadline")
	}

	if err := shutdownTelemetry(shutdownCtx); err != nil {
		slog.Error("failed to flush traces", "error", err)
	}

	slog.Info("server stopped")
}

func setupLogger(level string) {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})
	slog.SetDefault(slog.New(handler))
}
