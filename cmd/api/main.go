package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nikhilbhutani/speechrelay/internal/api"
	"github.com/nikhilbhutani/speechrelay/internal/cache"
	"github.com/nikhilbhutani/speechrelay/internal/config"
	"github.com/nikhilbhutani/speechrelay/internal/speech"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)

	// Missing credentials are reported per request, not fatal at startup.
	if err := cfg.Validate(); err != nil {
		slog.Warn("speech relay not configured", "error", err)
	}

	ctx := context.Background()

	// Redis connection (optional)
	var tokens *cache.TokenStore
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()

		tokens = cache.NewTokenStore(rdb)
		if err := tokens.Ping(ctx); err != nil {
			slog.Warn("redis unavailable, tokens will not be shared", "error", err)
		}
	}

	endpoints := speech.AzureEndpoints()
	if cfg.Speech.SynthesisURL != "" {
		endpoints = speech.StaticEndpoints(cfg.Speech.SynthesisURL, cfg.Speech.TokenURLs...)
		slog.Info("using fixed speech endpoints",
			"synthesis", cfg.Speech.SynthesisURL,
			"token_candidates", len(cfg.Speech.TokenURLs),
		)
	}

	relayCfg := speech.RelayConfig{
		Credential: speech.Credential{
			SubscriptionKey: cfg.Speech.SubscriptionKey,
			Region:          cfg.Speech.Region,
		},
		Endpoints: endpoints,
		UserAgent: cfg.Speech.UserAgent,
		Timeout:   cfg.Speech.HTTPTimeout,
		TokenTTL:  cfg.Speech.TokenTTL,
		Logger:    logger,
	}
	if tokens != nil {
		relayCfg.TokenStore = tokens
	}
	relay := speech.NewRelay(relayCfg)
	slog.Info("speech relay ready",
		"region", cfg.Speech.Region,
		"configured", relay.Configured(),
		"token_reuse", tokens != nil && cfg.Speech.TokenTTL > 0,
	)

	router := api.NewRouter(cfg, relay, tokens)
	handler := router.Setup()

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.Info("starting API server", "addr", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced shutdown", "error", err)
	}
	slog.Info("server stopped")
}
