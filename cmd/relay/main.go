package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/halcyon-labs/prompt-relay/internal/config"
	"github.com/halcyon-labs/prompt-relay/internal/gateway"
	"github.com/halcyon-labs/prompt-relay/internal/origin"
	"github.com/halcyon-labs/prompt-relay/internal/provider"
	"github.com/halcyon-labs/prompt-relay/internal/ratelimit"
	"github.com/halcyon-labs/prompt-relay/internal/telemetry"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

var version = "dev"

func main() {
	configDir := flag.String("config", "configs", "path to configuration directory")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Load configuration
	loader := config.NewLoader(*configDir, logger)
	if err := loader.Load(); err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	if err := loader.Watch(); err != nil {
		logger.Warn("failed to start config watcher", "error", err)
	}

	cfg := loader.Config()
	mode := cfg.Mode

	if lvl := parseLogLevel(cfg.Telemetry.LogLevel); lvl != slog.LevelInfo {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
		slog.SetDefault(logger)
	}

	// Build the rate limiter: Redis when configured, in-process otherwise.
	ceiling := cfg.RateLimit.MaxFor(mode)
	var limiter ratelimit.Limiter = ratelimit.NewMemoryLimiter(ceiling, cfg.RateLimit.Window)
	if len(cfg.Redis.Addresses) > 0 && cfg.Redis.Addresses[0] != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addresses[0],
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		})
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			logger.Warn("redis not reachable, falling back to in-memory rate limiting", "error", err)
		} else {
			limiter = ratelimit.NewRedisLimiter(rdb, ceiling, cfg.RateLimit.Window)
			logger.Info("redis connected", "addr", cfg.Redis.Addresses[0])
		}
	}
	logger.Info("rate limiter configured",
		"ceiling", ceiling,
		"window", cfg.RateLimit.Window.String(),
	)

	// Build the provider. A missing credential is a startup-time decision:
	// production refuses to run, development swaps in the mock.
	provCfg := loader.Providers().Provider
	var prov provider.Provider
	if provCfg.APIKey == "" {
		if mode.IsProduction() {
			logger.Error("no provider api key configured; refusing to start in production")
			os.Exit(1)
		}
		logger.Warn("no provider api key configured, running with mock provider", "mode", mode)
		prov = provider.NewMock()
	} else {
		var err error
		prov, err = provider.Build(provCfg)
		if err != nil {
			logger.Error("failed to build provider", "error", err)
			os.Exit(1)
		}
		logger.Info("provider configured", "type", prov.Name(), "model", provCfg.Model)
	}

	// Origin policy, swapped in place on config reload
	policy := origin.NewPolicy(cfg.CORS.OriginsFor(mode), cfg.CORS.AllowMethods, cfg.CORS.AllowHeaders, cfg.CORS.MaxAge)
	loader.OnReload(func() {
		c := loader.Config()
		policy.Replace(c.CORS.OriginsFor(mode), c.CORS.AllowMethods, c.CORS.AllowHeaders, c.CORS.MaxAge)
		logger.Info("origin policy reloaded", "origins", c.CORS.OriginsFor(mode))
	})

	metrics := telemetry.NewMetrics()
	handler := gateway.NewHandler(prov, policy, loader.Config, metrics, provCfg.Timeout, version)

	// Router setup
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestIDMiddleware)
	r.Use(origin.Middleware(policy, mode.IsDevelopment()))

	r.Get("/", handler.Banner)
	r.Get("/health", handler.Health)
	r.Get("/test-cors", handler.TestCORS)

	// Rate limiting applies to the completion endpoint only
	r.Group(func(r chi.Router) {
		r.Use(ratelimit.Middleware(limiter, metrics))
		r.Post("/askAi", handler.AskAI)
	})

	r.NotFound(handler.NotFound)
	r.MethodNotAllowed(handler.MethodNotAllowed)

	// Metrics endpoint on its own port
	if cfg.Telemetry.MetricsPort > 0 {
		metricsMux := http.NewServeMux()
		metricsMux.Handle("/metrics", promhttp.Handler())
		metricsAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Telemetry.MetricsPort)
		go func() {
			logger.Info("metrics server starting", "addr", metricsAddr)
			if err := http.ListenAndServe(metricsAddr, metricsMux); err != nil && err != http.ErrServerClosed {
				logger.Warn("metrics server stopped", "error", err)
			}
		}()
	}

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Graceful shutdown
	errCh := make(chan error, 1)
	go func() {
		logger.Info("relay starting", "addr", addr, "version", version, "mode", mode)
		errCh <- srv.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		logger.Info("received shutdown signal", "signal", sig)
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulShutdown)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
	logger.Info("relay stopped")
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get("X-Request-ID")
		if reqID == "" {
			reqID = generateRequestID()
		}
		w.Header().Set("X-Request-ID", reqID)
		ctx := context.WithValue(r.Context(), requestIDKey, reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type contextKey string

const requestIDKey contextKey = "request_id"

func generateRequestID() string {
	now := time.Now()
	b := make([]byte, 8)
	rand.Read(b)
	return fmt.Sprintf("req_%d_%s", now.UnixMilli(), hex.EncodeToString(b))
}
