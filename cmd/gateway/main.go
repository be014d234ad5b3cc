package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/vireoai/convo-gateway/config"
	"github.com/vireoai/convo-gateway/internal/gateway"
	"github.com/vireoai/convo-gateway/internal/history"
	"github.com/vireoai/convo-gateway/internal/metrics"
	"github.com/vireoai/convo-gateway/internal/pricing"
	"github.com/vireoai/convo-gateway/internal/profile"
	"github.com/vireoai/convo-gateway/internal/provider"
	"github.com/vireoai/convo-gateway/internal/quota"
	"github.com/vireoai/convo-gateway/internal/recorder"
	"github.com/vireoai/convo-gateway/internal/routing"
	"github.com/vireoai/convo-gateway/internal/seeder"
	"github.com/vireoai/convo-gateway/internal/telemetry"
	"github.com/vireoai/convo-gateway/internal/usage"
	"github.com/vireoai/convo-gateway/pkg/ratelimit"
)

func main() {
	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := newLogger(cfg.Env)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync()

	// 2. Init telemetry
	shutdownTracer, err := telemetry.InitTracer("convo-gateway", cfg)
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdownTracer()

	ctx := context.Background()

	// 3. Stores: Postgres when configured, in-memory for local development
	var (
		quotaStore   quota.Store
		profileStore profile.Store
		historyStore history.Store
		usageStore   usage.Store
		memSubs      *quota.MemoryStore
	)
	if cfg.PostgresDSN != "" {
		pool, err := pgxpool.New(ctx, cfg.PostgresDSN)
		if err != nil {
			logger.Fatal("failed to connect postgres", zap.Error(err))
		}
		defer pool.Close()
		if err := pool.Ping(ctx); err != nil {
			logger.Fatal("failed to ping postgres", zap.Error(err))
		}
		logger.Info("PostgreSQL connected")

		quotaStore = quota.NewPostgresStore(pool)
		profileStore = profile.NewPostgresStore(pool)
		historyStore = history.NewPostgresStore(pool)
		usageStore = usage.NewPostgresStore(pool)
	} else {
		logger.Warn("POSTGRES_DSN not set, using in-memory stores (development only)")
		memSubs = quota.NewMemoryStore()
		quotaStore = memSubs
		profileStore = profile.NewMemoryStore()
		historyStore = history.NewMemoryStore()
		usageStore = usage.NewMemoryStore()
	}

	// 4. Redis: profile cache + burst limiter, both optional
	var limiter *ratelimit.Limiter
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Fatal("failed to ping redis", zap.Error(err))
		}
		logger.Info("Redis connected")

		profileStore = profile.NewCachedStore(profileStore, rdb, logger)
		limiter = ratelimit.NewLimiter(rdb, cfg.BurstLimitRPM)
	} else {
		logger.Warn("REDIS_ADDR not set, running without profile cache and burst limiter")
	}

	// 5. Model router: one provider client per credential pool, built up
	// front so a missing key fails the process, not a request
	var clientOpts []provider.Option
	if cfg.ProviderBaseURL != "" {
		clientOpts = append(clientOpts, provider.WithBaseURL(cfg.ProviderBaseURL))
	}
	router, err := routing.NewRouter(routing.Credentials{
		Workshop: cfg.WorkshopAPIKey,
		Basic:    cfg.BasicAPIKey,
		Premium:  cfg.PremiumAPIKey,
	}, clientOpts...)
	if err != nil {
		logger.Fatal("failed to init model router", zap.Error(err))
	}

	// 6. Quota gate, pricing, background writer
	gate := quota.NewGate(quotaStore, cfg.DailyFreeLimit)
	prices := pricing.DefaultTable()
	rec := recorder.New(usageStore, historyStore, logger)

	// 7. Metrics and handler
	registry := prometheus.NewRegistry()
	m := metrics.New(registry)
	tracer := otel.GetTracerProvider().Tracer("convo-gateway")
	handler := gateway.NewHandler(gate, profileStore, router, prices, rec, usageStore, limiter, m, tracer, logger, cfg.FallbackMessage)

	// 8. Seed demo tenants if RUN_SEED=true (in-memory mode only)
	if os.Getenv("RUN_SEED") == "true" && memSubs != nil {
		seeder.SeedTestTenants(ctx, memSubs, profileStore)
	}

	// 9. Init Chi router
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok","service":"convo-gateway"}`))
	})
	r.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	r.Post("/api/chat", handler.HandleChat)
	r.Get("/api/usage", handler.HandleUsage)

	// 10. Graceful shutdown
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("convo-gateway starting", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("shutting down gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("forced shutdown", zap.Error(err))
	}
	if err := rec.Close(shutdownCtx); err != nil {
		logger.Warn("recorder did not drain in time", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger(env string) (*zap.Logger, error) {
	if env == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}
