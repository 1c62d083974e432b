package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	httpAdapter "github.com/voltlog/telemetry-backend/internal/adapters/primary/http"
	mw "github.com/voltlog/telemetry-backend/internal/adapters/primary/http/middleware"
	"github.com/voltlog/telemetry-backend/internal/adapters/primary/websocket"
	"github.com/voltlog/telemetry-backend/internal/adapters/secondary/postgres"
	"github.com/voltlog/telemetry-backend/internal/auth"
	"github.com/voltlog/telemetry-backend/internal/config"
	"github.com/voltlog/telemetry-backend/internal/core/services"
	"github.com/voltlog/telemetry-backend/internal/infrastructure/logging"
	"github.com/voltlog/telemetry-backend/internal/infrastructure/metrics"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// 2. Initialize Structured Logger
	logger := logging.NewLogger(logging.Config{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		Output:      os.Stdout,
		ServiceName: cfg.App.Name,
		Environment: cfg.App.Environment,
	})

	logger.Info("starting service",
		"version", cfg.App.Version,
		"environment", cfg.App.Environment,
	)

	// 3. Initialize Database Pool
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	poolConfig, err := pgxpool.ParseConfig(cfg.Database.URL)
	if err != nil {
		logger.Error("failed to parse database URL", "error", err)
		os.Exit(1)
	}

	poolConfig.MaxConns = int32(cfg.Database.MaxOpenConns)
	poolConfig.MinConns = int32(cfg.Database.MaxIdleConns)
	poolConfig.MaxConnLifetime = cfg.Database.ConnMaxLifetime
	poolConfig.MaxConnIdleTime = cfg.Database.ConnMaxIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		logger.Error("database ping failed", "error", err)
		os.Exit(1)
	}
	logger.Info("database connection established")

	// 4. Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	relayMetrics := metrics.New(registry)

	// 5. Security & Real-time Components
	tokenManager := auth.NewTokenManager(cfg.JWT.Secret, cfg.JWT.AccessTokenTTL)

	hub := websocket.NewHub(cfg.WebSocket.PingInterval, relayMetrics, logger)

	sessionStore := postgres.NewUserStore(pool)
	aggregates := postgres.NewAggregateRepository(pool)

	listener := postgres.NewChangeListener(postgres.ListenerConfig{
		ConnString:     cfg.Database.URL,
		Channel:        cfg.Feed.Channel,
		Buffer:         cfg.Feed.Buffer,
		ReconnectDelay: cfg.Feed.ReconnectDelay,
		MaxReconnect:   cfg.Feed.MaxReconnect,
	}, relayMetrics, logger)

	enricher := services.NewEnricher(aggregates, logger)
	relay := services.NewRelay(listener, enricher, hub, relayMetrics, logger)

	var workers sync.WaitGroup
	workers.Add(3)
	go func() {
		defer workers.Done()
		hub.Run(ctx)
	}()
	go func() {
		defer workers.Done()
		listener.Run(ctx)
	}()
	go func() {
		defer workers.Done()
		relay.Run(ctx)
	}()

	// 6. Rate Limiters
	var generalRateLimiter, handshakeRateLimiter *mw.RateLimiter
	if cfg.RateLimit.Enabled {
		generalRateLimiter = mw.NewRateLimiter(mw.RateLimiterConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			BurstSize:         cfg.RateLimit.BurstSize,
			CleanupInterval:   time.Minute,
			TTL:               3 * time.Minute,
		})

		handshakeRateLimiter = mw.NewRateLimiter(mw.RateLimiterConfig{
			RequestsPerSecond: cfg.RateLimit.HandshakeRPS,
			BurstSize:         cfg.RateLimit.HandshakeBurst,
			CleanupInterval:   time.Minute,
			TTL:               5 * time.Minute,
		})
	}

	// 7. Handlers (Primary Adapters)
	wsHandler := httpAdapter.NewWebSocketHandler(hub, tokenManager, sessionStore, cfg, logger)
	healthHandler := httpAdapter.NewHealthHandler(pool, cfg.App.Version)

	// 8. Setup Router
	r := chi.NewRouter()

	r.Use(mw.RequestID)
	r.Use(mw.RequestLogger(logger))
	r.Use(mw.RecoveryLogger(logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.WebSocket.AllowedOrigins,
		AllowedMethods:   []string{"GET", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
	}))

	if generalRateLimiter != nil {
		r.Use(generalRateLimiter.Middleware)
	}

	// Health check endpoints (outside /api/v1 for standard probe paths)
	r.Get("/health", healthHandler.HandleReadiness)
	r.Get("/health/live", healthHandler.HandleLiveness)
	r.Get("/health/ready", healthHandler.HandleReadiness)

	r.Method("GET", "/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	// WebSocket route (authentication is handled inside the handler)
	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			if handshakeRateLimiter != nil {
				r.Use(handshakeRateLimiter.Middleware)
			}
			r.Get("/ws", wsHandler.ServeHTTP)
		})
	})

	// 9. Start Server with Graceful Shutdown
	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info("server starting", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("shutdown signal received", "signal", sig.String())

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	// Stop the feed, relay and hub, and wait for in-flight deliveries.
	cancel()
	workers.Wait()

	logger.Info("server shutdown complete")
}
