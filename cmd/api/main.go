package main

import (
	"context"
	"crypto/tls"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/medibook/medibook-platform/internal/analysis"
	"github.com/medibook/medibook-platform/internal/api/router"
	"github.com/medibook/medibook-platform/internal/appointments"
	appconfig "github.com/medibook/medibook-platform/internal/config"
	"github.com/medibook/medibook-platform/internal/doctors"
	"github.com/medibook/medibook-platform/internal/events"
	"github.com/medibook/medibook-platform/internal/observability/metrics"
	"github.com/medibook/medibook-platform/internal/patients"
	"github.com/medibook/medibook-platform/internal/payments"
	"github.com/medibook/medibook-platform/internal/users"
	"github.com/medibook/medibook-platform/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting medibook API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx := context.Background()

	// A single pool created at startup and injected everywhere.
	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		logger.Error("invalid database url", "error", err)
		os.Exit(1)
	}
	poolCfg.MaxConns = int32(cfg.DatabaseConns)
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		logger.Error("failed to create database pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		logger.Error("database unreachable", "error", err)
		os.Exit(1)
	}

	// Redis is optional; without it the order velocity check is disabled.
	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		opts := &redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		}
		if cfg.RedisTLS {
			opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		}
		redisClient = redis.NewClient(opts)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unreachable, velocity checks disabled", "error", err)
			redisClient = nil
		}
	}

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)

	patientsRepo := patients.NewPostgresRepository(pool)
	doctorsRepo := doctors.NewPostgresRepository(pool)
	ledger := appointments.NewPostgresRepository(pool)
	processedStore := events.NewPostgresProcessedStore(pool)

	booking := appointments.NewService(ledger, patientsRepo, doctorsRepo, logger)
	issuer, err := payments.NewOrderIssuer(cfg.RazorpayKeyID, cfg.RazorpayKeySecret, cfg.PaymentCurrency, booking, logger)
	if err != nil {
		logger.Error("failed to create payment order issuer", "error", err)
		os.Exit(1)
	}
	velocityCfg := payments.DefaultVelocityConfig()
	velocityCfg.MaxOrdersPerPatient = cfg.MaxOrdersPerPatient
	velocityCfg.OrderWindow = cfg.OrderWindow
	velocity := payments.NewVelocityChecker(redisClient, velocityCfg, logger)

	webhook, err := payments.NewWebhookHandler(booking, processedStore, cfg.RazorpayWebhookSecret, m, logger)
	if err != nil {
		logger.Error("failed to create razorpay webhook handler", "error", err)
		os.Exit(1)
	}

	var analysisHandler *analysis.Handler
	if cfg.GeminiAPIKey != "" {
		summarizer, err := analysis.NewGeminiSummarizer(ctx, cfg.GeminiAPIKey, cfg.GeminiModelID)
		if err != nil {
			logger.Error("failed to create summarizer", "error", err)
			os.Exit(1)
		}
		defer func() { _ = summarizer.Close() }()
		analysisHandler = analysis.NewHandler(summarizer, m, logger)
	} else {
		logger.Warn("GEMINI_API_KEY not set, report analysis disabled")
	}

	routerCfg := &router.Config{
		Logger:              logger,
		UsersHandler:        users.NewHandler(patientsRepo, doctorsRepo, logger),
		PatientsHandler:     patients.NewHandler(patientsRepo, logger),
		DoctorsHandler:      doctors.NewHandler(doctorsRepo, logger),
		AppointmentsHandler: appointments.NewHandler(booking, patientsRepo, doctorsRepo, m, logger),
		PaymentsHandler:     payments.NewHandler(issuer, booking, velocity, logger),
		RazorpayWebhook:     webhook,
		AnalysisHandler:     analysisHandler,
		MetricsHandler:      promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		CORSAllowedOrigins:  cfg.CORSAllowedOrigins,
		JWTSecret:           cfg.IdentityJWTSecret,
		RateLimitRPS:        cfg.RateLimitRPS,
		RateLimitBurst:      cfg.RateLimitBurst,
	}
	r := router.New(routerCfg)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
