package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/cwal8202/chill-tuna-web/cmd/mainconfig"
	"github.com/cwal8202/chill-tuna-web/internal/api/router"
	"github.com/cwal8202/chill-tuna-web/internal/app/bootstrap"
	appconfig "github.com/cwal8202/chill-tuna-web/internal/config"
	"github.com/cwal8202/chill-tuna-web/internal/conversation"
	"github.com/cwal8202/chill-tuna-web/internal/observability/metrics"
	"github.com/cwal8202/chill-tuna-web/internal/persona"
	"github.com/cwal8202/chill-tuna-web/internal/webchat"
	"github.com/cwal8202/chill-tuna-web/pkg/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// writeTimeout leaves room for a full turn: scope, snapshot and a 60s generation.
const writeTimeout = 90 * time.Second

func main() {
	// Load configuration
	cfg := appconfig.Load()

	// Initialize logger
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting chill-tuna chat server",
		"env", cfg.Env,
		"port", cfg.Port,
		"llm_provider", cfg.LLMProvider,
	)
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		logger.Error("failed to load AWS config", "error", err)
		os.Exit(1)
	}

	stores, err := bootstrap.BuildStores(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialise stores", "error", err)
		os.Exit(1)
	}
	defer stores.Close()

	loader := persona.NewSeedLoader(s3.NewFromConfig(awsCfg))
	if _, err := bootstrap.SeedPersonasIfEmpty(ctx, stores.Personas, loader, cfg.PersonaSeedSource, logger); err != nil {
		logger.Warn("persona seed skipped", "error", err)
	}

	llmClient, closeLLM, err := bootstrap.BuildLLMClient(ctx, cfg, awsCfg, logger)
	if err != nil {
		logger.Error("failed to build LLM client", "error", err)
		os.Exit(1)
	}
	defer closeLLM()

	metricsHandler, turnMetrics := setupMetrics()
	orchestrator := bootstrap.BuildOrchestrator(cfg, stores, llmClient, turnMetrics, logger)
	handler := newHandler(cfg, stores, orchestrator, metricsHandler, logger)

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: writeTimeout,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		return
	}

	logger.Info("server stopped")
	fmt.Println("Server exited gracefully")
}

// setupMetrics builds a dedicated registry carrying runtime collectors, the
// LLM call metrics and the turn pipeline metrics.
func setupMetrics() (http.Handler, *metrics.TurnMetrics) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	conversation.RegisterMetrics(reg)
	turnMetrics := metrics.NewTurnMetrics(reg)
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), turnMetrics
}

func newHandler(cfg *appconfig.Config, stores *bootstrap.Stores, turns webchat.TurnProcessor, metricsHandler http.Handler, logger *logging.Logger) http.Handler {
	chatService := webchat.NewChatService(turns, stores.Chat, logger)
	chatHandler := webchat.NewHandler(chatService, stores.Personas, logger)

	return router.New(&router.Config{
		Logger:             logger,
		ChatHandler:        chatHandler,
		MetricsHandler:     metricsHandler,
		HealthChecks:       stores.HealthChecks(),
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimitRPS:       cfg.RateLimitRPS,
		RateLimitBurst:     cfg.RateLimitBurst,
	})
}
