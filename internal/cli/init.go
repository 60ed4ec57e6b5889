// Package cli provides the bootstrap shared by every command: env file,
// logger, configuration, record store, services and shutdown handling.
package cli

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"pfm/internal/backend"
	"pfm/internal/config"
	applog "pfm/internal/log"
	"pfm/internal/parser"
	"pfm/internal/services"
)

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// SetupLogger builds the process logger from LOG_LEVEL and makes it the
// slog default.
func SetupLogger(component string) *applog.Logger {
	return SetupLoggerTo(os.Stdout, component)
}

// SetupLoggerTo is SetupLogger writing to w. Commands whose stdout carries
// data log to stderr.
func SetupLoggerTo(w io.Writer, component string) *applog.Logger {
	level := applog.ParseLevel(os.Getenv("LOG_LEVEL"))
	logger := applog.New(applog.Config{
		Level:     level,
		Component: component,
		Handler:   slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}),
	})
	applog.SetDefault(logger)
	return logger
}

// LoadAndValidateConfig loads configuration and validates it.
// Returns the config or exits the process on validation failure.
func LoadAndValidateConfig(logger *applog.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", applog.FieldError, err)
		os.Exit(1)
	}
	return cfg
}

// InitBackend opens the record store selected by DATA_BACKEND.
// Exits the process on failure.
func InitBackend(ctx context.Context, logger *applog.Logger, cfg *config.Config) backend.Backend {
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", applog.FieldError, err)
		os.Exit(1)
	}
	store, err := backend.NewFactory(logger).CreateBackend(ctx, bcfg)
	if err != nil {
		logger.Error("Failed to initialize record store", applog.FieldError, err, "backend", string(bcfg.Type))
		os.Exit(1)
	}
	return store
}

// Services bundles the application services built on one record store.
type Services struct {
	Groups       *services.GroupService
	Transactions *services.TransactionService
	Analytics    *services.AnalyticsService
}

// BuildServices wires the services. events may be nil when no broker is
// configured; the parser is only wired when PARSER_BASE_URL is set.
func BuildServices(cfg *config.Config, store backend.Backend, events services.EventPublisher, logger *applog.Logger) Services {
	groups := services.NewGroupService(store, cfg.MembershipCacheTTL, logger)

	var textParser services.TextParser
	if cfg.ParserBaseURL != "" {
		textParser = parser.NewClient(cfg.ParserBaseURL, cfg.ParserTimeout)
	}

	return Services{
		Groups:       groups,
		Transactions: services.NewTransactionService(store, groups, events, textParser, logger),
		Analytics: services.NewAnalyticsService(store, groups, services.AnalyticsConfig{
			DefaultRangeDays: cfg.AnalyticsDefaultRange,
			FetchTimeout:     cfg.AnalyticsFetchTimeout,
			DemoFallback:     cfg.AnalyticsDemoFallback,
		}, logger),
	}
}

// GracefulShutdown sets up signal handling for graceful shutdown.
// Returns a context that will be cancelled on shutdown signals,
// and a channel that signals when shutdown is complete.
func GracefulShutdown(logger *applog.Logger, timeout time.Duration, cleanup func(ctx context.Context)) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()
		if cleanup != nil {
			cleanup(shutdownCtx)
		}
		if shutdownCtx.Err() != nil {
			logger.Warn("Shutdown timeout reached")
		} else {
			logger.Info("Shutdown complete")
		}
		close(done)
	}()

	return ctx, done
}

// WaitForShutdown blocks until the context is cancelled and cleanup ran.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}
