package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"pfm/internal/amqp"
	"pfm/internal/cache"
	"pfm/internal/cli"
	apphttp "pfm/internal/http"
	applog "pfm/internal/log"
	"pfm/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger)

	store := cli.InitBackend(context.Background(), logger, cfg)
	defer store.Close()

	// Events are optional: without a broker records are still stored.
	var events services.EventPublisher
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		c, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without events", applog.FieldError, err)
		} else {
			amqpClient, events = c, c
			defer amqpClient.Close()
		}
	} else {
		logger.Info("AMQP disabled - spreadsheet export will not receive events")
	}

	svc := cli.BuildServices(cfg, store, events, logger)

	caches := cache.NewManager(logger)
	caches.Register(svc.Groups.MembershipCache())
	caches.StartCleanup(5 * time.Minute)

	srv := apphttp.NewServer(apphttp.Config{
		Addr:               ":" + cfg.Port,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
	}, apphttp.Services{
		Transactions: svc.Transactions,
		Analytics:    svc.Analytics,
		Groups:       svc.Groups,
		Store:        store,
	}, logger)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		caches.Stop()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", applog.FieldError, err)
		}
	})

	logger.Info("Starting pfm server", "port", cfg.Port, "backend", cfg.DataBackend)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", applog.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
