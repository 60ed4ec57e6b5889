package main

import (
	"context"
	"os"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"pfm/internal/amqp"
	"pfm/internal/bot"
	"pfm/internal/cli"
	applog "pfm/internal/log"
	"pfm/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentBot)
	cfg := cli.LoadAndValidateConfig(logger)

	if cfg.TelegramBotToken == "" || cfg.TelegramUserID == "" {
		logger.Error("TELEGRAM_BOT_TOKEN and TELEGRAM_USER_ID are required")
		os.Exit(1)
	}

	store := cli.InitBackend(context.Background(), logger, cfg)
	defer store.Close()

	var events services.EventPublisher
	if cfg.AMQPURL != "" {
		c, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without events", applog.FieldError, err)
		} else {
			events = c
			defer c.Close()
		}
	}
	svc := cli.BuildServices(cfg, store, events, logger)

	api, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		logger.Error("Failed to create Telegram bot", applog.FieldError, err)
		os.Exit(1)
	}
	api.Debug = false

	handler := bot.NewHandler(svc.Transactions, svc.Analytics, bot.Config{
		ChatID:       cfg.TelegramChatID,
		UserID:       cfg.TelegramUserID,
		GroupID:      cfg.TelegramGroupID,
		DefaultRange: cfg.AnalyticsDefaultRange,
	}, logger)

	ctx, done := cli.GracefulShutdown(logger, 10*time.Second, nil)
	handler.Run(ctx, api)
	cli.WaitForShutdown(ctx, done)
	logger.Info("Bot stopped")
}
