package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/PaulSonOfLars/gotgbot/v2"
	"github.com/PaulSonOfLars/gotgbot/v2/ext"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"rewards-backend/internal/app"
	"rewards-backend/internal/config"
	"rewards-backend/internal/logger"
	"rewards-backend/internal/telegram"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.RequireBot(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	zl, err := logger.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer zl.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps, err := app.Build(ctx, cfg, zl, prometheus.NewRegistry())
	if err != nil {
		zl.Fatal("failed to build services", zap.Error(err))
	}
	defer deps.Close()

	b, err := gotgbot.NewBot(cfg.BotToken, nil)
	if err != nil {
		zl.Fatal("failed to create bot", zap.Error(err))
	}

	// Command replies carry play results; deposit notices come from the API process.
	dispatcher := ext.NewDispatcher(&ext.DispatcherOpts{
		Error: func(b *gotgbot.Bot, ctx *ext.Context, err error) ext.DispatcherAction {
			zl.Error("an error occurred while handling update", zap.Error(err))
			return ext.DispatcherActionNoop
		},
		MaxRoutines: ext.DefaultMaxRoutines,
	})
	updater := ext.NewUpdater(dispatcher, &ext.UpdaterOpts{})

	commands := telegram.NewCommands(deps.Engine, deps.Chats, deps.Limiter, cfg.PlayRateLimit, zl.Named("commands"))
	for _, h := range commands.Handlers() {
		dispatcher.AddHandler(h)
	}

	err = updater.StartPolling(b, &ext.PollingOpts{
		DropPendingUpdates:    false,
		EnableWebhookDeletion: true,
	})
	if err != nil {
		zl.Fatal("failed to start polling", zap.Error(err))
	}
	zl.Info("bot has been started", zap.String("bot_username", b.User.Username))

	<-ctx.Done()
	if err := updater.Stop(); err != nil {
		zl.Warn("failed to stop updater", zap.Error(err))
	}
}
