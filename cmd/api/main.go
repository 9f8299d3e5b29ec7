package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/PaulSonOfLars/gotgbot/v2"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"rewards-backend/internal/app"
	"rewards-backend/internal/config"
	"rewards-backend/internal/handlers"
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
	if err := cfg.RequireAPI(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	zl, err := logger.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer zl.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps, err := app.Build(ctx, cfg, zl, prometheus.DefaultRegisterer)
	if err != nil {
		zl.Fatal("failed to build services", zap.Error(err))
	}
	defer deps.Close()

	hub := handlers.NewWebSocketHub(zl.Named("ws"))
	go hub.Run(ctx)
	deps.Notifier.Register("websocket", hub)

	// The API only sends notifications; the bot process owns updates.
	if cfg.BotToken != "" {
		bot, err := gotgbot.NewBot(cfg.BotToken, nil)
		if err != nil {
			zl.Warn("telegram notifications disabled", zap.Error(err))
		} else {
			deps.Notifier.Register("telegram", telegram.NewNotifier(bot, deps.Chats, zl.Named("telegram")))
		}
	}

	router := app.NewRouter(deps, hub, prometheus.DefaultGatherer)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		zl.Info("server starting", zap.String("port", cfg.Port), zap.String("store", cfg.StoreDriver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Fatal("failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zl.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zl.Error("graceful shutdown failed", zap.Error(err))
	}
}
