package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"meal-scheduler/internal/app"
	"meal-scheduler/internal/config"
	"meal-scheduler/internal/logger"
	"meal-scheduler/internal/telegram"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	if os.Getenv("APP_ENV") != "production" {
		_ = godotenv.Load()
	}

	// 1. Load Configuration
	cfg, err := config.NewFromEnv()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zl, err := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat, Development: !cfg.IsProduction()})
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer zl.Sync()

	ctx := context.Background()

	// 2. Wire storage, catalog, analyzer and metrics
	application, cleanup, err := app.Build(ctx, cfg, zl)
	if err != nil {
		zl.Fatal("failed to initialize", zap.Error(err))
	}
	defer cleanup()

	// 3. Initialize Telegram Bot
	bot, err := telegram.NewBot(cfg, application, zl)
	if err != nil {
		zl.Fatal("failed to initialize telegram bot", zap.Error(err))
	}

	mux := http.NewServeMux()
	bot.RegisterHandlers(mux)

	// 4. Start Server with Graceful Shutdown
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		zl.Info("telegram bot server listening", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zl.Info("shutting down server")

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctxShutdown); err != nil {
		zl.Error("server forced to shutdown", zap.Error(err))
	}
	bot.Wait()

	zl.Info("server exiting")
}
