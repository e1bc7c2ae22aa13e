package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"uigen/internal/app"
	"uigen/internal/config"
	"uigen/internal/logging"

	"go.uber.org/zap"
)

func main() {
	// Load configuration; the per-environment file is optional
	path := config.Path()
	if _, err := os.Stat(path); err != nil {
		path = ""
	}
	cfg, err := config.Load(path)
	if err != nil {
		log.Fatal("failed to load config:", err)
	}

	// Initialize logger
	logger, err := logging.NewLogger(cfg.LogLevel, cfg.Environment)
	if err != nil {
		log.Fatal("failed to initialize logger:", err)
	}
	defer logger.Sync()

	a, err := app.New(cfg, logger)
	if err != nil {
		logger.Fatal("failed to initialize", zap.Error(err))
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.Serve(ctx); err != nil {
		logger.Error("server stopped", zap.Error(err))
	}
}
