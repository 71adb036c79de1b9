package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"NewsflashAnalyzer/internal/app"
	"NewsflashAnalyzer/internal/config"
	"NewsflashAnalyzer/internal/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logging.New("error").Error("configuration load failed", "error", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Logging.Level)

	application, err := app.New(cfg, logger)
	if err != nil {
		logger.Error("application setup failed", "error", err)
		os.Exit(1)
	}

	if err := application.Run(ctx); err != nil {
		logger.Error("application stopped", "error", err)
		os.Exit(1)
	}
}
