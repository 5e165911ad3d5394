package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/markdave123-py/Dossier/internal/app"
	"github.com/markdave123-py/Dossier/internal/config"
	"github.com/markdave123-py/Dossier/internal/logger"
)

func main() {
	// Handle SIGINT/SIGTERM for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg := config.LoadConfig()
	log := logger.New(cfg.LogLevel, cfg.LogFormat)

	application, err := app.NewApp(ctx, cfg, log)
	if err != nil {
		log.Error("startup failed", "error", err)
		os.Exit(1)
	}
	defer application.Close()

	log.Info("Dossier is running",
		"object_store", cfg.ObjectStore,
		"document_store", cfg.DocumentStore,
		"ocr_engine", cfg.OCREngine,
		"workers", cfg.IngestWorkers,
	)
	if err := application.Run(ctx); err != nil {
		log.Error("service stopped", "error", err)
		application.Close()
		os.Exit(1)
	}
	log.Info("shutting down...")
}
