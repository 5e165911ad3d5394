package main

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/markdave123-py/Dossier/internal/app"
	"github.com/markdave123-py/Dossier/internal/config"
	db "github.com/markdave123-py/Dossier/internal/core/database"
	"github.com/markdave123-py/Dossier/internal/core/ingestion_engine"
	"github.com/markdave123-py/Dossier/internal/logger"
)

// deps are the collaborators commands are built from; tests replace them.
type deps struct {
	loadConfig func() *config.Config
	newRunner  func(ctx context.Context, cfg *config.Config, log *slog.Logger) (ingestion_engine.Runner, func(), error)
	bootstrap  func(ctx context.Context, dsn string, log *slog.Logger) error
}

func defaultDeps() deps {
	return deps{
		loadConfig: config.LoadConfig,
		newRunner: func(ctx context.Context, cfg *config.Config, log *slog.Logger) (ingestion_engine.Runner, func(), error) {
			a, err := app.NewApp(ctx, cfg, log)
			if err != nil {
				return nil, nil, err
			}
			return a.Coordinator, a.Close, nil
		},
		bootstrap: func(ctx context.Context, dsn string, log *slog.Logger) error {
			store, err := db.OpenPostgres(ctx, dsn, log)
			if err != nil {
				return err
			}
			return store.Close()
		},
	}
}

func newRootCmd(d deps) *cobra.Command {
	var logLevel string
	root := &cobra.Command{
		Use:          "ingestctl",
		Short:        "Operate the Dossier ingestion pipeline",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	newLogger := func() *slog.Logger { return logger.New(logLevel, "text") }
	root.AddCommand(newIngestCmd(d, newLogger), newBootstrapCmd(d, newLogger))
	return root
}
