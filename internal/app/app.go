package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/markdave123-py/Dossier/internal/config"
	"github.com/markdave123-py/Dossier/internal/core"
	"github.com/markdave123-py/Dossier/internal/core/ingestion_engine"
	"github.com/markdave123-py/Dossier/internal/events"
)

type App struct {
	Config      *config.Config
	Logger      *slog.Logger
	Store       core.DocumentStore
	Objects     core.ObjectClient
	Coordinator *ingestion_engine.Coordinator
	Ingestor    *ingestion_engine.Ingestor
	Consumer    *events.RedisConsumer
	Server      *Server

	closers []closer
}

// NewApp connects the stores and builds the pipeline. Nothing is started
// until Run.
func NewApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	appCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	a := &App{Config: cfg, Logger: logger}

	store, err := OpenDocumentStore(appCtx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a.Store = store
	a.closers = append(a.closers, store.Close)
	logger.Info("document store ready", "store", cfg.DocumentStore)

	objects, closeObjects, err := OpenObjectClient(appCtx, cfg)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("object client: %w", err)
	}
	a.Objects = objects
	if closeObjects != nil {
		a.closers = append(a.closers, closeObjects)
	}
	logger.Info("object client ready", "store", cfg.ObjectStore)

	registry, closers := BuildRegistry(appCtx, cfg, logger)
	a.closers = append(a.closers, closers...)

	a.Coordinator = ingestion_engine.NewCoordinator(registry, objects, store,
		ingestion_engine.WithLogger(logger),
		ingestion_engine.WithChunkMaxBytes(cfg.ChunkMaxBytes),
	)
	a.Ingestor = ingestion_engine.NewIngestor(a.Coordinator, ingestion_engine.WithIngestorLogger(logger))

	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		if err := rdb.Ping(appCtx).Err(); err != nil {
			_ = rdb.Close()
			a.Close()
			return nil, fmt.Errorf("redis: %w", err)
		}
		a.closers = append(a.closers, rdb.Close)
		a.Consumer = events.NewRedisConsumer(rdb, cfg.RedisEventList, a.Ingestor, events.WithConsumerLogger(logger))
		logger.Info("redis consumer ready", "addr", cfg.RedisAddr, "list", cfg.RedisEventList)
	}

	a.Server = NewServer(cfg, logger, a.Coordinator, a.Ingestor)
	return a, nil
}

// Run starts the worker pool, the event consumer and the HTTP server, and
// blocks until ctx is canceled or one of them fails.
func (a *App) Run(ctx context.Context) error {
	if err := a.Ingestor.Start(ctx, a.Config.IngestWorkers); err != nil {
		return err
	}
	defer a.Ingestor.Close()

	g, gctx := errgroup.WithContext(ctx)
	if a.Consumer != nil {
		g.Go(func() error { return a.Consumer.Run(gctx) })
	}
	g.Go(a.Server.Start)
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return a.Server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// Close releases every connection NewApp opened, newest first.
func (a *App) Close() {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		a.Logger.Warn("close failed", "error", err)
	}
}
