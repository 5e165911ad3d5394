package ingestion_engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/panjf2000/ants/v2"

	"github.com/markdave123-py/Dossier/internal/core"
	"github.com/markdave123-py/Dossier/internal/models"
)

// Runner executes one ingestion. *Coordinator satisfies it.
type Runner interface {
	Ingest(ctx context.Context, src models.SourceObject) (*models.Result, error)
}

// IngestorOption configures an Ingestor.
type IngestorOption func(*Ingestor)

// WithIngestorLogger sets the logger. Default is slog.Default().
func WithIngestorLogger(logger *slog.Logger) IngestorOption {
	return func(i *Ingestor) {
		if logger != nil {
			i.logger = logger
		}
	}
}

// WithResultHook is called after every queued run with its outcome.
func WithResultHook(fn func(models.SourceObject, *models.Result, error)) IngestorOption {
	return func(i *Ingestor) {
		i.onResult = fn
	}
}

// Ingestor runs event-triggered ingestions on a bounded worker pool.
// Failures are logged and dropped; there is no retry.
type Ingestor struct {
	runner   Runner
	logger   *slog.Logger
	onResult func(models.SourceObject, *models.Result, error)

	mu   sync.Mutex
	ctx  context.Context
	pool *ants.PoolWithFunc
	wg   sync.WaitGroup
}

// NewIngestor creates an ingestor around runner. Call Start before Enqueue.
func NewIngestor(runner Runner, opts ...IngestorOption) *Ingestor {
	i := &Ingestor{runner: runner, logger: slog.Default()}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Start creates the pool with numWorkers workers. Runs are bound to ctx:
// once it is canceled, queued and in-flight runs see a canceled context.
func (i *Ingestor) Start(ctx context.Context, numWorkers int) error {
	if numWorkers <= 0 {
		return fmt.Errorf("%w: numWorkers must be positive, got %d", core.ErrInvalidInput, numWorkers)
	}
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.pool != nil {
		return errors.New("ingestor already started")
	}

	pool, err := ants.NewPoolWithFunc(numWorkers, i.work,
		ants.WithPanicHandler(func(p any) {
			i.logger.Error("ingestion worker panicked", "panic", p)
		}),
	)
	if err != nil {
		return fmt.Errorf("create worker pool: %w", err)
	}
	i.ctx = ctx
	i.pool = pool
	i.logger.Info("ingestor started", "workers", numWorkers)
	return nil
}

// Enqueue schedules src. It blocks while every worker is busy and fails
// once the ingestor is closed.
func (i *Ingestor) Enqueue(src models.SourceObject) error {
	i.mu.Lock()
	pool := i.pool
	i.mu.Unlock()
	if pool == nil {
		return errors.New("ingestor not started")
	}

	i.wg.Add(1)
	if err := pool.Invoke(src); err != nil {
		i.wg.Done()
		if errors.Is(err, ants.ErrPoolClosed) {
			return fmt.Errorf("ingestor closed: %w", err)
		}
		return fmt.Errorf("enqueue %s: %w", src.ObjectKey, err)
	}
	i.logger.Debug("ingestion queued", "object_key", src.ObjectKey, "container_id", src.ContainerID)
	return nil
}

// Close waits for queued runs to finish and releases the pool.
func (i *Ingestor) Close() {
	i.mu.Lock()
	pool := i.pool
	i.mu.Unlock()
	if pool == nil {
		return
	}
	i.wg.Wait()
	pool.Release()
	i.logger.Info("ingestor stopped")
}

func (i *Ingestor) work(arg any) {
	defer i.wg.Done()
	src, ok := arg.(models.SourceObject)
	if !ok {
		i.logger.Error("ingestion worker received unexpected payload", "type", fmt.Sprintf("%T", arg))
		return
	}

	res, err := i.runner.Ingest(i.ctx, src)
	if i.onResult != nil {
		i.onResult(src, res, err)
	}
	switch {
	case err == nil:
	case errors.Is(err, core.ErrEmptyExtraction):
		i.logger.Info("queued ingestion produced no text", "object_key", src.ObjectKey)
	default:
		i.logger.Error("queued ingestion dropped", "object_key", src.ObjectKey, "error", err)
	}
}
