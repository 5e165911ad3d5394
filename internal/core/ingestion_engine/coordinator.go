package ingestion_engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode"

	"github.com/markdave123-py/Dossier/internal/core"
	"github.com/markdave123-py/Dossier/internal/core/chunker"
	"github.com/markdave123-py/Dossier/internal/core/formats"
	"github.com/markdave123-py/Dossier/internal/models"
)

// State is a step of one ingestion run.
type State string

const (
	StateDispatching State = "dispatching"
	StateExtracting  State = "extracting"
	StateChunking    State = "chunking"
	StatePersisting  State = "persisting"
	StateCompleted   State = "completed"
	StateSkipped     State = "skipped"
	StateFailed      State = "failed"
)

// Result messages returned to callers.
const (
	MsgCompleted   = "Document processed successfully."
	MsgEmpty       = "No text could be extracted from the document."
	MsgUnsupported = "Unsupported content type; document skipped."
)

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithLogger sets the logger. Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithChunkMaxBytes sets the chunk bound. Default is chunker.DefaultMaxBytes.
func WithChunkMaxBytes(n int) Option {
	return func(c *Coordinator) {
		if n > 0 {
			c.maxChunkBytes = n
		}
	}
}

// WithObserver registers a callback invoked on every state transition.
func WithObserver(fn func(src models.SourceObject, state State)) Option {
	return func(c *Coordinator) {
		c.observe = fn
	}
}

// Coordinator runs one source object through dispatch, extraction, chunking
// and persistence. It holds no per-run state and is safe for concurrent use.
type Coordinator struct {
	registry      *formats.Registry
	objects       core.ObjectClient
	store         core.DocumentStore
	maxChunkBytes int
	logger        *slog.Logger
	observe       func(models.SourceObject, State)
}

// NewCoordinator wires the registry, the object store the bytes are read
// from and the document store chunks are written to.
func NewCoordinator(registry *formats.Registry, objects core.ObjectClient, store core.DocumentStore, opts ...Option) *Coordinator {
	c := &Coordinator{
		registry:      registry,
		objects:       objects,
		store:         store,
		maxChunkBytes: chunker.DefaultMaxBytes,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Ingest processes src and reports the outcome.
//
// An unsupported content type is a skip, not an error: the result has
// StatusSkipped and the error is nil. Extraction that yields no text is also
// skipped, but the error is ErrEmptyExtraction so callers can answer it as
// "processed but empty". Any other failure returns a StatusFailed result and
// a *core.StageError matching ErrInvalidInput, ErrExtractionFailed,
// ErrUnsupportedVariant or ErrPersistenceFailed.
func (c *Coordinator) Ingest(ctx context.Context, src models.SourceObject) (*models.Result, error) {
	if err := validate(src); err != nil {
		return &models.Result{Status: models.StatusFailed, Message: err.Error()}, err
	}

	id := models.DeriveIdentity(src.ObjectKey)
	res := &models.Result{
		DocumentID: id.DocumentID(),
		ProjectID:  id.ProjectID,
		FileID:     id.FileID,
	}
	log := c.logger.With(
		"object_key", src.ObjectKey,
		"container_id", src.ContainerID,
		"content_type", src.DeclaredContentType,
	)

	c.enter(log, src, StateDispatching)
	d, backend, err := c.registry.Lookup(src.DeclaredContentType)
	if err != nil {
		c.enter(log, src, StateSkipped)
		log.Info("ingestion skipped", "reason", "unsupported content type")
		res.Status, res.Message = models.StatusSkipped, MsgUnsupported
		return res, nil
	}
	res.Backend = backend.Name()
	log = log.With("backend", backend.Name())

	c.enter(log, src, StateExtracting)
	source, err := c.source(ctx, src, d, backend)
	if err != nil {
		return c.fail(log, src, res, "download", backend.Name(), core.ExtractionFailed("read object", err))
	}
	text, err := backend.Extract(ctx, source)
	if err != nil {
		if !errors.Is(err, core.ErrExtractionFailed) && !errors.Is(err, core.ErrUnsupportedVariant) {
			err = core.ExtractionFailed(backend.Name(), err)
		}
		return c.fail(log, src, res, "extract", backend.Name(), err)
	}
	if isBlank(text) {
		c.enter(log, src, StateSkipped)
		log.Info("ingestion skipped", "reason", "empty extraction")
		res.Status, res.Message = models.StatusSkipped, MsgEmpty
		return res, core.ErrEmptyExtraction
	}

	c.enter(log, src, StateChunking)
	chunks := chunker.Chunk(text, c.maxChunkBytes)

	c.enter(log, src, StatePersisting)
	wr, err := c.store.WriteDocument(ctx, models.NewParentDocument(src), chunks)
	if err != nil {
		if !errors.Is(err, core.ErrPersistenceFailed) {
			err = fmt.Errorf("%w: %w", core.ErrPersistenceFailed, err)
		}
		return c.fail(log, src, res, "persist", backend.Name(), err)
	}

	c.enter(log, src, StateCompleted)
	res.Status, res.Message = models.StatusCompleted, MsgCompleted
	res.DocumentID = wr.DocumentID
	res.ChunkCount = wr.ChunkCount
	log.Info("ingestion completed", "document_id", res.DocumentID, "chunks", res.ChunkCount, "text_bytes", len(text))
	return res, nil
}

// source builds the backend input. Bytes are downloaded unless the backend
// reads by URI and the object store can address the object that way.
func (c *Coordinator) source(ctx context.Context, src models.SourceObject, d formats.Dispatch, backend core.Backend) (core.Source, error) {
	s := core.Source{
		Object:    src,
		MediaType: d.MediaType,
		Params:    d.Params,
		Hints: core.Hints{
			DocumentMode:  d.OCRMode == formats.OCRDocument,
			AudioEncoding: d.Audio.Encoding,
			SampleRateHz:  d.Audio.SampleRateHz,
			AudioChannels: d.Audio.Channels,
		},
	}
	if d.PrefersURI && core.ReadsURI(backend) {
		if uri, ok := c.objects.StorageURI(src.ContainerID, src.ObjectKey); ok {
			s.URI = uri
			return s, nil
		}
	}
	content, err := c.objects.GetFile(ctx, src.ContainerID, src.ObjectKey)
	if err != nil {
		return s, err
	}
	s.Content = content
	return s, nil
}

func (c *Coordinator) enter(log *slog.Logger, src models.SourceObject, state State) {
	log.Debug("ingestion state", "state", string(state))
	if c.observe != nil {
		c.observe(src, state)
	}
}

func (c *Coordinator) fail(log *slog.Logger, src models.SourceObject, res *models.Result, stage, backend string, err error) (*models.Result, error) {
	c.enter(log, src, StateFailed)
	serr := &core.StageError{Stage: stage, ObjectKey: src.ObjectKey, Backend: backend, Err: err}
	log.Error("ingestion failed", "stage", stage, "error", err)
	res.Status, res.Message = models.StatusFailed, serr.Error()
	res.ChunkCount = 0
	return res, serr
}

func validate(src models.SourceObject) error {
	var missing []string
	if strings.TrimSpace(src.ContainerID) == "" {
		missing = append(missing, "containerId")
	}
	if strings.TrimSpace(src.ObjectKey) == "" {
		missing = append(missing, "objectKey")
	}
	if strings.TrimSpace(src.DeclaredContentType) == "" {
		missing = append(missing, "declaredContentType")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", core.ErrInvalidInput, strings.Join(missing, ", "))
	}
	return nil
}

func isBlank(s string) bool {
	return strings.IndexFunc(s, func(r rune) bool { return !unicode.IsSpace(r) }) < 0
}
