package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/markdave123-py/Dossier/internal/core"
	"github.com/markdave123-py/Dossier/internal/core/ingestion_engine"
	"github.com/markdave123-py/Dossier/internal/events"
	"github.com/markdave123-py/Dossier/internal/models"
)

const maxEventBytes = 1 << 20

type DocumentHandler struct {
	runner   ingestion_engine.Runner
	ingestor events.Enqueuer
	logger   *slog.Logger
}

func NewDocumentHandler(runner ingestion_engine.Runner, ing events.Enqueuer, logger *slog.Logger) *DocumentHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &DocumentHandler{runner: runner, ingestor: ing, logger: logger}
}

// processRequest accepts the storage-trigger field names as well as our own.
type processRequest struct {
	ContainerID         string `json:"containerId"`
	ObjectKey           string `json:"objectKey"`
	DeclaredContentType string `json:"declaredContentType"`
	BucketName          string `json:"bucketName"`
	FileName            string `json:"fileName"`
	ContentType         string `json:"contentType"`
}

func (r processRequest) source() models.SourceObject {
	src := models.SourceObject{
		ContainerID:         r.ContainerID,
		ObjectKey:           r.ObjectKey,
		DeclaredContentType: r.DeclaredContentType,
	}
	if src.ContainerID == "" {
		src.ContainerID = r.BucketName
	}
	if src.ObjectKey == "" {
		src.ObjectKey = r.FileName
	}
	if src.DeclaredContentType == "" {
		src.DeclaredContentType = r.ContentType
	}
	return src
}

type processResponse struct {
	Message    string `json:"message"`
	Status     string `json:"status"`
	Skipped    bool   `json:"skipped"`
	DocumentID string `json:"documentId,omitempty"`
	ProjectID  string `json:"projectId,omitempty"`
	FileID     string `json:"fileId,omitempty"`
	ChunkCount int    `json:"chunkCount"`
}

// ProcessDocument runs one ingestion synchronously.
func (h *DocumentHandler) ProcessDocument(w http.ResponseWriter, r *http.Request) {
	var req processRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	src := req.source()
	if src.ContainerID == "" || src.ObjectKey == "" || src.DeclaredContentType == "" {
		http.Error(w, "Missing bucketName, fileName, or contentType in request body.", http.StatusBadRequest)
		return
	}

	res, err := h.runner.Ingest(r.Context(), src)
	switch {
	case errors.Is(err, core.ErrEmptyExtraction):
		http.Error(w, ingestion_engine.MsgEmpty, http.StatusBadRequest)
		return
	case errors.Is(err, core.ErrInvalidInput):
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	case err != nil:
		h.logger.Error("process document failed", "object_key", src.ObjectKey, "error", err)
		http.Error(w, "An error occurred while processing the document.", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, processResponse{
		Message:    res.Message,
		Status:     string(res.Status),
		Skipped:    res.Status == models.StatusSkipped,
		DocumentID: res.DocumentID,
		ProjectID:  res.ProjectID,
		FileID:     res.FileID,
		ChunkCount: res.ChunkCount,
	})
}

// StorageEvent queues the objects a storage notification announces.
func (h *DocumentHandler) StorageEvent(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxEventBytes))
	if err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	objects, err := events.Decode(body)
	if err != nil {
		h.logger.Warn("storage event rejected", "error", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if len(objects) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	for _, obj := range objects {
		if err := h.ingestor.Enqueue(obj); err != nil {
			h.logger.Error("storage event enqueue failed", "object_key", obj.ObjectKey, "error", err)
			http.Error(w, "ingestion queue unavailable", http.StatusServiceUnavailable)
			return
		}
	}
	writeJSON(w, http.StatusAccepted, map[string]int{"queued": len(objects)})
}

func Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
