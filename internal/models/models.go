package models

import (
	"path"
	"strings"
	"time"
)

// SourceObject references an uploaded object and its declared media type.
// It is supplied by the upload/event collaborator and never modified here.
type SourceObject struct {
	ContainerID         string `json:"containerId"`         // bucket / namespace
	ObjectKey           string `json:"objectKey"`           // path of the object inside the container
	DeclaredContentType string `json:"declaredContentType"` // e.g. "application/pdf"
	ByteLength          int64  `json:"byteLength,omitempty"`
}

// Identity is the stable key a source object is persisted under.
//
// ProjectID: the object key's directory ("" when the key has none).
// FileID:    the object key's base name minus its extension.
type Identity struct {
	ProjectID string `json:"projectId,omitempty"`
	FileID    string `json:"fileId"`
}

// DocumentID joins the project scope and file id into the document key.
func (id Identity) DocumentID() string {
	if id.ProjectID == "" {
		return id.FileID
	}
	return id.ProjectID + "/" + id.FileID
}

// DeriveIdentity maps an object key to its document identity. It is pure and
// independent of content type, so re-ingesting a key always lands on the same
// document. "acme.txt" -> {"", "acme"}; "p1/deck.v2.pdf" -> {"p1", "deck.v2"}.
func DeriveIdentity(objectKey string) Identity {
	key := strings.Trim(objectKey, "/")
	dir, base := path.Split(key)
	fileID := base
	if ext := path.Ext(base); ext != "" && ext != base {
		fileID = strings.TrimSuffix(base, ext)
	}
	return Identity{
		ProjectID: strings.TrimSuffix(dir, "/"),
		FileID:    fileID,
	}
}

// TextChunk is one bounded fragment of a document's extracted text.
type TextChunk struct {
	ID         string    `db:"id" json:"id"`
	DocumentID string    `db:"document_id" json:"documentId"`
	Order      int       `db:"chunk_order" json:"order"` // zero-based, contiguous
	Content    string    `db:"content" json:"content"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`
}

// ParentDocument aggregates a source object's extraction outcome.
// Analysis is reserved for a later enrichment stage and never written by ingestion.
type ParentDocument struct {
	ID                  string    `db:"id" json:"documentId"`
	ProjectID           string    `db:"project_id" json:"projectId,omitempty"`
	FileID              string    `db:"file_id" json:"fileId"`
	SourceObjectKey     string    `db:"source_object_key" json:"sourceObjectKey"`
	ContainerID         string    `db:"container_id" json:"containerId"`
	DeclaredContentType string    `db:"declared_content_type" json:"declaredContentType"`
	ChunkIDs            []string  `db:"chunk_ids" json:"chunkIds"`
	ChunkCount          int       `db:"chunk_count" json:"chunkCount"`
	Analysis            string    `db:"analysis" json:"analysis"`
	LastWrittenAt       time.Time `db:"last_written_at" json:"lastWrittenAt"`
}

// NewParentDocument builds the metadata row for src under its derived identity.
// Chunk fields are filled in by the store when the batch is written.
func NewParentDocument(src SourceObject) ParentDocument {
	id := DeriveIdentity(src.ObjectKey)
	return ParentDocument{
		ID:                  id.DocumentID(),
		ProjectID:           id.ProjectID,
		FileID:              id.FileID,
		SourceObjectKey:     src.ObjectKey,
		ContainerID:         src.ContainerID,
		DeclaredContentType: src.DeclaredContentType,
	}
}

// WriteResult is what the persistence writer reports after a committed batch.
type WriteResult struct {
	DocumentID string
	ChunkIDs   []string
	ChunkCount int
}

// Status is the terminal state of an ingestion run.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusSkipped   Status = "skipped"
	StatusFailed    Status = "failed"
)

// Result is returned to the caller of an ingestion run.
type Result struct {
	Status     Status `json:"status"`
	Message    string `json:"message"`
	DocumentID string `json:"documentId,omitempty"`
	ProjectID  string `json:"projectId,omitempty"`
	FileID     string `json:"fileId,omitempty"`
	ChunkCount int    `json:"chunkCount"`
	Backend    string `json:"backend,omitempty"`
}
