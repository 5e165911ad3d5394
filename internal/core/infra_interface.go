package core

import (
	"context"

	"github.com/markdave123-py/Dossier/internal/models"
)

// DocumentStore is the persistence writer. It abstracts Postgres, Firestore
// and Badger so the coordinator never depends on a specific database.
type DocumentStore interface {
	// WriteDocument commits doc and one chunk row per entry of chunks as a
	// single atomic batch. Chunk ids are generated here, order is the slice
	// index, and the parent's ChunkIDs/ChunkCount replace whatever a previous
	// run wrote. Fields this write does not own (Analysis) are preserved.
	WriteDocument(ctx context.Context, doc models.ParentDocument, chunks []string) (*models.WriteResult, error)

	// GetDocument returns ErrNotFound when no document has the id.
	GetDocument(ctx context.Context, documentID string) (*models.ParentDocument, error)

	// GetChunks returns the document's chunks ordered by Order.
	GetChunks(ctx context.Context, documentID string) ([]models.TextChunk, error)

	Close() error
}

// ObjectClient reads uploaded objects from S3, GCS, MinIO or any object storage.
type ObjectClient interface {
	GetFile(ctx context.Context, bucket, key string) ([]byte, error)

	// StorageURI returns a URI remote inference services can read the object
	// from, and false when the store is not addressable that way.
	StorageURI(bucket, key string) (string, bool)
}
