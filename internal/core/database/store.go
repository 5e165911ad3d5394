// Package db implements the persistence writer on Postgres, Firestore and Badger.
package db

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/markdave123-py/Dossier/internal/core"
	"github.com/markdave123-py/Dossier/internal/models"
)

// batch is one document write: the parent and its freshly identified chunks.
type batch struct {
	doc    models.ParentDocument
	chunks []models.TextChunk
}

// newBatch assigns a fresh id to every chunk, numbers them by position and
// points the parent at exactly this set.
func newBatch(doc models.ParentDocument, contents []string, now time.Time, newID func() string) batch {
	if newID == nil {
		newID = uuid.NewString
	}
	chunks := make([]models.TextChunk, len(contents))
	ids := make([]string, len(contents))
	for i, c := range contents {
		id := newID()
		ids[i] = id
		chunks[i] = models.TextChunk{
			ID:         id,
			DocumentID: doc.ID,
			Order:      i,
			Content:    c,
			CreatedAt:  now,
		}
	}
	doc.ChunkIDs = ids
	doc.ChunkCount = len(ids)
	doc.LastWrittenAt = now
	return batch{doc: doc, chunks: chunks}
}

func (b batch) result() *models.WriteResult {
	return &models.WriteResult{
		DocumentID: b.doc.ID,
		ChunkIDs:   b.doc.ChunkIDs,
		ChunkCount: b.doc.ChunkCount,
	}
}

func persistenceFailed(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", core.ErrPersistenceFailed, op, err)
}

// validateDocument guards every writer: a parent document always has an id
// and at least one chunk.
func validateDocument(doc models.ParentDocument, chunks []string) error {
	if doc.ID == "" {
		return fmt.Errorf("%w: document id is empty", core.ErrInvalidInput)
	}
	if len(chunks) == 0 {
		return fmt.Errorf("%w: document %q has no chunks", core.ErrInvalidInput, doc.ID)
	}
	return nil
}
