package db

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/markdave123-py/Dossier/internal/core"
	"github.com/markdave123-py/Dossier/internal/models"
)

// chunkCollection is the subcollection holding a document's chunks.
const chunkCollection = "textChunks"

// firestoreParent is the stored shape of a parent document.
type firestoreParent struct {
	FileName           string    `firestore:"fileName"`
	BucketName         string    `firestore:"bucketName"`
	ContentType        string    `firestore:"contentType"`
	ProjectID          string    `firestore:"projectId"`
	FileID             string    `firestore:"fileId"`
	GeminiAnalysis     string    `firestore:"geminiAnalysis"`
	TextChunkIDs       []string  `firestore:"textChunkIds"`
	NumberOfTextChunks int       `firestore:"numberOfTextChunks"`
	LastWrittenAt      time.Time `firestore:"lastWrittenAt"`
}

// firestoreChunk is the stored shape of one chunk.
type firestoreChunk struct {
	Order     int       `firestore:"order"`
	Content   string    `firestore:"content"`
	Timestamp time.Time `firestore:"timestamp"`
}

type opKind int

const (
	opDeleteChunk opKind = iota
	opSetChunk
	opMergeParent
)

// writeOp is one write of a document batch.
type writeOp struct {
	kind    opKind
	chunkID string
	chunk   firestoreChunk
	parent  map[string]interface{}
}

// planWrite lists the writes that move a document from prev (nil when it
// does not exist) to b: delete every chunk prev points at, create the new
// chunks, then merge the parent. geminiAnalysis is only initialised on
// creation so an existing analysis survives.
func planWrite(prev *firestoreParent, b batch) []writeOp {
	var ops []writeOp
	if prev != nil {
		for _, id := range prev.TextChunkIDs {
			ops = append(ops, writeOp{kind: opDeleteChunk, chunkID: id})
		}
	}
	for _, ch := range b.chunks {
		ops = append(ops, writeOp{
			kind:    opSetChunk,
			chunkID: ch.ID,
			chunk:   firestoreChunk{Order: ch.Order, Content: ch.Content, Timestamp: ch.CreatedAt},
		})
	}

	d := b.doc
	parent := map[string]interface{}{
		"fileName":           d.SourceObjectKey,
		"bucketName":         d.ContainerID,
		"contentType":        d.DeclaredContentType,
		"projectId":          d.ProjectID,
		"fileId":             d.FileID,
		"textChunkIds":       d.ChunkIDs,
		"numberOfTextChunks": d.ChunkCount,
		"lastWrittenAt":      d.LastWrittenAt,
	}
	if prev == nil {
		parent["geminiAnalysis"] = ""
	}
	ops = append(ops, writeOp{kind: opMergeParent, parent: parent})
	return ops
}

var idEscaper = strings.NewReplacer("%", "%25", "/", "%2F")

// escapeID maps a document id to a single Firestore path segment. The
// mapping is injective: "%" is always escaped, so distinct ids never share
// a segment. Ids Firestore reserves ("." and "..", "__x__") are escaped too.
func escapeID(id string) string {
	seg := idEscaper.Replace(id)
	switch {
	case seg == "." || seg == "..":
		seg = strings.ReplaceAll(seg, ".", "%2E")
	case len(seg) >= 4 && strings.HasPrefix(seg, "__") && strings.HasSuffix(seg, "__"):
		seg = "%5F" + seg[1:]
	}
	return seg
}

func (p *firestoreParent) toModel(id string) *models.ParentDocument {
	return &models.ParentDocument{
		ID:                  id,
		ProjectID:           p.ProjectID,
		FileID:              p.FileID,
		SourceObjectKey:     p.FileName,
		ContainerID:         p.BucketName,
		DeclaredContentType: p.ContentType,
		ChunkIDs:            p.TextChunkIDs,
		ChunkCount:          p.NumberOfTextChunks,
		Analysis:            p.GeminiAnalysis,
		LastWrittenAt:       p.LastWrittenAt,
	}
}

var _ core.DocumentStore = (*FirestoreStore)(nil)

// FirestoreStore keeps parents in one collection with their chunks in a
// textChunks subcollection. A write runs as one transaction, so it is
// bounded by Firestore's per-commit write count and request size.
type FirestoreStore struct {
	client     *firestore.Client
	collection string
	logger     *slog.Logger
	now        func() time.Time
	newID      func() string
}

// OpenFirestore connects to databaseID (the default database when empty).
func OpenFirestore(ctx context.Context, projectID, databaseID, collection string, logger *slog.Logger, opts ...option.ClientOption) (*FirestoreStore, error) {
	if projectID == "" {
		projectID = firestore.DetectProjectID
	}
	if databaseID == "" {
		databaseID = firestore.DefaultDatabaseID
	}
	if collection == "" {
		collection = "documents"
	}
	if logger == nil {
		logger = slog.Default()
	}

	client, err := firestore.NewClientWithDatabase(ctx, projectID, databaseID, opts...)
	if err != nil {
		return nil, fmt.Errorf("firestore client: %w", err)
	}
	return &FirestoreStore{
		client:     client,
		collection: collection,
		logger:     logger.With("store", "firestore"),
		now:        time.Now,
	}, nil
}

func (s *FirestoreStore) Close() error {
	return s.client.Close()
}

func (s *FirestoreStore) parentRef(id string) *firestore.DocumentRef {
	return s.client.Collection(s.collection).Doc(escapeID(id))
}

// WriteDocument reads the parent's current chunk list and commits the
// replacement in the same transaction.
func (s *FirestoreStore) WriteDocument(ctx context.Context, doc models.ParentDocument, chunks []string) (*models.WriteResult, error) {
	if err := validateDocument(doc, chunks); err != nil {
		return nil, err
	}
	b := newBatch(doc, chunks, s.now().UTC(), s.newID)
	parent := s.parentRef(b.doc.ID)

	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		prev, err := readParent(tx, parent)
		if err != nil {
			return err
		}
		for _, op := range planWrite(prev, b) {
			switch op.kind {
			case opDeleteChunk:
				err = tx.Delete(parent.Collection(chunkCollection).Doc(op.chunkID))
			case opSetChunk:
				err = tx.Set(parent.Collection(chunkCollection).Doc(op.chunkID), op.chunk)
			case opMergeParent:
				err = tx.Set(parent, op.parent, firestore.MergeAll)
			}
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, persistenceFailed("firestore transaction", err)
	}

	s.logger.Debug("document written", "document_id", b.doc.ID, "chunks", b.doc.ChunkCount)
	return b.result(), nil
}

func readParent(tx *firestore.Transaction, ref *firestore.DocumentRef) (*firestoreParent, error) {
	snap, err := tx.Get(ref)
	if status.Code(err) == codes.NotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var p firestoreParent
	if err := snap.DataTo(&p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *FirestoreStore) GetDocument(ctx context.Context, documentID string) (*models.ParentDocument, error) {
	snap, err := s.parentRef(documentID).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, fmt.Errorf("document %q: %w", documentID, core.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	var p firestoreParent
	if err := snap.DataTo(&p); err != nil {
		return nil, err
	}
	return p.toModel(documentID), nil
}

func (s *FirestoreStore) GetChunks(ctx context.Context, documentID string) ([]models.TextChunk, error) {
	snaps, err := s.parentRef(documentID).Collection(chunkCollection).
		OrderBy("order", firestore.Asc).
		Documents(ctx).
		GetAll()
	if err != nil {
		return nil, err
	}

	out := make([]models.TextChunk, 0, len(snaps))
	for _, snap := range snaps {
		var c firestoreChunk
		if err := snap.DataTo(&c); err != nil {
			return nil, err
		}
		out = append(out, models.TextChunk{
			ID:         snap.Ref.ID,
			DocumentID: documentID,
			Order:      c.Order,
			Content:    c.Content,
			CreatedAt:  c.Timestamp,
		})
	}
	return out, nil
}
