package db

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markdave123-py/Dossier/internal/core"
	"github.com/markdave123-py/Dossier/internal/models"
)

func newTestBadger(t *testing.T) *BadgerStore {
	t.Helper()
	s, err := OpenBadger("", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	n := 0
	s.newID = func() string {
		n++
		return fmt.Sprintf("chunk-%03d", n)
	}
	s.now = func() time.Time { return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC) }
	return s
}

// setAnalysis stands in for the enrichment stage writing its output.
func setAnalysis(t *testing.T, s *BadgerStore, documentID, analysis string) error {
	t.Helper()
	return s.db.Update(func(txn *badger.Txn) error {
		doc, err := readDocument(txn, documentID)
		if err != nil {
			return err
		}
		doc.Analysis = analysis
		val, err := json.Marshal(doc)
		if err != nil {
			return err
		}
		return txn.Set(docKey(documentID), val)
	})
}

func deckDoc() models.ParentDocument {
	return models.NewParentDocument(models.SourceObject{
		ContainerID:         "uploads",
		ObjectKey:           "acme/deck.pdf",
		DeclaredContentType: "application/pdf",
	})
}

func TestBadger_WriteAndRead(t *testing.T) {
	s := newTestBadger(t)
	ctx := context.Background()

	res, err := s.WriteDocument(ctx, deckDoc(), []string{"one", "two", "three"})
	require.NoError(t, err)
	assert.Equal(t, "acme/deck", res.DocumentID)
	assert.Equal(t, 3, res.ChunkCount)
	assert.Equal(t, []string{"chunk-001", "chunk-002", "chunk-003"}, res.ChunkIDs)

	doc, err := s.GetDocument(ctx, "acme/deck")
	require.NoError(t, err)
	assert.Equal(t, "acme", doc.ProjectID)
	assert.Equal(t, "deck", doc.FileID)
	assert.Equal(t, "uploads", doc.ContainerID)
	assert.Equal(t, "acme/deck.pdf", doc.SourceObjectKey)
	assert.Equal(t, res.ChunkIDs, doc.ChunkIDs)
	assert.Equal(t, 3, doc.ChunkCount)
	assert.Empty(t, doc.Analysis)

	chunks, err := s.GetChunks(ctx, "acme/deck")
	require.NoError(t, err)
	require.Len(t, chunks, 3)
	for i, ch := range chunks {
		assert.Equal(t, i, ch.Order)
		assert.Equal(t, res.ChunkIDs[i], ch.ID)
		assert.Equal(t, "acme/deck", ch.DocumentID)
	}
	assert.Equal(t, "two", chunks[1].Content)
}

func TestBadger_ReingestReplacesChunks(t *testing.T) {
	s := newTestBadger(t)
	ctx := context.Background()

	_, err := s.WriteDocument(ctx, deckDoc(), []string{"a", "b", "c"})
	require.NoError(t, err)
	require.NoError(t, setAnalysis(t, s, "acme/deck", "strong team"))

	res, err := s.WriteDocument(ctx, deckDoc(), []string{"x"})
	require.NoError(t, err)
	assert.Equal(t, 1, res.ChunkCount)

	doc, err := s.GetDocument(ctx, "acme/deck")
	require.NoError(t, err)
	assert.Equal(t, []string{"chunk-004"}, doc.ChunkIDs)
	assert.Equal(t, "strong team", doc.Analysis)

	chunks, err := s.GetChunks(ctx, "acme/deck")
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "x", chunks[0].Content)
}

func TestBadger_ManyChunksStayOrdered(t *testing.T) {
	s := newTestBadger(t)
	ctx := context.Background()

	contents := make([]string, 25)
	for i := range contents {
		contents[i] = strings.Repeat("z", i+1)
	}
	_, err := s.WriteDocument(ctx, deckDoc(), contents)
	require.NoError(t, err)

	chunks, err := s.GetChunks(ctx, "acme/deck")
	require.NoError(t, err)
	require.Len(t, chunks, 25)
	for i, ch := range chunks {
		assert.Equal(t, i, ch.Order)
		assert.Len(t, ch.Content, i+1)
	}
}

func TestBadger_PrefixIsolation(t *testing.T) {
	s := newTestBadger(t)
	ctx := context.Background()

	short := models.NewParentDocument(models.SourceObject{ContainerID: "u", ObjectKey: "acme.txt", DeclaredContentType: "text/plain"})
	nested := models.NewParentDocument(models.SourceObject{ContainerID: "u", ObjectKey: "acme/notes.txt", DeclaredContentType: "text/plain"})

	_, err := s.WriteDocument(ctx, short, []string{"top"})
	require.NoError(t, err)
	_, err = s.WriteDocument(ctx, nested, []string{"n1", "n2"})
	require.NoError(t, err)

	chunks, err := s.GetChunks(ctx, "acme")
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "top", chunks[0].Content)
}

func TestBadger_RejectsZeroChunks(t *testing.T) {
	s := newTestBadger(t)
	ctx := context.Background()

	_, err := s.WriteDocument(ctx, deckDoc(), []string{"a"})
	require.NoError(t, err)
	_, err = s.WriteDocument(ctx, deckDoc(), nil)
	assert.ErrorIs(t, err, core.ErrInvalidInput)

	doc, err := s.GetDocument(ctx, "acme/deck")
	require.NoError(t, err)
	assert.Equal(t, 1, doc.ChunkCount)
	chunks, err := s.GetChunks(ctx, "acme/deck")
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "a", chunks[0].Content)
}

func TestBadger_ZeroChunksCreateNothing(t *testing.T) {
	s := newTestBadger(t)

	_, err := s.WriteDocument(context.Background(), deckDoc(), []string{})
	assert.ErrorIs(t, err, core.ErrInvalidInput)

	_, err = s.GetDocument(context.Background(), "acme/deck")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestBadger_NotFound(t *testing.T) {
	s := newTestBadger(t)

	_, err := s.GetDocument(context.Background(), "missing")
	assert.ErrorIs(t, err, core.ErrNotFound)
	assert.ErrorIs(t, setAnalysis(t, s, "missing", "x"), core.ErrNotFound)
}

func TestBadger_RejectsEmptyID(t *testing.T) {
	s := newTestBadger(t)

	_, err := s.WriteDocument(context.Background(), models.ParentDocument{}, []string{"a"})
	assert.ErrorIs(t, err, core.ErrInvalidInput)
}

func TestBadger_OnDisk(t *testing.T) {
	dir := t.TempDir()
	s, err := OpenBadger(dir, nil)
	require.NoError(t, err)

	_, err = s.WriteDocument(context.Background(), deckDoc(), []string{"persisted"})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = OpenBadger(dir, nil)
	require.NoError(t, err)
	defer s.Close()

	chunks, err := s.GetChunks(context.Background(), "acme/deck")
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "persisted", chunks[0].Content)
}
