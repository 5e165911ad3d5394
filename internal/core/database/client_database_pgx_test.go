package db

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markdave123-py/Dossier/internal/core"
)

// openTestPostgres connects to DOSSIER_TEST_DATABASE_URL and skips otherwise.
func openTestPostgres(t *testing.T) *PostgresStore {
	t.Helper()
	dsn := os.Getenv("DOSSIER_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("DOSSIER_TEST_DATABASE_URL not set")
	}
	s, err := OpenPostgres(context.Background(), dsn, nil)
	require.NoError(t, err)
	t.Cleanup(func() {
		_, _ = s.db.Exec(`DELETE FROM documents WHERE id LIKE 'dossier-test/%'`)
		_ = s.Close()
	})
	return s
}

func TestSchema_Embedded(t *testing.T) {
	script, err := Schema()
	require.NoError(t, err)
	assert.Contains(t, script, "CREATE TABLE IF NOT EXISTS documents")
	assert.Contains(t, script, "CREATE TABLE IF NOT EXISTS document_chunks")
	assert.Contains(t, script, "ON DELETE CASCADE")
	assert.Contains(t, script, "dossier_meta")
}

func TestOpenPostgres_EmptyDSN(t *testing.T) {
	_, err := OpenPostgres(context.Background(), "", nil)
	assert.Error(t, err)
}

func TestPostgres_WriteReplaceAndPreserveAnalysis(t *testing.T) {
	s := openTestPostgres(t)
	ctx := context.Background()

	doc := deckDoc()
	doc.ID = "dossier-test/deck"

	first, err := s.WriteDocument(ctx, doc, []string{"a", "b", "c"})
	require.NoError(t, err)
	assert.Equal(t, 3, first.ChunkCount)

	_, err = s.db.ExecContext(ctx, `UPDATE documents SET analysis = 'promising' WHERE id = $1`, doc.ID)
	require.NoError(t, err)

	second, err := s.WriteDocument(ctx, doc, []string{"z"})
	require.NoError(t, err)

	got, err := s.GetDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, second.ChunkIDs, got.ChunkIDs)
	assert.Equal(t, 1, got.ChunkCount)
	assert.Equal(t, "promising", got.Analysis)

	chunks, err := s.GetChunks(ctx, doc.ID)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "z", chunks[0].Content)
	assert.Equal(t, 0, chunks[0].Order)
}

func TestPostgres_NotFound(t *testing.T) {
	s := openTestPostgres(t)

	_, err := s.GetDocument(context.Background(), "dossier-test/missing")
	assert.ErrorIs(t, err, core.ErrNotFound)
}
