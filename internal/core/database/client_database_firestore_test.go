package db

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedBatch(contents ...string) batch {
	ids := []string{"n1", "n2", "n3", "n4"}
	i := 0
	now := time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)
	return newBatch(deckDoc(), contents, now, func() string {
		id := ids[i]
		i++
		return id
	})
}

func TestPlanWrite_NewDocument(t *testing.T) {
	ops := planWrite(nil, fixedBatch("alpha", "beta"))

	require.Len(t, ops, 3)
	assert.Equal(t, opSetChunk, ops[0].kind)
	assert.Equal(t, "n1", ops[0].chunkID)
	assert.Equal(t, 0, ops[0].chunk.Order)
	assert.Equal(t, "alpha", ops[0].chunk.Content)
	assert.Equal(t, opSetChunk, ops[1].kind)
	assert.Equal(t, 1, ops[1].chunk.Order)

	parent := ops[2]
	assert.Equal(t, opMergeParent, parent.kind)
	assert.Equal(t, "acme/deck.pdf", parent.parent["fileName"])
	assert.Equal(t, "uploads", parent.parent["bucketName"])
	assert.Equal(t, "application/pdf", parent.parent["contentType"])
	assert.Equal(t, []string{"n1", "n2"}, parent.parent["textChunkIds"])
	assert.Equal(t, 2, parent.parent["numberOfTextChunks"])
	assert.Equal(t, "", parent.parent["geminiAnalysis"])
}

func TestPlanWrite_ReplacesPreviousChunks(t *testing.T) {
	prev := &firestoreParent{TextChunkIDs: []string{"old1", "old2", "old3"}, GeminiAnalysis: "keep me"}

	ops := planWrite(prev, fixedBatch("only"))

	require.Len(t, ops, 5)
	for i, id := range []string{"old1", "old2", "old3"} {
		assert.Equal(t, opDeleteChunk, ops[i].kind)
		assert.Equal(t, id, ops[i].chunkID)
	}
	assert.Equal(t, opSetChunk, ops[3].kind)
	assert.Equal(t, "n1", ops[3].chunkID)

	parent := ops[4].parent
	assert.Equal(t, []string{"n1"}, parent["textChunkIds"])
	assert.Equal(t, 1, parent["numberOfTextChunks"])
	_, touchesAnalysis := parent["geminiAnalysis"]
	assert.False(t, touchesAnalysis)
}

func TestEscapeID(t *testing.T) {
	assert.Equal(t, "acme", escapeID("acme"))
	assert.Equal(t, "acme%2Fdeck", escapeID("acme/deck"))
	assert.Equal(t, "a%2Fb%2Fc", escapeID("a/b/c"))
	assert.Equal(t, "100%25", escapeID("100%"))
	assert.Equal(t, "%2E%2E", escapeID(".."))
	assert.Equal(t, "%5F_meta__", escapeID("__meta__"))
}

func TestEscapeID_DistinctIDsNeverCollide(t *testing.T) {
	ids := []string{
		"acme/deck.pdf", "acme--deck.pdf", "acme%2Fdeck.pdf", "acme%252Fdeck.pdf",
		".", "..", "%2E", "%2E%2E", "__x__", "%5F_x__", "_x__", "a//b", "a/%2F/b",
	}
	seen := make(map[string]string, len(ids))
	for _, id := range ids {
		seg := escapeID(id)
		assert.NotContains(t, seg, "/", id)
		if other, ok := seen[seg]; ok {
			t.Fatalf("%q and %q both map to %q", other, id, seg)
		}
		seen[seg] = id
	}
}

func TestFirestoreParent_ToModel(t *testing.T) {
	p := firestoreParent{
		FileName:           "acme/deck.pdf",
		BucketName:         "uploads",
		ContentType:        "application/pdf",
		ProjectID:          "acme",
		FileID:             "deck",
		GeminiAnalysis:     "notes",
		TextChunkIDs:       []string{"a"},
		NumberOfTextChunks: 1,
	}

	d := p.toModel("acme/deck")
	assert.Equal(t, "acme/deck", d.ID)
	assert.Equal(t, "acme/deck.pdf", d.SourceObjectKey)
	assert.Equal(t, "uploads", d.ContainerID)
	assert.Equal(t, "notes", d.Analysis)
	assert.Equal(t, 1, d.ChunkCount)
}
