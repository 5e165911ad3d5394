package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeriveIdentity(t *testing.T) {
	tests := []struct {
		key     string
		want    Identity
		wantDoc string
	}{
		{"acme.txt", Identity{FileID: "acme"}, "acme"},
		{"p1/deck.v2.pdf", Identity{ProjectID: "p1", FileID: "deck.v2"}, "p1/deck.v2"},
		{"org/p1/notes", Identity{ProjectID: "org/p1", FileID: "notes"}, "org/p1/notes"},
		{"/lead/slash.md", Identity{ProjectID: "lead", FileID: "slash"}, "lead/slash"},
		{".env", Identity{FileID: ".env"}, ".env"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			got := DeriveIdentity(tt.key)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantDoc, got.DocumentID())
		})
	}
}

func TestDeriveIdentity_IgnoresContentType(t *testing.T) {
	a := NewParentDocument(SourceObject{ContainerID: "b", ObjectKey: "p1/x.pdf", DeclaredContentType: "application/pdf"})
	b := NewParentDocument(SourceObject{ContainerID: "b", ObjectKey: "p1/x.pdf", DeclaredContentType: "text/plain"})
	assert.Equal(t, a.ID, b.ID)
	assert.Equal(t, "p1/x", a.ID)
	assert.Equal(t, "p1/x.pdf", a.SourceObjectKey)
	assert.Empty(t, a.Analysis)
}
