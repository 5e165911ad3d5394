// Package docx extracts body text from Office Open XML word-processing documents.
package docx

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"code.sajari.com/docconv"

	"github.com/markdave123-py/Dossier/internal/core"
)

var _ core.Backend = (*Extractor)(nil)

// Extractor wraps docconv's in-memory DOCX reader.
type Extractor struct{}

// New creates a DOCX backend.
func New() *Extractor {
	return &Extractor{}
}

// Name returns the backend name.
func (e *Extractor) Name() string {
	return "docx"
}

// Extract returns the document's raw text.
func (e *Extractor) Extract(_ context.Context, src core.Source) (text string, err error) {
	// docconv dereferences parts named by [Content_Types].xml without
	// checking they exist in the archive.
	defer func() {
		if r := recover(); r != nil {
			text, err = "", core.UnsupportedVariant("docx", fmt.Errorf("malformed package: %v", r))
		}
	}()

	text, _, err = docconv.ConvertDocx(bytes.NewReader(src.Content))
	if err != nil {
		return "", core.UnsupportedVariant("docx", err)
	}
	return strings.TrimSpace(text), nil
}
