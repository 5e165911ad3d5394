// Package html renders text/html objects as plain text.
package html

import (
	"context"
	"strings"

	"github.com/jaytaylor/html2text"

	"github.com/markdave123-py/Dossier/internal/core"
	"github.com/markdave123-py/Dossier/internal/extractors/rawtext"
)

var _ core.Backend = (*Extractor)(nil)

// Extractor converts markup to readable text. Script and style content is
// dropped and no line wrapping is applied.
type Extractor struct {
	decode *rawtext.Extractor
}

// New creates an HTML backend.
func New() *Extractor {
	return &Extractor{decode: rawtext.New()}
}

// Name returns the backend name.
func (e *Extractor) Name() string {
	return "html"
}

// Extract returns the rendered text of the document.
func (e *Extractor) Extract(ctx context.Context, src core.Source) (string, error) {
	markup, err := e.decode.Extract(ctx, src)
	if err != nil {
		return "", err
	}
	return Render(markup)
}

// Render converts an HTML string to plain text.
func Render(markup string) (string, error) {
	if strings.TrimSpace(markup) == "" {
		return "", nil
	}
	text, err := html2text.FromString(markup, html2text.Options{OmitLinks: true})
	if err != nil {
		return "", core.UnsupportedVariant("html", err)
	}
	return text, nil
}
