// Package odt extracts text from OpenDocument text files.
package odt

import (
	"context"
	"fmt"
	"os"
	"strings"

	"code.sajari.com/docconv"

	"github.com/markdave123-py/Dossier/internal/core"
)

var _ core.Backend = (*Extractor)(nil)

// Extractor hands the document to a path-based converter. The bytes are
// written to a temporary file that is removed on every return path.
type Extractor struct {
	dir     string
	convert func(path string) (string, error)
}

// New creates an ODT backend that writes its scratch files under dir
// (os.TempDir when empty).
func New(dir string) *Extractor {
	return &Extractor{dir: dir, convert: convertPath}
}

// Name returns the backend name.
func (e *Extractor) Name() string {
	return "odt"
}

// Extract returns the text of the document.
func (e *Extractor) Extract(ctx context.Context, src core.Source) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	path, err := e.spill(src.Content)
	if err != nil {
		return "", core.ExtractionFailed("odt scratch file", err)
	}
	defer os.Remove(path)

	text, err := e.convert(path)
	if err != nil {
		return "", core.UnsupportedVariant("odt", err)
	}
	return strings.TrimSpace(text), nil
}

func (e *Extractor) spill(content []byte) (string, error) {
	f, err := os.CreateTemp(e.dir, "dossier-*.odt")
	if err != nil {
		return "", err
	}
	path := f.Name()
	if _, err := f.Write(content); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("close %s: %w", path, err)
	}
	return path, nil
}

func convertPath(path string) (string, error) {
	res, err := docconv.ConvertPath(path)
	if err != nil {
		return "", err
	}
	return res.Body, nil
}
