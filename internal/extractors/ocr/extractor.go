// Package ocr recognises text in images and PDF documents through a remote
// OCR engine (Cloud Vision or Gemini).
package ocr

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/markdave123-py/Dossier/internal/core"
)

// DefaultTimeout bounds a single OCR request when none is configured.
const DefaultTimeout = 2 * time.Minute

// Engine performs the remote recognition call.
type Engine interface {
	Name() string

	// Image recognises text in a single picture.
	Image(ctx context.Context, src core.Source) (string, error)

	// Document recognises every page of a multi-page document.
	Document(ctx context.Context, src core.Source) (string, error)

	// ReadsURI reports whether Document can read src.URI without content.
	ReadsURI() bool
}

var (
	_ core.Backend   = (*Extractor)(nil)
	_ core.URIReader = (*Extractor)(nil)
)

// Extractor routes a source to image or document recognition and bounds the
// call with a timeout.
type Extractor struct {
	engine  Engine
	timeout time.Duration
}

// New creates an OCR backend on top of engine.
func New(engine Engine, timeout time.Duration) *Extractor {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Extractor{engine: engine, timeout: timeout}
}

// Name returns the backend name, qualified by the engine.
func (e *Extractor) Name() string {
	return "ocr/" + e.engine.Name()
}

// ReadsURI implements core.URIReader.
func (e *Extractor) ReadsURI() bool {
	return e.engine.ReadsURI()
}

// Extract recognises the text of src. Document mode is used for PDFs.
func (e *Extractor) Extract(ctx context.Context, src core.Source) (string, error) {
	if len(src.Content) == 0 && !(src.Hints.DocumentMode && src.HasURI() && e.engine.ReadsURI()) {
		return "", core.ExtractionFailed("ocr", errors.New("no content to recognise"))
	}

	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	var (
		text string
		err  error
	)
	if src.Hints.DocumentMode {
		text, err = e.engine.Document(callCtx, src)
	} else {
		text, err = e.engine.Image(callCtx, src)
	}
	if err != nil {
		if errors.Is(err, core.ErrExtractionFailed) {
			return "", err
		}
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return "", core.ExtractionFailed(e.Name(), fmt.Errorf("%w after %s", core.ErrTimeout, e.timeout))
		}
		return "", core.ExtractionFailed(e.Name(), err)
	}
	return strings.TrimSpace(text), nil
}
