package core

import (
	"context"
	"strings"

	"github.com/markdave123-py/Dossier/internal/models"
)

// Source is what a backend extracts from: the object reference, its parsed
// media type and parameters, and either its bytes or a storage URI (or both).
//
// URI is only set when a remote inference service can read the object in
// place; backends that call such a service prefer it to avoid a second transfer.
type Source struct {
	Object    models.SourceObject
	MediaType string
	Params    map[string]string
	URI       string
	Content   []byte
	Hints     Hints
}

// Hints are what the format registry tells a backend about the input.
type Hints struct {
	// DocumentMode asks OCR for multi-page document detection instead of single-image.
	DocumentMode bool

	// AudioEncoding is set only for raw sample encodings; SampleRateHz is 0
	// when the declaration does not state it.
	AudioEncoding string
	SampleRateHz  int
	AudioChannels int
}

// HasURI reports whether the object can be handed to a remote service by reference.
func (s Source) HasURI() bool {
	return strings.TrimSpace(s.URI) != ""
}

// Backend converts one source object into a single extracted-text string.
// An empty string is a valid result; the coordinator decides what it means.
type Backend interface {
	// Name identifies the backend in logs and error context.
	Name() string

	// Extract returns the text of src. Errors match ErrExtractionFailed,
	// ErrUnsupportedVariant or ErrTimeout.
	Extract(ctx context.Context, src Source) (string, error)
}

// BackendFunc adapts a plain function into a Backend.
type BackendFunc struct {
	BackendName string
	Fn          func(ctx context.Context, src Source) (string, error)
}

func (f BackendFunc) Name() string { return f.BackendName }

func (f BackendFunc) Extract(ctx context.Context, src Source) (string, error) {
	return f.Fn(ctx, src)
}

// URIReader is implemented by backends able to read an object in place
// through Source.URI. The coordinator skips the download for them when the
// object store supplies a URI.
type URIReader interface {
	ReadsURI() bool
}

// ReadsURI reports whether b accepts a URI in place of content.
func ReadsURI(b Backend) bool {
	r, ok := b.(URIReader)
	return ok && r.ReadsURI()
}
