package core

import (
	"errors"
	"fmt"
)

// Error taxonomy of the ingestion pipeline.
// UnsupportedContentType and EmptyExtraction are outcomes, not failures:
// the coordinator resolves them to a skipped result.
var (
	// ErrInvalidInput indicates a trigger missing one of its required fields.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedContentType indicates no backend is registered for a media type.
	ErrUnsupportedContentType = errors.New("unsupported content type")

	// ErrExtractionFailed indicates a backend or its remote service errored.
	ErrExtractionFailed = errors.New("extraction failed")

	// ErrUnsupportedVariant indicates bytes a backend cannot parse (e.g. a corrupt archive).
	ErrUnsupportedVariant = errors.New("unsupported variant")

	// ErrTimeout indicates a backend did not complete within its configured wait.
	ErrTimeout = errors.New("timeout")

	// ErrEmptyExtraction indicates extraction produced no usable text.
	ErrEmptyExtraction = errors.New("no text could be extracted from the document")

	// ErrPersistenceFailed indicates the batch commit was rejected.
	ErrPersistenceFailed = errors.New("persistence failed")

	// ErrNotFound indicates a requested document or object does not exist.
	ErrNotFound = errors.New("not found")
)

// StageError records where an ingestion run failed, with enough context
// (object key, attempted backend) for an operator to diagnose it.
type StageError struct {
	Stage     string
	ObjectKey string
	Backend   string
	Err       error
}

func (e *StageError) Error() string {
	if e.Backend != "" {
		return fmt.Sprintf("%s %q (backend %s): %v", e.Stage, e.ObjectKey, e.Backend, e.Err)
	}
	return fmt.Sprintf("%s %q: %v", e.Stage, e.ObjectKey, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// ExtractionFailed wraps a backend error so it matches ErrExtractionFailed
// while keeping the underlying cause in the chain.
func ExtractionFailed(reason string, err error) error {
	if err == nil {
		return fmt.Errorf("%w: %s", ErrExtractionFailed, reason)
	}
	return fmt.Errorf("%w: %s: %w", ErrExtractionFailed, reason, err)
}

// UnsupportedVariant wraps a parse error so it matches ErrUnsupportedVariant.
func UnsupportedVariant(format string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrUnsupportedVariant, format, err)
}
