// Package rawtext passes text/* objects through, decoded to UTF-8.
package rawtext

import (
	"context"
	"strings"

	"golang.org/x/text/encoding/htmlindex"

	"github.com/markdave123-py/Dossier/internal/core"
)

var _ core.Backend = (*Extractor)(nil)

// Extractor decodes the object bytes as text. A declared charset other than
// UTF-8 is transcoded; invalid sequences become U+FFFD.
type Extractor struct{}

// New creates a raw-text passthrough backend.
func New() *Extractor {
	return &Extractor{}
}

// Name returns the backend name.
func (e *Extractor) Name() string {
	return "rawtext"
}

// Extract returns the decoded content of src.
func (e *Extractor) Extract(_ context.Context, src core.Source) (string, error) {
	if len(src.Content) == 0 {
		return "", nil
	}

	charset := strings.ToLower(strings.TrimSpace(src.Params["charset"]))
	if charset != "" && charset != "utf-8" && charset != "utf8" && charset != "us-ascii" {
		enc, err := htmlindex.Get(charset)
		if err != nil {
			return "", core.UnsupportedVariant("charset "+charset, err)
		}
		decoded, err := enc.NewDecoder().Bytes(src.Content)
		if err != nil {
			return "", core.UnsupportedVariant("charset "+charset, err)
		}
		return strings.ToValidUTF8(string(decoded), "\ufffd"), nil
	}

	text := string(src.Content)
	text = strings.TrimPrefix(text, "\ufeff")
	return strings.ToValidUTF8(text, "\ufffd"), nil
}
