// Package formats maps declared media types to extraction backend variants.
package formats

import (
	"fmt"
	"mime"
	"strconv"
	"strings"
	"sync"

	"github.com/markdave123-py/Dossier/internal/core"
)

// Variant tags the backend family a media type is routed to.
type Variant int

const (
	Unsupported Variant = iota
	OCR
	Speech
	Video
	OfficeWord
	OfficeSlide
	OfficeSheet
	ODF
	Email
	HTML
	RawText
)

var variantNames = [...]string{
	Unsupported: "unsupported",
	OCR:         "ocr",
	Speech:      "speech",
	Video:       "video",
	OfficeWord:  "docx",
	OfficeSlide: "pptx",
	OfficeSheet: "xlsx",
	ODF:         "odt",
	Email:       "eml",
	HTML:        "html",
	RawText:     "rawtext",
}

func (v Variant) String() string {
	if int(v) < 0 || int(v) >= len(variantNames) {
		return "variant(" + strconv.Itoa(int(v)) + ")"
	}
	return variantNames[v]
}

// Variants lists every routable variant (Unsupported excluded).
func Variants() []Variant {
	return []Variant{OCR, Speech, Video, OfficeWord, OfficeSlide, OfficeSheet, ODF, Email, HTML, RawText}
}

// OCRMode selects between multi-page document OCR and single-image OCR.
type OCRMode int

const (
	OCRNone OCRMode = iota
	OCRDocument
	OCRImage
)

// Media types with exact-match routing.
const (
	MediaPDF  = "application/pdf"
	MediaDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MediaPPTX = "application/vnd.openxmlformats-officedocument.presentationml.presentation"
	MediaXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	MediaODT  = "application/vnd.oasis.opendocument.text"
	MediaEML  = "message/rfc822"
	MediaHTML = "text/html"
)

// Raw audio sample encodings the speech backend must be told explicitly.
const (
	EncodingLinear16 = "LINEAR16"
	EncodingMulaw    = "MULAW"
)

// AudioFormat carries what the declared type says about a raw audio stream.
// SampleRateHz is 0 when the declaration does not state it; the registry
// never guesses one.
type AudioFormat struct {
	Encoding     string
	SampleRateHz int
	Channels     int
}

// Dispatch is the outcome of resolving one declared content type.
type Dispatch struct {
	Variant    Variant
	MediaType  string
	Params     map[string]string
	OCRMode    OCRMode
	Audio      AudioFormat
	PrefersURI bool
}

// ParseContentType splits a declared content type into a lower-cased media
// type and its parameters. Malformed parameters are dropped rather than
// failing the whole declaration.
func ParseContentType(contentType string) (string, map[string]string) {
	ct := strings.TrimSpace(contentType)
	if ct == "" {
		return "", map[string]string{}
	}
	mediaType, params, err := mime.ParseMediaType(ct)
	if err != nil {
		base, _, _ := strings.Cut(ct, ";")
		return strings.ToLower(strings.TrimSpace(base)), map[string]string{}
	}
	return mediaType, params
}

// Resolve applies the dispatch rules in priority order. ok is false when no
// variant handles the type.
func Resolve(contentType string) (Dispatch, bool) {
	mediaType, params := ParseContentType(contentType)
	d := Dispatch{MediaType: mediaType, Params: params}

	major, minor, _ := strings.Cut(mediaType, "/")
	switch {
	case mediaType == MediaPDF:
		d.Variant, d.OCRMode, d.PrefersURI = OCR, OCRDocument, true
	case major == "image" && minor != "":
		d.Variant, d.OCRMode = OCR, OCRImage
	case major == "audio" && minor != "":
		d.Variant, d.PrefersURI = Speech, true
		d.Audio = audioFormat(minor, params)
	case major == "video" && minor != "":
		d.Variant, d.PrefersURI = Video, true
	case mediaType == MediaEML:
		d.Variant = Email
	case mediaType == MediaHTML:
		d.Variant = HTML
	case major == "text" && minor != "":
		d.Variant = RawText
	case mediaType == MediaDOCX:
		d.Variant = OfficeWord
	case mediaType == MediaPPTX:
		d.Variant = OfficeSlide
	case mediaType == MediaXLSX:
		d.Variant = OfficeSheet
	case mediaType == MediaODT:
		d.Variant = ODF
	default:
		d.Variant = Unsupported
		return d, false
	}
	return d, true
}

// audioFormat recognises the uncompressed families (RFC 2586 audio/L16 and
// the 8 kHz mu-law audio/basic). Compressed containers carry their own
// headers and are left for the service to detect.
func audioFormat(subtype string, params map[string]string) AudioFormat {
	var af AudioFormat
	switch subtype {
	case "l16", "x-l16", "linear16", "x-linear16":
		af.Encoding = EncodingLinear16
	case "basic", "pcmu", "x-mulaw":
		af.Encoding = EncodingMulaw
		af.SampleRateHz = 8000
	default:
		return af
	}
	if rate, err := strconv.Atoi(params["rate"]); err == nil && rate > 0 {
		af.SampleRateHz = rate
	}
	if ch, err := strconv.Atoi(params["channels"]); err == nil && ch > 0 {
		af.Channels = ch
	}
	return af
}

// Registry holds one handler per variant.
type Registry struct {
	mu       sync.RWMutex
	backends map[Variant]core.Backend
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{backends: make(map[Variant]core.Backend)}
}

// Register installs b as the handler for v, replacing any previous one.
func (r *Registry) Register(v Variant, b core.Backend) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.backends[v] = b
}

// Missing returns the routable variants that have no handler.
func (r *Registry) Missing() []Variant {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Variant
	for _, v := range Variants() {
		if _, ok := r.backends[v]; !ok {
			out = append(out, v)
		}
	}
	return out
}

// Lookup resolves contentType to its dispatch and handler. It returns an
// error matching core.ErrUnsupportedContentType when the type is unmatched
// or its variant has no handler installed.
func (r *Registry) Lookup(contentType string) (Dispatch, core.Backend, error) {
	d, ok := Resolve(contentType)
	if !ok {
		return d, nil, fmt.Errorf("%w: %q", core.ErrUnsupportedContentType, contentType)
	}
	r.mu.RLock()
	b, ok := r.backends[d.Variant]
	r.mu.RUnlock()
	if !ok {
		return d, nil, fmt.Errorf("%w: %q (no %s backend configured)", core.ErrUnsupportedContentType, contentType, d.Variant)
	}
	return d, b, nil
}
