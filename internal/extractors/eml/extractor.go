// Package eml extracts the readable content of RFC 822 messages.
package eml

import (
	"bytes"
	"context"
	"encoding/base64"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"strings"

	"github.com/markdave123-py/Dossier/internal/core"
	"github.com/markdave123-py/Dossier/internal/extractors/html"
)

var _ core.Backend = (*Extractor)(nil)

// Extractor renders the message headers followed by its body. When a message
// carries both an HTML and a plain-text body the HTML one is rendered.
type Extractor struct{}

// New creates an email backend.
func New() *Extractor {
	return &Extractor{}
}

// Name returns the backend name.
func (e *Extractor) Name() string {
	return "eml"
}

// Extract parses the message in src.Content.
func (e *Extractor) Extract(_ context.Context, src core.Source) (string, error) {
	msg, err := mail.ReadMessage(bytes.NewReader(src.Content))
	if err != nil {
		return "", core.UnsupportedVariant("eml", err)
	}

	b, err := readPart(msg.Header.Get("Content-Type"), msg.Header.Get("Content-Transfer-Encoding"), msg.Body)
	if err != nil {
		return "", core.UnsupportedVariant("eml", err)
	}
	body, err := b.render()
	if err != nil {
		return "", err
	}

	var out strings.Builder
	for _, h := range []string{"From", "To", "Date", "Subject"} {
		v := decodeHeader(msg.Header.Get(h))
		if v == "" {
			continue
		}
		out.WriteString(h)
		out.WriteString(": ")
		out.WriteString(v)
		out.WriteString("\n")
	}
	if out.Len() > 0 && body != "" {
		out.WriteString("\n")
	}
	out.WriteString(body)

	return strings.TrimSpace(out.String()), nil
}

// bodies collects the candidate text bodies of a message in document order.
type bodies struct {
	plain []string
	html  []string
}

func (b *bodies) merge(o bodies) {
	b.plain = append(b.plain, o.plain...)
	b.html = append(b.html, o.html...)
}

func (b bodies) render() (string, error) {
	if len(b.html) > 0 {
		parts := make([]string, 0, len(b.html))
		for _, h := range b.html {
			text, err := html.Render(h)
			if err != nil {
				return "", err
			}
			if text != "" {
				parts = append(parts, text)
			}
		}
		if len(parts) > 0 {
			return strings.Join(parts, "\n\n"), nil
		}
	}
	return strings.TrimSpace(strings.Join(b.plain, "\n")), nil
}

func readPart(contentType, transferEncoding string, r io.Reader) (bodies, error) {
	var out bodies
	if contentType == "" {
		contentType = "text/plain"
	}
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = "text/plain"
	}

	if strings.HasPrefix(mediaType, "multipart/") {
		boundary := params["boundary"]
		if boundary == "" {
			return out, nil
		}
		mr := multipart.NewReader(r, boundary)
		for {
			p, err := mr.NextPart()
			if err == io.EOF {
				break
			}
			if err != nil {
				return out, err
			}
			if isAttachment(p.Header.Get("Content-Disposition")) {
				p.Close()
				continue
			}
			nested, err := readPart(p.Header.Get("Content-Type"), p.Header.Get("Content-Transfer-Encoding"), p)
			p.Close()
			if err != nil {
				return out, err
			}
			out.merge(nested)
		}
		return out, nil
	}

	if mediaType != "text/plain" && mediaType != "text/html" {
		return out, nil
	}
	raw, err := io.ReadAll(decodeTransfer(transferEncoding, r))
	if err != nil {
		return out, err
	}
	if mediaType == "text/html" {
		out.html = append(out.html, string(raw))
	} else {
		out.plain = append(out.plain, string(raw))
	}
	return out, nil
}

// decodeTransfer undoes Content-Transfer-Encoding. multipart.Reader already
// strips quoted-printable from parts and removes the header when it does.
func decodeTransfer(encoding string, r io.Reader) io.Reader {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "base64":
		return base64.NewDecoder(base64.StdEncoding, newlineStripper{r})
	case "quoted-printable":
		return quotedprintable.NewReader(r)
	default:
		return r
	}
}

// newlineStripper drops CR and LF so line-wrapped base64 decodes.
type newlineStripper struct{ r io.Reader }

func (n newlineStripper) Read(p []byte) (int, error) {
	for {
		c, err := n.r.Read(p)
		j := 0
		for _, b := range p[:c] {
			if b != '\r' && b != '\n' {
				p[j] = b
				j++
			}
		}
		if j > 0 || err != nil {
			return j, err
		}
	}
}

func isAttachment(disposition string) bool {
	if disposition == "" {
		return false
	}
	d, _, err := mime.ParseMediaType(disposition)
	return err == nil && d == "attachment"
}

// decodeHeader decodes RFC 2047 encoded words, returning the raw value on failure.
func decodeHeader(header string) string {
	if header == "" {
		return ""
	}
	dec := new(mime.WordDecoder)
	decoded, err := dec.DecodeHeader(header)
	if err != nil {
		return header
	}
	return decoded
}
