// Package chunker splits extracted text into bounded-size, ordered pieces.
package chunker

import "unicode/utf8"

// DefaultMaxBytes is the chunk bound used when none is configured (500 KiB).
const DefaultMaxBytes = 500 * 1024

// Chunk splits text into consecutive, non-overlapping pieces of at most
// maxBytes bytes each; joining the result in order reproduces text exactly.
//
// Cuts are moved back to the nearest rune boundary so pieces stay valid
// UTF-8. The byte bound always holds: when a rune is wider than maxBytes
// (only possible below utf8.UTFMax) the cut falls at maxBytes inside it.
// maxBytes < 1 selects DefaultMaxBytes.
func Chunk(text string, maxBytes int) []string {
	if text == "" {
		return nil
	}
	if maxBytes < 1 {
		maxBytes = DefaultMaxBytes
	}
	if len(text) <= maxBytes {
		return []string{text}
	}

	out := make([]string, 0, len(text)/maxBytes+1)
	for len(text) > maxBytes {
		cut := maxBytes
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		if cut == 0 {
			cut = maxBytes
		}
		out = append(out, text[:cut])
		text = text[cut:]
	}
	if text != "" {
		out = append(out, text)
	}
	return out
}
