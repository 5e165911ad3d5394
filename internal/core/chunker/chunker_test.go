package chunker

import (
	"math/rand"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunk_Empty(t *testing.T) {
	assert.Empty(t, Chunk("", 10))
}

func TestChunk_SmallerThanBound(t *testing.T) {
	chunks := Chunk("Hello world", DefaultMaxBytes)
	require.Len(t, chunks, 1)
	assert.Equal(t, "Hello world", chunks[0])
}

func TestChunk_ExactMultiple(t *testing.T) {
	chunks := Chunk("abcdefghij", 5)
	assert.Equal(t, []string{"abcde", "fghij"}, chunks)
}

func TestChunk_ShortTail(t *testing.T) {
	chunks := Chunk("abcdefghijk", 5)
	assert.Equal(t, []string{"abcde", "fghij", "k"}, chunks)
}

func TestChunk_MaxBytesOne(t *testing.T) {
	chunks := Chunk("abc", 1)
	assert.Equal(t, []string{"a", "b", "c"}, chunks)
}

func TestChunk_DefaultOnNonPositive(t *testing.T) {
	text := strings.Repeat("x", DefaultMaxBytes+1)
	chunks := Chunk(text, 0)
	require.Len(t, chunks, 2)
	assert.Len(t, chunks[0], DefaultMaxBytes)
	assert.Len(t, chunks[1], 1)
}

func TestChunk_RuneBoundaries(t *testing.T) {
	// "é" is 2 bytes, "€" is 3 bytes.
	text := "aé€bé€c"
	chunks := Chunk(text, 4)

	assert.Equal(t, text, strings.Join(chunks, ""))
	for _, c := range chunks {
		assert.True(t, utf8.ValidString(c), "chunk %q is not valid UTF-8", c)
		assert.LessOrEqual(t, len(c), 4)
	}
}

func TestChunk_RuneWiderThanBound(t *testing.T) {
	chunks := Chunk("€€", 2)
	assert.Equal(t, "€€", strings.Join(chunks, ""))
	for _, c := range chunks {
		assert.LessOrEqual(t, len(c), 2)
	}
}

func TestChunk_BoundHoldsBelowRuneWidth(t *testing.T) {
	chunks := Chunk("é", 1)
	assert.Equal(t, []string{"\xc3", "\xa9"}, chunks)
	assert.Equal(t, "é", strings.Join(chunks, ""))

	for maxBytes := 1; maxBytes < utf8.UTFMax; maxBytes++ {
		text := "aé€🙂"
		chunks := Chunk(text, maxBytes)
		require.Equal(t, text, strings.Join(chunks, ""), "maxBytes=%d", maxBytes)
		for _, c := range chunks {
			require.NotEmpty(t, c)
			require.LessOrEqual(t, len(c), maxBytes)
		}
	}
}

func TestChunk_RoundTripAndBound(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	alphabet := []rune("abc xyz\n\té€漢字🙂")

	for i := 0; i < 200; i++ {
		n := rng.Intn(300)
		var sb strings.Builder
		for j := 0; j < n; j++ {
			sb.WriteRune(alphabet[rng.Intn(len(alphabet))])
		}
		text := sb.String()
		maxBytes := utf8.UTFMax + rng.Intn(64)

		chunks := Chunk(text, maxBytes)
		require.Equal(t, text, strings.Join(chunks, ""), "round trip, maxBytes=%d", maxBytes)

		if len(text) < maxBytes && text != "" {
			require.Len(t, chunks, 1)
		}
		for _, c := range chunks {
			require.NotEmpty(t, c)
			require.LessOrEqual(t, len(c), maxBytes)
			require.True(t, utf8.ValidString(c))
		}
	}
}

func TestChunk_RoundTripASCIIAnyBound(t *testing.T) {
	text := "The quick brown fox jumps over the lazy dog"
	for maxBytes := 1; maxBytes <= len(text)+1; maxBytes++ {
		chunks := Chunk(text, maxBytes)
		assert.Equal(t, text, strings.Join(chunks, ""))
		for _, c := range chunks {
			assert.LessOrEqual(t, len(c), maxBytes)
		}
	}
}
