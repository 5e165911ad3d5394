package ocr

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/markdave123-py/Dossier/internal/core"
)

const transcribePrompt = "Transcribe all text in this file exactly as written, in reading order. " +
	"Return only the transcribed text with no commentary. If there is no text, return nothing."

// generator is the part of *genai.GenerativeModel the engine uses.
type generator interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

// GeminiEngine transcribes text with a multimodal Gemini model. It needs the
// object bytes; storage URIs are not readable by the API.
type GeminiEngine struct {
	client *genai.Client
	model  generator
}

// NewGeminiEngine creates a Gemini client for modelName.
func NewGeminiEngine(ctx context.Context, apiKey, modelName string) (*GeminiEngine, error) {
	if apiKey == "" {
		return nil, errors.New("gemini: api key is required")
	}
	cl, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	if modelName == "" {
		modelName = "gemini-1.5-flash"
	}
	m := cl.GenerativeModel(modelName)
	m.SetTemperature(0)
	return &GeminiEngine{client: cl, model: m}, nil
}

func (g *GeminiEngine) Name() string { return "gemini" }

func (g *GeminiEngine) ReadsURI() bool { return false }

// Close releases the underlying client.
func (g *GeminiEngine) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}

func (g *GeminiEngine) Image(ctx context.Context, src core.Source) (string, error) {
	return g.transcribe(ctx, src)
}

func (g *GeminiEngine) Document(ctx context.Context, src core.Source) (string, error) {
	return g.transcribe(ctx, src)
}

func (g *GeminiEngine) transcribe(ctx context.Context, src core.Source) (string, error) {
	if len(src.Content) == 0 {
		return "", errors.New("gemini: inline content is required")
	}
	resp, err := g.model.GenerateContent(ctx,
		genai.Blob{MIMEType: src.MediaType, Data: src.Content},
		genai.Text(transcribePrompt),
	)
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", nil
	}

	var b strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if t, ok := p.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	return b.String(), nil
}
