// Package speech transcribes audio with Cloud Speech-to-Text long-running
// recognition.
package speech

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/api/option"
	speech "google.golang.org/api/speech/v1"

	"github.com/markdave123-py/Dossier/internal/core"
	"github.com/markdave123-py/Dossier/internal/extractors/longrunning"
)

// Recognizer starts a recognition operation and fetches its state.
type Recognizer interface {
	Start(ctx context.Context, req *speech.LongRunningRecognizeRequest) (*speech.Operation, error)
	Get(ctx context.Context, name string) (*speech.Operation, error)
}

type restRecognizer struct {
	svc *speech.Service
}

// NewRecognizer creates a Speech-to-Text REST client.
func NewRecognizer(ctx context.Context, opts ...option.ClientOption) (Recognizer, error) {
	svc, err := speech.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("speech client: %w", err)
	}
	return &restRecognizer{svc: svc}, nil
}

func (r *restRecognizer) Start(ctx context.Context, req *speech.LongRunningRecognizeRequest) (*speech.Operation, error) {
	return r.svc.Speech.Longrunningrecognize(req).Context(ctx).Do()
}

func (r *restRecognizer) Get(ctx context.Context, name string) (*speech.Operation, error) {
	return r.svc.Operations.Get(name).Context(ctx).Do()
}

// Config tunes recognition.
type Config struct {
	LanguageCode string

	// SampleRateHz is used for raw encodings whose content type states no rate.
	// Zero means such audio is rejected instead of guessed.
	SampleRateHz int

	Poller *longrunning.Poller
}

var (
	_ core.Backend   = (*Extractor)(nil)
	_ core.URIReader = (*Extractor)(nil)
)

// Extractor transcribes audio and waits for the operation to finish.
type Extractor struct {
	rec    Recognizer
	cfg    Config
	poller *longrunning.Poller
}

// New creates a speech backend.
func New(rec Recognizer, cfg Config) *Extractor {
	if cfg.LanguageCode == "" {
		cfg.LanguageCode = "en-US"
	}
	p := cfg.Poller
	if p == nil {
		p = &longrunning.Poller{}
	}
	return &Extractor{rec: rec, cfg: cfg, poller: p}
}

// Name returns the backend name.
func (e *Extractor) Name() string {
	return "speech"
}

// ReadsURI implements core.URIReader.
func (e *Extractor) ReadsURI() bool {
	return true
}

// Extract transcribes src, one line per recognised result.
func (e *Extractor) Extract(ctx context.Context, src core.Source) (string, error) {
	config, err := e.recognitionConfig(src.Hints)
	if err != nil {
		return "", err
	}

	audio := &speech.RecognitionAudio{}
	switch {
	case src.HasURI():
		audio.Uri = src.URI
	case len(src.Content) > 0:
		audio.Content = base64.StdEncoding.EncodeToString(src.Content)
	default:
		return "", core.ExtractionFailed("speech", errors.New("no audio to transcribe"))
	}

	op, err := e.rec.Start(ctx, &speech.LongRunningRecognizeRequest{Config: config, Audio: audio})
	if err != nil {
		return "", core.ExtractionFailed("speech recognize", err)
	}

	err = e.poller.Wait(ctx, "speech recognize", func(ctx context.Context) (bool, error) {
		if op.Done {
			return true, nil
		}
		next, err := e.rec.Get(ctx, op.Name)
		if err != nil {
			return false, err
		}
		op = next
		return op.Done, nil
	})
	if err != nil {
		return "", err
	}

	if op.Error != nil {
		return "", core.ExtractionFailed("speech recognize", fmt.Errorf("%s (code %d)", op.Error.Message, op.Error.Code))
	}
	return transcript(op.Response)
}

func (e *Extractor) recognitionConfig(h core.Hints) (*speech.RecognitionConfig, error) {
	cfg := &speech.RecognitionConfig{
		LanguageCode:               e.cfg.LanguageCode,
		EnableAutomaticPunctuation: true,
	}
	if h.AudioEncoding == "" {
		return cfg, nil
	}

	cfg.Encoding = h.AudioEncoding
	rate := h.SampleRateHz
	if rate == 0 {
		rate = e.cfg.SampleRateHz
	}
	if rate == 0 {
		return nil, core.ExtractionFailed("sample rate required", fmt.Errorf("%s audio declares no rate", h.AudioEncoding))
	}
	cfg.SampleRateHertz = int64(rate)
	if h.AudioChannels > 1 {
		cfg.AudioChannelCount = int64(h.AudioChannels)
	}
	return cfg, nil
}

type recognizeResponse struct {
	Results []struct {
		Alternatives []struct {
			Transcript string `json:"transcript"`
		} `json:"alternatives"`
	} `json:"results"`
}

func transcript(raw []byte) (string, error) {
	if len(raw) == 0 {
		return "", nil
	}
	var resp recognizeResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", core.ExtractionFailed("decode speech response", err)
	}
	lines := make([]string, 0, len(resp.Results))
	for _, r := range resp.Results {
		if len(r.Alternatives) == 0 {
			continue
		}
		lines = append(lines, strings.TrimSpace(r.Alternatives[0].Transcript))
	}
	return strings.Join(lines, "\n"), nil
}
