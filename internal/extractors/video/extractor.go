// Package video transcribes the speech track of videos with the Video
// Intelligence API.
package video

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/api/option"
	vi "google.golang.org/api/videointelligence/v1"

	"github.com/markdave123-py/Dossier/internal/core"
	"github.com/markdave123-py/Dossier/internal/extractors/longrunning"
)

// Annotator starts an annotation operation and fetches its state.
type Annotator interface {
	Start(ctx context.Context, req *vi.GoogleCloudVideointelligenceV1AnnotateVideoRequest) (*vi.GoogleLongrunningOperation, error)
	Get(ctx context.Context, name string) (*vi.GoogleLongrunningOperation, error)
}

type restAnnotator struct {
	svc *vi.Service
}

// NewAnnotator creates a Video Intelligence REST client.
func NewAnnotator(ctx context.Context, opts ...option.ClientOption) (Annotator, error) {
	svc, err := vi.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("video intelligence client: %w", err)
	}
	return &restAnnotator{svc: svc}, nil
}

func (a *restAnnotator) Start(ctx context.Context, req *vi.GoogleCloudVideointelligenceV1AnnotateVideoRequest) (*vi.GoogleLongrunningOperation, error) {
	return a.svc.Videos.Annotate(req).Context(ctx).Do()
}

func (a *restAnnotator) Get(ctx context.Context, name string) (*vi.GoogleLongrunningOperation, error) {
	return a.svc.Projects.Locations.Operations.Get(name).Context(ctx).Do()
}

var (
	_ core.Backend   = (*Extractor)(nil)
	_ core.URIReader = (*Extractor)(nil)
)

// Extractor requests speech transcription only and waits for the result.
type Extractor struct {
	ann          Annotator
	languageCode string
	poller       *longrunning.Poller
}

// New creates a video backend.
func New(ann Annotator, languageCode string, poller *longrunning.Poller) *Extractor {
	if languageCode == "" {
		languageCode = "en-US"
	}
	if poller == nil {
		poller = &longrunning.Poller{}
	}
	return &Extractor{ann: ann, languageCode: languageCode, poller: poller}
}

// Name returns the backend name.
func (e *Extractor) Name() string {
	return "video"
}

// ReadsURI implements core.URIReader.
func (e *Extractor) ReadsURI() bool {
	return true
}

// Extract returns one line per speech transcription of the first result.
func (e *Extractor) Extract(ctx context.Context, src core.Source) (string, error) {
	req := &vi.GoogleCloudVideointelligenceV1AnnotateVideoRequest{
		Features: []string{"SPEECH_TRANSCRIPTION"},
		VideoContext: &vi.GoogleCloudVideointelligenceV1VideoContext{
			SpeechTranscriptionConfig: &vi.GoogleCloudVideointelligenceV1SpeechTranscriptionConfig{
				LanguageCode:               e.languageCode,
				EnableAutomaticPunctuation: true,
			},
		},
	}
	switch {
	case src.HasURI():
		req.InputUri = src.URI
	case len(src.Content) > 0:
		req.InputContent = base64.StdEncoding.EncodeToString(src.Content)
	default:
		return "", core.ExtractionFailed("video", errors.New("no video to transcribe"))
	}

	op, err := e.ann.Start(ctx, req)
	if err != nil {
		return "", core.ExtractionFailed("video annotate", err)
	}

	err = e.poller.Wait(ctx, "video annotate", func(ctx context.Context) (bool, error) {
		if op.Done {
			return true, nil
		}
		next, err := e.ann.Get(ctx, op.Name)
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
		return "", core.ExtractionFailed("video annotate", fmt.Errorf("%s (code %d)", op.Error.Message, op.Error.Code))
	}
	return transcript(op.Response)
}

type annotateResponse struct {
	AnnotationResults []struct {
		SpeechTranscriptions []struct {
			Alternatives []struct {
				Transcript string `json:"transcript"`
			} `json:"alternatives"`
		} `json:"speechTranscriptions"`
		Error *struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	} `json:"annotationResults"`
}

func transcript(raw []byte) (string, error) {
	if len(raw) == 0 {
		return "", nil
	}
	var resp annotateResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", core.ExtractionFailed("decode video response", err)
	}
	if len(resp.AnnotationResults) == 0 {
		return "", nil
	}
	first := resp.AnnotationResults[0]
	if first.Error != nil && first.Error.Code != 0 {
		return "", core.ExtractionFailed("video annotate", fmt.Errorf("%s (code %d)", first.Error.Message, first.Error.Code))
	}

	lines := make([]string, 0, len(first.SpeechTranscriptions))
	for _, t := range first.SpeechTranscriptions {
		if len(t.Alternatives) == 0 {
			continue
		}
		if s := strings.TrimSpace(t.Alternatives[0].Transcript); s != "" {
			lines = append(lines, s)
		}
	}
	return strings.Join(lines, "\n"), nil
}
