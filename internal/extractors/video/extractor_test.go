package video

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	vi "google.golang.org/api/videointelligence/v1"

	"github.com/markdave123-py/Dossier/internal/core"
	"github.com/markdave123-py/Dossier/internal/extractors/longrunning"
)

const annotated = `{"@type":"type.googleapis.com/google.cloud.videointelligence.v1.AnnotateVideoResponse",
"annotationResults":[{"inputUri":"/b/demo.mp4","speechTranscriptions":[
{"alternatives":[{"transcript":"Welcome to the demo.","confidence":0.91}],"languageCode":"en-us"},
{"alternatives":[]},
{"alternatives":[{"transcript":"Thanks for watching."}]}]}]}`

type fakeAnnotator struct {
	started  *vi.GoogleCloudVideointelligenceV1AnnotateVideoRequest
	pending  int
	gets     int
	names    []string
	final    *vi.GoogleLongrunningOperation
	startErr error
}

func (f *fakeAnnotator) Start(_ context.Context, req *vi.GoogleCloudVideointelligenceV1AnnotateVideoRequest) (*vi.GoogleLongrunningOperation, error) {
	f.started = req
	if f.startErr != nil {
		return nil, f.startErr
	}
	return &vi.GoogleLongrunningOperation{Name: "projects/p/locations/us-east1/operations/42"}, nil
}

func (f *fakeAnnotator) Get(_ context.Context, name string) (*vi.GoogleLongrunningOperation, error) {
	f.gets++
	f.names = append(f.names, name)
	if f.gets <= f.pending {
		return &vi.GoogleLongrunningOperation{Name: name}, nil
	}
	return f.final, nil
}

func poller() *longrunning.Poller {
	return &longrunning.Poller{Interval: time.Millisecond, MaxWait: time.Second}
}

func TestName(t *testing.T) {
	e := New(&fakeAnnotator{}, "", nil)
	assert.Equal(t, "video", e.Name())
	assert.True(t, core.ReadsURI(e))
}

func TestExtract_SpeechTranscriptionByURI(t *testing.T) {
	ann := &fakeAnnotator{pending: 1, final: &vi.GoogleLongrunningOperation{Done: true, Response: []byte(annotated)}}

	text, err := New(ann, "en-GB", poller()).Extract(context.Background(), core.Source{URI: "gs://b/demo.mp4"})
	require.NoError(t, err)
	assert.Equal(t, "Welcome to the demo.\nThanks for watching.", text)

	assert.Equal(t, []string{"SPEECH_TRANSCRIPTION"}, ann.started.Features)
	assert.Equal(t, "gs://b/demo.mp4", ann.started.InputUri)
	assert.Empty(t, ann.started.InputContent)
	cfg := ann.started.VideoContext.SpeechTranscriptionConfig
	assert.Equal(t, "en-GB", cfg.LanguageCode)
	assert.True(t, cfg.EnableAutomaticPunctuation)
	assert.Equal(t, []string{"projects/p/locations/us-east1/operations/42", "projects/p/locations/us-east1/operations/42"}, ann.names)
}

func TestExtract_InlineContent(t *testing.T) {
	ann := &fakeAnnotator{final: &vi.GoogleLongrunningOperation{Done: true, Response: []byte(`{"annotationResults":[{}]}`)}}

	text, err := New(ann, "", poller()).Extract(context.Background(), core.Source{Content: []byte("mp4")})
	require.NoError(t, err)
	assert.Empty(t, text)
	assert.Equal(t, "bXA0", ann.started.InputContent)
	assert.Equal(t, "en-US", ann.started.VideoContext.SpeechTranscriptionConfig.LanguageCode)
}

func TestExtract_OperationError(t *testing.T) {
	ann := &fakeAnnotator{final: &vi.GoogleLongrunningOperation{Done: true, Error: &vi.GoogleRpcStatus{Code: 7, Message: "denied"}}}

	_, err := New(ann, "", poller()).Extract(context.Background(), core.Source{URI: "gs://b/v.mp4"})
	assert.ErrorIs(t, err, core.ErrExtractionFailed)
	assert.Contains(t, err.Error(), "denied")
}

func TestExtract_ResultError(t *testing.T) {
	ann := &fakeAnnotator{final: &vi.GoogleLongrunningOperation{Done: true,
		Response: []byte(`{"annotationResults":[{"error":{"code":3,"message":"unsupported codec"}}]}`)}}

	_, err := New(ann, "", poller()).Extract(context.Background(), core.Source{URI: "gs://b/v.mp4"})
	assert.ErrorIs(t, err, core.ErrExtractionFailed)
	assert.Contains(t, err.Error(), "unsupported codec")
}

func TestExtract_StartError(t *testing.T) {
	boom := errors.New("invalid argument")
	_, err := New(&fakeAnnotator{startErr: boom}, "", poller()).Extract(context.Background(), core.Source{URI: "gs://b/v.mp4"})
	assert.ErrorIs(t, err, core.ErrExtractionFailed)
	assert.ErrorIs(t, err, boom)
}

func TestExtract_Timeout(t *testing.T) {
	ann := &fakeAnnotator{pending: 1 << 30}
	p := &longrunning.Poller{Interval: time.Millisecond, MaxWait: 20 * time.Millisecond}

	_, err := New(ann, "", p).Extract(context.Background(), core.Source{URI: "gs://b/v.mp4"})
	assert.ErrorIs(t, err, core.ErrTimeout)
}

func TestExtract_NoInput(t *testing.T) {
	_, err := New(&fakeAnnotator{}, "", poller()).Extract(context.Background(), core.Source{})
	assert.ErrorIs(t, err, core.ErrExtractionFailed)
}
