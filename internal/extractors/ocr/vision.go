package ocr

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/api/option"
	vision "google.golang.org/api/vision/v1"

	"github.com/markdave123-py/Dossier/internal/core"
)

// visionPagesPerRequest is the synchronous files:annotate page limit.
const visionPagesPerRequest = 5

// visionAPI is the subset of the Vision REST service the engine calls.
type visionAPI interface {
	AnnotateImages(ctx context.Context, req *vision.BatchAnnotateImagesRequest) (*vision.BatchAnnotateImagesResponse, error)
	AnnotateFiles(ctx context.Context, req *vision.BatchAnnotateFilesRequest) (*vision.BatchAnnotateFilesResponse, error)
}

type visionService struct {
	svc *vision.Service
}

func (v visionService) AnnotateImages(ctx context.Context, req *vision.BatchAnnotateImagesRequest) (*vision.BatchAnnotateImagesResponse, error) {
	return v.svc.Images.Annotate(req).Context(ctx).Do()
}

func (v visionService) AnnotateFiles(ctx context.Context, req *vision.BatchAnnotateFilesRequest) (*vision.BatchAnnotateFilesResponse, error) {
	return v.svc.Files.Annotate(req).Context(ctx).Do()
}

// VisionEngine recognises text with Cloud Vision. PDFs are read by gs:// URI
// when one is available, otherwise inline, five pages per request.
type VisionEngine struct {
	api visionAPI
}

// NewVisionEngine creates a Cloud Vision client.
func NewVisionEngine(ctx context.Context, opts ...option.ClientOption) (*VisionEngine, error) {
	svc, err := vision.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("vision client: %w", err)
	}
	return &VisionEngine{api: visionService{svc: svc}}, nil
}

func (v *VisionEngine) Name() string { return "vision" }

func (v *VisionEngine) ReadsURI() bool { return true }

// Image runs TEXT_DETECTION on inline image bytes.
func (v *VisionEngine) Image(ctx context.Context, src core.Source) (string, error) {
	req := &vision.BatchAnnotateImagesRequest{
		Requests: []*vision.AnnotateImageRequest{{
			Image:    &vision.Image{Content: base64.StdEncoding.EncodeToString(src.Content)},
			Features: []*vision.Feature{{Type: "TEXT_DETECTION"}},
		}},
	}
	resp, err := v.api.AnnotateImages(ctx, req)
	if err != nil {
		return "", err
	}
	if len(resp.Responses) == 0 {
		return "", nil
	}
	return imageText(resp.Responses[0])
}

// Document runs DOCUMENT_TEXT_DETECTION over every page of a PDF. The first
// request covers the default first pages and reports the page total; the
// rest are requested in page order.
func (v *VisionEngine) Document(ctx context.Context, src core.Source) (string, error) {
	input := &vision.InputConfig{MimeType: src.MediaType}
	if input.MimeType == "" {
		input.MimeType = "application/pdf"
	}
	if src.HasURI() {
		input.GcsSource = &vision.GcsSource{Uri: src.URI}
	} else {
		input.Content = base64.StdEncoding.EncodeToString(src.Content)
	}

	var pages []string
	var total int64
	for next := int64(1); next == 1 || next <= total; next += visionPagesPerRequest {
		req := &vision.AnnotateFileRequest{
			InputConfig: input,
			Features:    []*vision.Feature{{Type: "DOCUMENT_TEXT_DETECTION"}},
		}
		if next > 1 {
			for p := next; p < next+visionPagesPerRequest && p <= total; p++ {
				req.Pages = append(req.Pages, p)
			}
		}

		resp, err := v.api.AnnotateFiles(ctx, &vision.BatchAnnotateFilesRequest{Requests: []*vision.AnnotateFileRequest{req}})
		if err != nil {
			return "", err
		}
		if len(resp.Responses) == 0 {
			break
		}
		file := resp.Responses[0]
		if file.Error != nil && file.Error.Code != 0 {
			return "", fmt.Errorf("vision: %s (code %d)", file.Error.Message, file.Error.Code)
		}
		total = file.TotalPages
		for _, r := range file.Responses {
			text, err := imageText(r)
			if err != nil {
				return "", err
			}
			if text != "" {
				pages = append(pages, text)
			}
		}
		if total == 0 {
			break
		}
	}
	return strings.Join(pages, "\n"), nil
}

func imageText(r *vision.AnnotateImageResponse) (string, error) {
	if r == nil {
		return "", nil
	}
	if r.Error != nil && r.Error.Code != 0 {
		return "", errors.New("vision: " + r.Error.Message)
	}
	if r.FullTextAnnotation != nil {
		return r.FullTextAnnotation.Text, nil
	}
	if len(r.TextAnnotations) > 0 {
		return r.TextAnnotations[0].Description, nil
	}
	return "", nil
}
