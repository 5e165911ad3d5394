package app

import (
	"context"
	"fmt"
	"log/slog"

	"google.golang.org/api/option"

	"github.com/markdave123-py/Dossier/internal/config"
	"github.com/markdave123-py/Dossier/internal/core"
	db "github.com/markdave123-py/Dossier/internal/core/database"
	"github.com/markdave123-py/Dossier/internal/core/formats"
	objectclient "github.com/markdave123-py/Dossier/internal/core/object-client"
	"github.com/markdave123-py/Dossier/internal/extractors/docx"
	"github.com/markdave123-py/Dossier/internal/extractors/eml"
	"github.com/markdave123-py/Dossier/internal/extractors/html"
	"github.com/markdave123-py/Dossier/internal/extractors/longrunning"
	"github.com/markdave123-py/Dossier/internal/extractors/ocr"
	"github.com/markdave123-py/Dossier/internal/extractors/odt"
	"github.com/markdave123-py/Dossier/internal/extractors/pptx"
	"github.com/markdave123-py/Dossier/internal/extractors/rawtext"
	"github.com/markdave123-py/Dossier/internal/extractors/speech"
	"github.com/markdave123-py/Dossier/internal/extractors/video"
	"github.com/markdave123-py/Dossier/internal/extractors/xlsx"
)

type closer func() error

func googleOptions(cfg *config.Config) []option.ClientOption {
	if cfg.GCSCredentialsFile == "" {
		return nil
	}
	return []option.ClientOption{option.WithCredentialsFile(cfg.GCSCredentialsFile)}
}

// OpenObjectClient connects to the object store cfg selects.
func OpenObjectClient(ctx context.Context, cfg *config.Config) (core.ObjectClient, closer, error) {
	switch cfg.ObjectStore {
	case config.ObjectStoreS3:
		c, err := objectclient.NewS3Client(ctx, objectclient.S3Config{
			Region:    cfg.AwsRegion,
			AccessKey: cfg.AwsAccessKey,
			SecretKey: cfg.AwsSecretKey,
		})
		if err != nil {
			return nil, nil, err
		}
		return c, nil, nil
	case config.ObjectStoreMinio:
		c, err := objectclient.NewMinioClient(objectclient.MinioConfig{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			UseSSL:    cfg.MinioUseSSL,
		})
		if err != nil {
			return nil, nil, err
		}
		return c, nil, nil
	default:
		c, err := objectclient.NewGCSClient(ctx, googleOptions(cfg)...)
		if err != nil {
			return nil, nil, err
		}
		return c, c.Close, nil
	}
}

// OpenDocumentStore connects to the document store cfg selects.
func OpenDocumentStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (core.DocumentStore, error) {
	var (
		store core.DocumentStore
		err   error
	)
	switch cfg.DocumentStore {
	case config.DocumentStoreFirestore:
		store, err = db.OpenFirestore(ctx, cfg.GCPProjectID, cfg.FirestoreDatabase, cfg.FirestoreCollection, logger, googleOptions(cfg)...)
	case config.DocumentStoreBadger:
		store, err = db.OpenBadger(cfg.BadgerPath, logger)
	default:
		store, err = db.OpenPostgres(ctx, cfg.DatabaseURL, logger)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.DocumentStore, err)
	}
	return store, nil
}

// BuildRegistry installs a backend for every variant it can. Remote backends
// whose client cannot be created are left out and their types are skipped.
func BuildRegistry(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*formats.Registry, []closer) {
	reg := formats.NewRegistry()
	reg.Register(formats.RawText, rawtext.New())
	reg.Register(formats.HTML, html.New())
	reg.Register(formats.Email, eml.New())
	reg.Register(formats.OfficeWord, docx.New())
	reg.Register(formats.OfficeSlide, pptx.New())
	reg.Register(formats.OfficeSheet, xlsx.New())
	reg.Register(formats.ODF, odt.New(cfg.TempDir))

	var closers []closer
	opts := googleOptions(cfg)
	poller := &longrunning.Poller{Interval: cfg.PollInterval, MaxWait: cfg.TranscribeTimeout}

	switch cfg.OCREngine {
	case config.OCREngineGemini:
		engine, err := ocr.NewGeminiEngine(ctx, cfg.AIAPIKey, cfg.GenModel)
		if err != nil {
			logger.Warn("ocr backend disabled", "engine", cfg.OCREngine, "error", err)
			break
		}
		closers = append(closers, engine.Close)
		reg.Register(formats.OCR, ocr.New(engine, cfg.OCRTimeout))
	default:
		engine, err := ocr.NewVisionEngine(ctx, opts...)
		if err != nil {
			logger.Warn("ocr backend disabled", "engine", cfg.OCREngine, "error", err)
			break
		}
		reg.Register(formats.OCR, ocr.New(engine, cfg.OCRTimeout))
	}

	if rec, err := speech.NewRecognizer(ctx, opts...); err != nil {
		logger.Warn("speech backend disabled", "error", err)
	} else {
		reg.Register(formats.Speech, speech.New(rec, speech.Config{
			LanguageCode: cfg.LanguageCode,
			SampleRateHz: cfg.SpeechSampleRateHz,
			Poller:       poller,
		}))
	}

	if ann, err := video.NewAnnotator(ctx, opts...); err != nil {
		logger.Warn("video backend disabled", "error", err)
	} else {
		reg.Register(formats.Video, video.New(ann, cfg.LanguageCode, poller))
	}

	if missing := reg.Missing(); len(missing) > 0 {
		names := make([]string, len(missing))
		for i, v := range missing {
			names[i] = v.String()
		}
		logger.Warn("content types without a backend will be skipped", "variants", names)
	}
	return reg, closers
}
