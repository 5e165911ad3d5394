package objectclient

import (
	"context"
	"errors"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/markdave123-py/Dossier/internal/core"
)

var _ core.ObjectClient = (*GCSClient)(nil)

// GCSClient reads objects from Cloud Storage. Objects are addressable as
// gs:// URIs, so OCR and transcription can read them in place.
type GCSClient struct {
	client *storage.Client
	open   func(ctx context.Context, bucket, key string) (io.ReadCloser, error)
}

func NewGCSClient(ctx context.Context, opts ...option.ClientOption) (*GCSClient, error) {
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("gcs client: %w", err)
	}
	c := &GCSClient{client: client}
	c.open = func(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
		return client.Bucket(bucket).Object(key).NewReader(ctx)
	}
	return c, nil
}

func (c *GCSClient) GetFile(ctx context.Context, bucket, key string) ([]byte, error) {
	r, err := c.open(ctx, bucket, key)
	if errors.Is(err, storage.ErrObjectNotExist) || errors.Is(err, storage.ErrBucketNotExist) {
		return nil, fmt.Errorf("gcs object %s/%s: %w", bucket, key, core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("gcs get failed: %w", err)
	}
	defer r.Close()

	body, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}

func (c *GCSClient) StorageURI(bucket, key string) (string, bool) {
	if bucket == "" || key == "" {
		return "", false
	}
	return "gs://" + bucket + "/" + key, true
}

func (c *GCSClient) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}
