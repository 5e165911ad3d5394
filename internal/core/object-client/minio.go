package objectclient

import (
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/markdave123-py/Dossier/internal/core"
)

// MinioConfig holds the settings for a MinIO server.
type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Region    string
}

var _ core.ObjectClient = (*MinioClient)(nil)

type MinioClient struct {
	client *minio.Client
}

func NewMinioClient(cfg MinioConfig) (*MinioClient, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("MINIO_ENDPOINT not set")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}
	return &MinioClient{client: client}, nil
}

func (c *MinioClient) GetFile(ctx context.Context, bucket, key string) ([]byte, error) {
	obj, err := c.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, c.wrap(bucket, key, err)
	}
	defer obj.Close()

	body, err := io.ReadAll(obj)
	if err != nil {
		return nil, c.wrap(bucket, key, err)
	}
	return body, nil
}

func (c *MinioClient) wrap(bucket, key string, err error) error {
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NoSuchBucket":
		return fmt.Errorf("minio object %s/%s: %w", bucket, key, core.ErrNotFound)
	}
	return fmt.Errorf("minio get failed: %w", err)
}

// StorageURI returns false: MinIO objects are not reachable by remote services.
func (c *MinioClient) StorageURI(string, string) (string, bool) {
	return "", false
}
