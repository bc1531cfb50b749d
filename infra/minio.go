package infra

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/tnqbao/gau-focus-service/config"
)

// MinioClient signs object URLs for the media bucket. With the region pinned
// in the options, signing never calls out to the endpoint.
type MinioClient struct {
	Client        *minio.Client
	Endpoint      string
	Bucket        string
	Region        string
	PresignExpiry time.Duration
}

func InitMinioClient(cfg *config.EnvConfig) *MinioClient {
	client, err := NewMinioClient(cfg)
	if err != nil {
		panic(err.Error())
	}
	return client
}

func NewMinioClient(cfg *config.EnvConfig) (*MinioClient, error) {
	if cfg.Minio.Endpoint == "" {
		return nil, fmt.Errorf("MinIO endpoint is not configured")
	}
	if cfg.Minio.Bucket == "" {
		return nil, fmt.Errorf("MinIO bucket is not configured")
	}

	client, err := minio.New(cfg.Minio.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.Minio.AccessKey, cfg.Minio.SecretKey, ""),
		Secure: cfg.Minio.UseSSL,
		Region: cfg.Minio.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize MinIO client: %w", err)
	}

	return &MinioClient{
		Client:        client,
		Endpoint:      cfg.Minio.Endpoint,
		Bucket:        cfg.Minio.Bucket,
		Region:        cfg.Minio.Region,
		PresignExpiry: cfg.Minio.PresignExpiry,
	}, nil
}

func (m *MinioClient) PresignedGetObject(ctx context.Context, bucket, object string, expiry time.Duration, params url.Values) (*url.URL, error) {
	if bucket == "" || object == "" {
		return nil, fmt.Errorf("bucket and object cannot be empty")
	}
	u, err := m.Client.PresignedGetObject(ctx, bucket, object, expiry, params)
	if err != nil {
		return nil, fmt.Errorf("failed to presign %s/%s: %w", bucket, object, err)
	}
	return u, nil
}
