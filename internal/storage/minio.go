package storage

import (
	"bytes"
	"context"
	"fmt"

	"github.com/gabriel-vasile/mimetype"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/your-org/jailcrawler/internal/config"
	"github.com/your-org/jailcrawler/internal/models"
)

// MinIOStore keeps booking photos in an S3 compatible bucket.
type MinIOStore struct {
	client *minio.Client
	bucket string
}

func NewMinIOStore(cfg config.MinIOConfig) (*MinIOStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, &models.ObjectStoreError{Detail: "create minio client", Err: err}
	}

	return &MinIOStore{
		client: client,
		bucket: cfg.Bucket,
	}, nil
}

// EnsureBucket creates the bucket if it doesn't exist.
func (s *MinIOStore) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return &models.ObjectStoreError{Detail: "check bucket " + s.bucket, Err: err}
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
			return &models.ObjectStoreError{Detail: "create bucket " + s.bucket, Err: err}
		}
	}
	return nil
}

// PutImage uploads a booking photo under key, labelling it with the sniffed
// content type.
func (s *MinIOStore) PutImage(ctx context.Context, key string, data []byte) error {
	if len(data) == 0 {
		return &models.ObjectStoreError{Detail: fmt.Sprintf("put %s: empty object", key)}
	}
	contentType := mimetype.Detect(data).String()
	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return &models.ObjectStoreError{Detail: "put " + key, Err: err}
	}
	return nil
}

// Ping checks MinIO connectivity.
func (s *MinIOStore) Ping(ctx context.Context) error {
	_, err := s.client.BucketExists(ctx, s.bucket)
	return err
}
