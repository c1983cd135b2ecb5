package objectstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/kiranshivaraju/framemill/internal/config"
	"github.com/kiranshivaraju/framemill/pkg/models"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioStore implements the Store interface against any S3-compatible
// endpoint using minio-go.
type MinioStore struct {
	client        *minio.Client
	bucket        string
	presignExpiry time.Duration
}

// NewMinioStore connects to the object store and ensures the configured
// bucket exists. Bucket creation is idempotent so multiple workers can race
// on startup.
func NewMinioStore(ctx context.Context, cfg config.ObjectStoreConfig) (*MinioStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("connect object store: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			// Another worker may have created it first
			exists, existsErr := client.BucketExists(ctx, cfg.Bucket)
			if existsErr != nil || !exists {
				return nil, fmt.Errorf("create bucket: %w", err)
			}
		}
	}

	return &MinioStore{
		client:        client,
		bucket:        cfg.Bucket,
		presignExpiry: cfg.PresignExpiry,
	}, nil
}

func (s *MinioStore) Upload(ctx context.Context, localPath, key, contentType string) (models.ObjectRef, error) {
	_, err := s.client.FPutObject(ctx, s.bucket, key, localPath,
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return models.ObjectRef{}, fmt.Errorf("upload %s: %w", key, err)
	}
	return s.ref(ctx, key)
}

func (s *MinioStore) UploadBytes(ctx context.Context, data []byte, key, contentType string) (models.ObjectRef, error) {
	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return models.ObjectRef{}, fmt.Errorf("upload %s: %w", key, err)
	}
	return s.ref(ctx, key)
}

func (s *MinioStore) Download(ctx context.Context, key, localPath string) error {
	if err := s.client.FGetObject(ctx, s.bucket, key, localPath, minio.GetObjectOptions{}); err != nil {
		return fmt.Errorf("download %s: %w", key, err)
	}
	return nil
}

func (s *MinioStore) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		var resp minio.ErrorResponse
		if errors.As(err, &resp) && resp.Code == "NoSuchKey" {
			return false, nil
		}
		return false, fmt.Errorf("stat %s: %w", key, err)
	}
	return true, nil
}

func (s *MinioStore) Delete(ctx context.Context, key string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

func (s *MinioStore) PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error) {
	if expiry <= 0 {
		expiry = s.presignExpiry
	}
	u, err := s.client.PresignedGetObject(ctx, s.bucket, key, expiry, url.Values{})
	if err != nil {
		return "", fmt.Errorf("presign get %s: %w", key, err)
	}
	return u.String(), nil
}

func (s *MinioStore) PresignPut(ctx context.Context, key string, expiry time.Duration) (string, error) {
	if expiry <= 0 {
		expiry = s.presignExpiry
	}
	u, err := s.client.PresignedPutObject(ctx, s.bucket, key, expiry)
	if err != nil {
		return "", fmt.Errorf("presign put %s: %w", key, err)
	}
	return u.String(), nil
}

// ref builds the ObjectRef returned from uploads: the key plus a time-limited
// download URL for the terminal result blob.
func (s *MinioStore) ref(ctx context.Context, key string) (models.ObjectRef, error) {
	u, err := s.PresignGet(ctx, key, s.presignExpiry)
	if err != nil {
		return models.ObjectRef{}, err
	}
	return models.ObjectRef{Key: key, URL: u}, nil
}

// Compile-time check that MinioStore implements Store.
var _ Store = (*MinioStore)(nil)
