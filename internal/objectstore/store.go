package objectstore

import (
	"context"
	"time"

	"github.com/kiranshivaraju/framemill/pkg/models"
)

// Store is the durable object-store capability the pipeline consumes.
// Uploads have overwrite semantics: putting to an existing key replaces the
// object, which is what makes full re-runs of a redelivered job safe.
type Store interface {
	Upload(ctx context.Context, localPath, key, contentType string) (models.ObjectRef, error)
	UploadBytes(ctx context.Context, data []byte, key, contentType string) (models.ObjectRef, error)
	Download(ctx context.Context, key, localPath string) error
	Exists(ctx context.Context, key string) (bool, error)
	Delete(ctx context.Context, key string) error
	PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error)
	PresignPut(ctx context.Context, key string, expiry time.Duration) (string, error)
}
