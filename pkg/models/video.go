package models

import (
	"errors"
	"time"
)

var (
	ErrMissingJobID     = errors.New("job message missing job_id")
	ErrMissingObjectKey = errors.New("job message missing s3_key")
)

// Video is the upload metadata row created by the enqueue path. A Job may
// reference it through VideoID, but the reference is optional and not
// enforced by the schema.
type Video struct {
	ID        int64     `db:"id"         json:"id"`
	Filename  string    `db:"filename"   json:"filename"`
	Owner     string    `db:"owner"      json:"owner"`
	ObjectKey string    `db:"object_key" json:"object_key"`
	ObjectURL string    `db:"object_url" json:"object_url,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
