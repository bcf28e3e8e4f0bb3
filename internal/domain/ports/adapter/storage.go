package adapter

import (
	"context"
	"io"
	"time"
)

// ObjectStore is the port for document storage. Generated papers are uploaded
// once and served to clients through short-lived presigned URLs.
type ObjectStore interface {
	Upload(ctx context.Context, path string, r io.Reader, size int64, contentType string) error
	PresignedURL(ctx context.Context, path string, expiry time.Duration) (string, error)
	Delete(ctx context.Context, path string) error
}
