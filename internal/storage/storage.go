package storage

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound is returned by Get/GetStream when the key does not exist.
var ErrNotFound = errors.New("object not found")

// ObjectStore abstracts the blob backend holding uploaded documents,
// signature images and generated PDFs. Keys follow the convention
// {category}/{aggregateID}/{purpose}-{timestamp}-{random}{ext}.
type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
	GetStream(ctx context.Context, key string) (io.ReadCloser, error)
	Exists(ctx context.Context, key string) (bool, error)
	Delete(ctx context.Context, key string) error
}
