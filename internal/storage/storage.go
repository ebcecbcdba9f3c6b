package storage

import (
	"context"
	"io"
)

// Store is the attachment byte store consumed by the service. Paths are
// opaque keys; the disk name selects the backing store.
type Store interface {
	Save(ctx context.Context, path string, r io.Reader) (int64, error)
	Open(ctx context.Context, path string) (io.ReadCloser, error)
	Exists(ctx context.Context, path string) (bool, error)
	Delete(ctx context.Context, path string) error
}
