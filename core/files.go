package core

import (
	"context"
	"io"
)

// FileStore keeps uploaded files under opaque keys.
type FileStore interface {
	Save(ctx context.Context, key string, r io.Reader) (int64, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}
