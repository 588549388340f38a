package archive

import (
	"context"
	"io"
)

// ObjectStore is the minimal object-storage surface the snapshot archive
// needs.
type ObjectStore interface {
	// Put uploads an object.
	Put(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error

	// Exists checks whether an object is already stored.
	Exists(ctx context.Context, key string) (bool, error)
}
