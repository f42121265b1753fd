package object

import (
	"context"
	"io"
)

// ObjectStore saves and retrieves binary artifacts such as exported
// snapshots, keyed under a namespace.
type ObjectStore interface {
	Save(ctx context.Context, namespace string, fileName string, r io.Reader) (storageKey string, sizeBytes int64, err error)
	Open(ctx context.Context, storageKey string) (io.ReadCloser, error)
}
