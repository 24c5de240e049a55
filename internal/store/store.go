package store

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned when a key has never been written.
	ErrNotFound = errors.New("key not found")
)

// KV is a string-keyed preferences backend. Keys live in namespaces that
// mirror separate preference files; writes overwrite in place.
type KV interface {
	Get(ctx context.Context, namespace, key string) (string, error)
	Set(ctx context.Context, namespace, key, value string) error
	Close() error
}
