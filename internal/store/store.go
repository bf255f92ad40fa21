// Package store defines the key/value persistence the board writes its
// task collection to.
package store

import (
	"context"
	"errors"
)

// ErrAbsent is returned by Get when the key holds no value.
var ErrAbsent = errors.New("store: value absent")

// DefaultKey is where the board keeps its collection.
const DefaultKey = "tasklist"

// Store holds serialized blobs under string keys. Set replaces the whole
// value; there are no partial writes.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, blob []byte) error
	Close() error
}

// HealthChecker is implemented by stores backed by a server or file that
// can become unreachable.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}
