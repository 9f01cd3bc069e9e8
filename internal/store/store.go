// Package store defines the shared key/value contract the portal collections
// live behind. Values are opaque JSON blobs; change notification is
// at-least-once and may originate from another process.
package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when the key holds no value.
var ErrNotFound = errors.New("store: key not found")

// Store is the shared persistence + change-notification dependency. The sync
// services only ever read and rewrite whole values at key granularity; the
// store makes no guarantee beyond last-write-wins per key.
type Store interface {
	// Get returns the raw value at key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)
	// Set replaces the value at key.
	Set(ctx context.Context, key string, value []byte) error
	// Delete removes the key entirely.
	Delete(ctx context.Context, key string) error
	// Subscribe registers fn to run after every observed change to key,
	// including changes made by other processes. The returned function
	// releases the subscription and is safe to call more than once.
	Subscribe(ctx context.Context, key string, fn func()) (func(), error)
}
