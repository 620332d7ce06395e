// Package sigcache caches derived stored-procedure signatures.
//
// Deriving a signature costs a catalog query per call. The Store keeps the
// result in a Cache keyed by backend, connection and procedure name so that
// repeated calls skip the round trip. Implementations may be an in-process
// map or Redis, shared across processes.
package sigcache

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a key does not exist in the cache.
var ErrNotFound = errors.New("sigcache: key not found")

// Cache abstracts a key-value cache with TTL support.
// All operations are safe for concurrent use.
type Cache interface {
	// Get returns ErrNotFound if the key does not exist or has expired.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value. A zero TTL means the entry does not expire.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	Ping(ctx context.Context) error
	Close() error
}
