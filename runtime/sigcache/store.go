package sigcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/satishbabariya/coconutdal/internal/debug"
	"github.com/satishbabariya/coconutdal/runtime/dialect"
)

// Key builds the cache key for a procedure. The connection descriptor is
// hashed so that credentials never reach the cache backend.
func Key(variant dialect.Variant, descriptor, procedure string) string {
	sum := sha256.Sum256([]byte(descriptor))
	return variant.String() + ":" + hex.EncodeToString(sum[:8]) + ":" + strings.ToLower(procedure)
}

// Store reads and writes signatures through a Cache.
type Store struct {
	cache Cache
	ttl   time.Duration
}

// NewStore returns a Store over cache. Entries expire after ttl; zero keeps
// them until deleted.
func NewStore(cache Cache, ttl time.Duration) *Store {
	return &Store{cache: cache, ttl: ttl}
}

// Load returns the cached signature for key, or ErrNotFound.
func (s *Store) Load(ctx context.Context, key string) (*dialect.Signature, error) {
	data, err := s.cache.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	var sig dialect.Signature
	if err := json.Unmarshal(data, &sig); err != nil {
		// A corrupt entry is dropped and treated as a miss.
		_ = s.cache.Delete(ctx, key)
		return nil, ErrNotFound
	}
	return &sig, nil
}

// Save stores sig under key.
func (s *Store) Save(ctx context.Context, key string, sig *dialect.Signature) error {
	data, err := json.Marshal(sig)
	if err != nil {
		return err
	}
	return s.cache.Set(ctx, key, data, s.ttl)
}

// Invalidate removes key.
func (s *Store) Invalidate(ctx context.Context, key string) error {
	return s.cache.Delete(ctx, key)
}

// Derive returns the signature for key, calling load on a miss and caching
// its result. Cache failures are logged and never fail the call.
func (s *Store) Derive(ctx context.Context, key string, load func(ctx context.Context) (*dialect.Signature, error)) (*dialect.Signature, error) {
	sig, err := s.Load(ctx, key)
	if err == nil {
		debug.Debug("sigcache: hit", "key", key)
		return sig, nil
	}
	if !errors.Is(err, ErrNotFound) {
		debug.Warn("sigcache: load failed", "key", key, "error", err)
	}

	sig, err = load(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.Save(ctx, key, sig); err != nil {
		debug.Warn("sigcache: save failed", "key", key, "error", err)
	}
	return sig, nil
}
