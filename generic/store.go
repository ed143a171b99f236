/*
store.go - Cache interface for memoized computations

PURPOSE:
  The compensation engine is a pure function of its inputs, so its output
  can be cached under a key derived from those inputs. This file defines the
  cache contract and the key derivation; implementations live in
  generic/store (memory) and store/redis.

KEY DERIVATION:
  CacheKey JSON-encodes every part and hashes the result with SHA-256.
  Any change to a deal, target, KPI row, profile, plan or reference day
  produces a different key, so entries never need explicit invalidation.
  The TTL only bounds memory.

IMPLEMENTATIONS:
  - generic/store/memory.go: In-memory for tests and single-node dev
  - store/redis/redis.go: Shared cache across API replicas

SEE ALSO:
  - commission/cache.go: CachedEngine built on this interface
*/
package generic

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"
)

// =============================================================================
// CACHE - Byte cache keyed by content hash
// =============================================================================

type Cache interface {
	// Get returns ErrCacheMiss when the key is absent or expired.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key. A zero ttl means no expiry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// CacheKey hashes the JSON encoding of parts into a hex key with the given prefix.
func CacheKey(prefix string, parts ...any) (string, error) {
	h := sha256.New()
	enc := json.NewEncoder(h)
	for _, p := range parts {
		if err := enc.Encode(p); err != nil {
			return "", err
		}
	}
	return prefix + ":" + hex.EncodeToString(h.Sum(nil)), nil
}
