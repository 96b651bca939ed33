// Package cache provides a small byte-level cache used to avoid
// re-predicting model visibilities between runs.
//
// Predicting a full sky model is the most expensive non-iterative step of
// a calibration run, and its inputs (catalog, beam, array geometry) rarely
// change between invocations against the same measurement set. The CLI
// keys predictions by a hash of those inputs and stores the flat model
// array here.
//
// Two implementations exist:
//   - FileCache: entries as files under a directory, for CLI usage
//   - NullCache: never stores anything, for disabling the cache
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"
)

// Cache stores opaque byte values under string keys with an optional TTL.
type Cache interface {
	// Get retrieves a value. The second return is false on a miss.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores a value. A non-positive ttl means no expiration.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes a value. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases any resources held by the cache.
	Close() error
}

// ModelKey builds the cache key for a predicted model: the catalog
// content hash, the beam name, and a hash of the array geometry that the
// prediction depends on (frequencies, uvw, phase center).
func ModelKey(catalogHash, beamName, geometryHash string) string {
	return hashKey("model", catalogHash, beamName, geometryHash)
}

// hashKey generates a cache key by hashing the components.
// The key format is: prefix:hash(parts...)
func hashKey(prefix string, parts ...any) string {
	data, _ := json.Marshal(parts)
	sum := sha256.Sum256(data)
	return fmt.Sprintf("%s:%s", prefix, hex.EncodeToString(sum[:]))
}

// Hash computes the SHA-256 hash of data as a 64-character hex string.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
