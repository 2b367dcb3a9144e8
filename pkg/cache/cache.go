// Package cache provides the skip cache used to avoid recomposing atlases
// whose inputs have not changed.
//
// The cache stores a fingerprint of each folder's inputs (config bytes
// plus every sprite's name and bytes). On a later run, a matching
// fingerprint with both output files present means the folder can be
// skipped entirely. Because atlas building is deterministic, a hit never
// changes the output bytes; the cache only saves work.
//
// Backends:
//   - FileCache: per-machine cache under a directory (CLI default)
//   - RedisCache: shared cache for CI fleets
//   - NullCache: caching disabled
package cache

import (
	"context"
	"time"
)

// TTLs for cached entries.
const (
	// TTLFolder is how long a folder fingerprint stays valid. Inputs are
	// re-fingerprinted on every run anyway, so this only bounds growth.
	TTLFolder = 30 * 24 * time.Hour
)

// Cache is the interface for cache storage backends.
type Cache interface {
	// Get retrieves a value. The second return reports whether the key
	// was present and unexpired.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores a value with a TTL. A zero TTL means no expiration.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes a value. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// Keyer generates cache keys. Implementations must be deterministic:
// identical inputs yield identical keys.
type Keyer interface {
	// FolderKey generates a key for a folder's build fingerprint.
	FolderKey(folder string, opts FolderKeyOpts) string
}

// FolderKeyOpts are the options that affect a folder's output bytes and
// therefore belong in its cache key.
type FolderKeyOpts struct {
	InputsHash string // hash over config bytes + sprite names/bytes
	Fit        string // effective fit mode
	Version    string // tool version, so upgrades invalidate
}

// DefaultKeyer is the standard key generation strategy.
type DefaultKeyer struct{}

// NewDefaultKeyer creates the default keyer.
func NewDefaultKeyer() Keyer {
	return &DefaultKeyer{}
}

// FolderKey generates a key for a folder build fingerprint.
func (k *DefaultKeyer) FolderKey(folder string, opts FolderKeyOpts) string {
	return hashKey("folder:"+folder, opts)
}

// ScopedKeyer wraps a Keyer with a prefix, giving separate namespaces to
// e.g. different projects sharing one Redis instance.
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix.
// The prefix is prepended to all generated keys.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{
		inner:  inner,
		prefix: prefix,
	}
}

// FolderKey generates a prefixed folder fingerprint key.
func (k *ScopedKeyer) FolderKey(folder string, opts FolderKeyOpts) string {
	return k.prefix + k.inner.FolderKey(folder, opts)
}
