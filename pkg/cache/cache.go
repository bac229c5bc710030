// Package cache provides byte-level caching backends for registry responses.
//
// All backends implement [Cache]. The CLI uses [FileCache] by default, the
// server can share a [RedisCache] between instances, and [MemoryCache] keeps
// hot entries in process. [NullCache] disables caching entirely.
//
// Keys are opaque strings; callers namespace them (for example
// "jsdelivr:tree:react@18.2.0"). Values are raw bytes, usually JSON.
package cache

import (
	"context"
	"time"
)

// Cache is the storage interface shared by all backends.
//
// Implementations must be safe for concurrent use: the acquisition engine
// fetches many modules in parallel through the same cache.
type Cache interface {
	// Get returns the cached bytes for key. The bool reports a hit.
	// Expired entries are reported as misses.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A ttl of 0 means no expiration.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// NullCache never stores anything. Every Get is a miss.
type NullCache struct{}

// NewNullCache returns a cache for --no-cache runs and tests.
func NewNullCache() Cache { return NullCache{} }

func (NullCache) Get(context.Context, string) ([]byte, bool, error)        { return nil, false, nil }
func (NullCache) Set(context.Context, string, []byte, time.Duration) error { return nil }
func (NullCache) Delete(context.Context, string) error                     { return nil }
func (NullCache) Close() error                                             { return nil }
