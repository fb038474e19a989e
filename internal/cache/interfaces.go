package cache

import (
	"context"
	"time"
)

// Cache is the key/value store behind the signed URL cache.
// Memory suits a single instance; Redis shares entries across instances.
type Cache interface {
	// Get retrieves a value by key. Returns ErrCacheMiss if not found.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value with the given TTL. Concurrent writers to one key: last write wins.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a value by key.
	Delete(ctx context.Context, key string) error

	// Clear removes all entries owned by this cache.
	Clear(ctx context.Context) error

	// Stats reports entry count and hit/miss counters.
	Stats(ctx context.Context) (Stats, error)
}

// Stats is a point-in-time view of cache usage.
type Stats struct {
	Backend string `json:"backend"`
	Entries int64  `json:"entries"`
	Hits    int64  `json:"hits"`
	Misses  int64  `json:"misses"`
}

type CacheError string

func (e CacheError) Error() string { return string(e) }

const (
	// ErrCacheMiss indicates the key was not found in cache.
	ErrCacheMiss CacheError = "cache miss"
)
