package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

type cacheEntry struct {
	value     []byte
	expiresAt time.Time
}

func (e *cacheEntry) expiredAt(now time.Time) bool {
	return !now.Before(e.expiresAt)
}

// MemoryCache is an in-memory Cache guarded by a RWMutex. Expired entries are
// invisible to Get immediately and swept periodically.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]*cacheEntry

	hits   atomic.Int64
	misses atomic.Int64

	sweepInterval time.Duration
	stopSweep     chan struct{}
	stopOnce      sync.Once
}

// NewMemoryCache creates a memory cache sweeping expired entries every sweepInterval.
// A non-positive interval disables the background sweep.
func NewMemoryCache(sweepInterval time.Duration) *MemoryCache {
	c := &MemoryCache{
		entries:       make(map[string]*cacheEntry),
		sweepInterval: sweepInterval,
		stopSweep:     make(chan struct{}),
	}
	if sweepInterval > 0 {
		go c.sweep()
	}
	return c
}

func (c *MemoryCache) Get(ctx context.Context, key string) ([]byte, error) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok || entry.expiredAt(time.Now()) {
		c.misses.Add(1)
		return nil, ErrCacheMiss
	}
	c.hits.Add(1)

	out := make([]byte, len(entry.value))
	copy(out, entry.value)
	return out, nil
}

func (c *MemoryCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	v := make([]byte, len(value))
	copy(v, value)

	c.mu.Lock()
	c.entries[key] = &cacheEntry{value: v, expiresAt: time.Now().Add(ttl)}
	c.mu.Unlock()
	return nil
}

func (c *MemoryCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
	return nil
}

func (c *MemoryCache) Clear(ctx context.Context) error {
	c.mu.Lock()
	c.entries = make(map[string]*cacheEntry)
	c.mu.Unlock()
	return nil
}

func (c *MemoryCache) Stats(ctx context.Context) (Stats, error) {
	c.mu.RLock()
	n := len(c.entries)
	c.mu.RUnlock()
	return Stats{
		Backend: "memory",
		Entries: int64(n),
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
	}, nil
}

// Close stops the background sweep.
func (c *MemoryCache) Close() error {
	c.stopOnce.Do(func() { close(c.stopSweep) })
	return nil
}

func (c *MemoryCache) sweep() {
	ticker := time.NewTicker(c.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.removeExpired(time.Now())
		case <-c.stopSweep:
			return
		}
	}
}

func (c *MemoryCache) removeExpired(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key, entry := range c.entries {
		if entry.expiredAt(now) {
			delete(c.entries, key)
		}
	}
}

var _ Cache = (*MemoryCache)(nil)
