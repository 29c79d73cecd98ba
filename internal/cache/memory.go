package cache

import (
	"context"
	"sync"
	"time"

	"vaultScope/internal/metrics"
)

type memoryEntry[V any] struct {
	value     V
	expiresAt time.Time
}

// MemoryCache is an in-process Cache backed by sync.Map. Expired entries are
// dropped when read; there is no background sweeper.
type MemoryCache[V any] struct {
	data sync.Map
	now  func() time.Time
}

// NewMemoryCache builds an empty MemoryCache.
func NewMemoryCache[V any]() *MemoryCache[V] {
	return &MemoryCache[V]{now: time.Now}
}

// WithClock overrides the time source, mainly for tests.
func (c *MemoryCache[V]) WithClock(now func() time.Time) *MemoryCache[V] {
	if now != nil {
		c.now = now
	}
	return c
}

func (c *MemoryCache[V]) Get(_ context.Context, key Key) (V, bool, error) {
	var zero V
	id := key.String()
	raw, ok := c.data.Load(id)
	if !ok {
		metrics.CacheRequest(key.Namespace, false)
		return zero, false, nil
	}
	entry := raw.(*memoryEntry[V])
	if !c.now().Before(entry.expiresAt) {
		// Only the expired entry; a concurrent Set may have replaced it.
		c.data.CompareAndDelete(id, raw)
		metrics.CacheRequest(key.Namespace, false)
		return zero, false, nil
	}
	metrics.CacheRequest(key.Namespace, true)
	return entry.value, true, nil
}

func (c *MemoryCache[V]) Set(_ context.Context, key Key, value V, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	c.data.Store(key.String(), &memoryEntry[V]{value: value, expiresAt: c.now().Add(ttl)})
	return nil
}

func (c *MemoryCache[V]) Delete(_ context.Context, key Key) error {
	c.data.Delete(key.String())
	return nil
}

func (c *MemoryCache[V]) Clear(_ context.Context) error {
	c.data.Range(func(k, _ any) bool {
		c.data.Delete(k)
		return true
	})
	return nil
}

// Len counts entries, including ones that expired but were not read since.
func (c *MemoryCache[V]) Len() int {
	n := 0
	c.data.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}
