package metadata

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/querylink/fetchsql/pkg/schema"
)

// DefaultTTL is how long a cached metadata snapshot stays fresh.
const DefaultTTL = 15 * time.Minute

// Cache decorates a Provider with an in-memory TTL cache, an optional
// on-disk store, and single-flight request collapsing so concurrent
// callers for the same entity share one fetch.
type Cache struct {
	provider Provider
	store    *Store // optional, may be nil
	ttl      time.Duration
	logger   *slog.Logger

	group   singleflight.Group
	mu      sync.RWMutex
	entries map[string]cacheEntry

	now func() time.Time // overridable in tests
}

type cacheEntry struct {
	descriptors []schema.AttributeDescriptor
	fetchedAt   time.Time
}

// NewCache creates a caching decorator around provider. store may be
// nil to disable on-disk persistence; ttl <= 0 selects DefaultTTL.
func NewCache(provider Provider, store *Store, ttl time.Duration, logger *slog.Logger) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{
		provider: provider,
		store:    store,
		ttl:      ttl,
		logger:   logger,
		entries:  map[string]cacheEntry{},
		now:      time.Now,
	}
}

// Attributes implements Provider. Fresh entries are served from memory;
// misses consult the on-disk store and finally the wrapped provider.
func (c *Cache) Attributes(ctx context.Context, environmentURL, entity string) ([]schema.AttributeDescriptor, error) {
	key := environmentURL + "|" + entity

	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if ok && c.fresh(entry.fetchedAt) {
		return entry.descriptors, nil
	}

	result, err, _ := c.group.Do(key, func() (any, error) {
		// Re-check after winning the flight: another caller may have
		// filled the entry while this one waited.
		c.mu.RLock()
		entry, ok := c.entries[key]
		c.mu.RUnlock()
		if ok && c.fresh(entry.fetchedAt) {
			return entry.descriptors, nil
		}

		if c.store != nil {
			if descriptors, fetchedAt, err := c.store.Get(environmentURL, entity); err == nil && c.fresh(fetchedAt) {
				c.remember(key, descriptors, fetchedAt)
				return descriptors, nil
			}
		}

		descriptors, err := c.provider.Attributes(ctx, environmentURL, entity)
		if err != nil {
			return nil, err
		}

		fetchedAt := c.now()
		c.remember(key, descriptors, fetchedAt)
		if c.store != nil {
			if err := c.store.Put(environmentURL, entity, descriptors, fetchedAt); err != nil {
				c.logger.Warn("persisting metadata cache failed", "entity", entity, "error", err)
			}
		}
		return descriptors, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]schema.AttributeDescriptor), nil
}

// Invalidate drops the cached snapshot for one entity.
func (c *Cache) Invalidate(environmentURL, entity string) {
	key := environmentURL + "|" + entity
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

func (c *Cache) fresh(fetchedAt time.Time) bool {
	return c.now().Sub(fetchedAt) < c.ttl
}

func (c *Cache) remember(key string, descriptors []schema.AttributeDescriptor, fetchedAt time.Time) {
	c.mu.Lock()
	c.entries[key] = cacheEntry{descriptors: descriptors, fetchedAt: fetchedAt}
	c.mu.Unlock()
}
