// Package cache provides the tag-invalidated read-view cache. List
// projections are cached under their family tag; any committed
// transition invalidates the whole tag.
package cache

import (
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/plantops/workdesk/internal/application/port"
)

// ViewCache implements port.ViewCache on top of an in-process store
type ViewCache struct {
	store  *gocache.Cache
	logger *zap.Logger

	mu   sync.Mutex
	tags map[string]map[string]struct{}
}

// NewViewCache creates a view cache with the given entry TTL
func NewViewCache(ttl, cleanup time.Duration, logger *zap.Logger) *ViewCache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	if cleanup <= 0 {
		cleanup = 5 * time.Minute
	}
	c := &ViewCache{
		store:  gocache.New(ttl, cleanup),
		logger: logger,
		tags:   make(map[string]map[string]struct{}),
	}
	c.store.OnEvicted(func(key string, _ interface{}) {
		c.forget(key)
	})
	return c
}

// Get returns a cached value by key
func (c *ViewCache) Get(key string) (interface{}, bool) {
	return c.store.Get(key)
}

// Set stores a value under a key and registers it with a tag
func (c *ViewCache) Set(tag, key string, value interface{}) {
	c.store.SetDefault(key, value)

	c.mu.Lock()
	defer c.mu.Unlock()
	keys, ok := c.tags[tag]
	if !ok {
		keys = make(map[string]struct{})
		c.tags[tag] = keys
	}
	keys[key] = struct{}{}
}

// Invalidate drops every key registered under the given tags. Store
// deletes happen outside the index lock: they re-enter through the
// eviction hook.
func (c *ViewCache) Invalidate(tags ...string) {
	var drop []string

	c.mu.Lock()
	for _, tag := range tags {
		keys, ok := c.tags[tag]
		if !ok {
			continue
		}
		for key := range keys {
			drop = append(drop, key)
		}
		delete(c.tags, tag)
		c.logger.Debug("Cache tag invalidated",
			zap.String("tag", tag),
			zap.Int("keys", len(keys)))
	}
	c.mu.Unlock()

	for _, key := range drop {
		c.store.Delete(key)
	}
}

// forget prunes a key evicted from the store (TTL expiry or delete)
// out of the tag index.
func (c *ViewCache) forget(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for tag, keys := range c.tags {
		if _, ok := keys[key]; !ok {
			continue
		}
		delete(keys, key)
		if len(keys) == 0 {
			delete(c.tags, tag)
		}
	}
}

var _ port.ViewCache = (*ViewCache)(nil)
