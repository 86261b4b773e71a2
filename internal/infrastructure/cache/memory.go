package cache

import (
	"container/list"
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ptzburn/junction25/internal/domain"
)

// cacheItem represents a single item in the cache with expiration
type cacheItem struct {
	key        string
	value      []byte
	expiration time.Time // zero means no expiry
}

func (i *cacheItem) expired(now time.Time) bool {
	return !i.expiration.IsZero() && now.After(i.expiration)
}

// MemoryOptions configures a MemoryCache
type MemoryOptions struct {
	MaxEntries      int           // 0 means unbounded
	CleanupInterval time.Duration // 0 disables the background sweep
	Logger          *zap.Logger
}

// MemoryCache is a thread-safe in-memory cache with TTL and LRU eviction
type MemoryCache struct {
	mutex      sync.Mutex
	data       map[string]*list.Element
	order      *list.List // front is most recently used
	maxEntries int
	logger     *zap.Logger
	now        func() time.Time

	stop     chan struct{}
	stopOnce sync.Once
}

// NewMemoryCache creates a new in-memory cache. Call Close to stop the
// cleanup goroutine.
func NewMemoryCache(opts MemoryOptions) *MemoryCache {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	cache := &MemoryCache{
		data:       make(map[string]*list.Element),
		order:      list.New(),
		maxEntries: opts.MaxEntries,
		logger:     logger,
		now:        time.Now,
		stop:       make(chan struct{}),
	}

	if opts.CleanupInterval > 0 {
		go cache.cleanupExpired(opts.CleanupInterval)
	}

	return cache
}

// Get retrieves a value from the cache
func (c *MemoryCache) Get(ctx context.Context, key string) ([]byte, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	elem, exists := c.data[key]
	if !exists {
		return nil, domain.ErrCacheMiss
	}

	item := elem.Value.(*cacheItem)
	if item.expired(c.now()) {
		c.removeElement(elem)
		return nil, domain.ErrCacheMiss
	}

	c.order.MoveToFront(elem)
	return item.value, nil
}

// Set stores a value in the cache. A non-positive ttl stores it without expiry.
func (c *MemoryCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	// Copy so callers cannot mutate the stored bytes
	stored := make([]byte, len(value))
	copy(stored, value)

	var expiration time.Time
	if ttl > 0 {
		expiration = c.now().Add(ttl)
	}

	if elem, exists := c.data[key]; exists {
		item := elem.Value.(*cacheItem)
		item.value = stored
		item.expiration = expiration
		c.order.MoveToFront(elem)
		return nil
	}

	c.data[key] = c.order.PushFront(&cacheItem{key: key, value: stored, expiration: expiration})

	if c.maxEntries > 0 {
		for c.order.Len() > c.maxEntries {
			oldest := c.order.Back()
			c.logger.Debug("evicting cache entry", zap.String("key", oldest.Value.(*cacheItem).key))
			c.removeElement(oldest)
		}
	}

	return nil
}

// Delete removes a value from the cache
func (c *MemoryCache) Delete(ctx context.Context, key string) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if elem, exists := c.data[key]; exists {
		c.removeElement(elem)
	}
	return nil
}

// Size returns the current number of items in the cache, expired ones included
func (c *MemoryCache) Size() int {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return len(c.data)
}

// Clear removes all items from the cache
func (c *MemoryCache) Clear() {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.data = make(map[string]*list.Element)
	c.order.Init()
}

// Close stops the cleanup goroutine. It is safe to call more than once.
func (c *MemoryCache) Close() error {
	c.stopOnce.Do(func() { close(c.stop) })
	return nil
}

func (c *MemoryCache) removeElement(elem *list.Element) {
	c.order.Remove(elem)
	delete(c.data, elem.Value.(*cacheItem).key)
}

// cleanupExpired removes expired entries from the cache periodically
func (c *MemoryCache) cleanupExpired(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			if removed := c.sweep(); removed > 0 {
				c.logger.Debug("removed expired cache entries", zap.Int("count", removed))
			}
		}
	}
}

func (c *MemoryCache) sweep() int {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	now := c.now()
	removed := 0
	for _, elem := range c.data {
		if elem.Value.(*cacheItem).expired(now) {
			c.removeElement(elem)
			removed++
		}
	}
	return removed
}
