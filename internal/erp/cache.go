package erp

import (
	"sync"
	"time"

	"po-reconciliation-service/internal/models"
)

// lineCache is a short-lived in-memory cache of remote order lines keyed by
// external order id. It exists to absorb repeated reconciliations of the same
// order within a few minutes, not to replace the persistent line store.
type lineCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]cacheEntry
	now     func() time.Time
}

type cacheEntry struct {
	lines     []models.RemoteLineRecord
	fetchedAt time.Time
}

func newLineCache(ttl time.Duration) *lineCache {
	return &lineCache{
		ttl:     ttl,
		entries: make(map[string]cacheEntry),
		now:     time.Now,
	}
}

// get returns the cached lines and whether they are still fresh. Stale
// entries are returned too; the caller decides whether staleness is
// acceptable.
func (c *lineCache) get(key string) (lines []models.RemoteLineRecord, fresh, ok bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil, false, false
	}
	return entry.lines, c.now().Sub(entry.fetchedAt) < c.ttl, true
}

func (c *lineCache) put(key string, lines []models.RemoteLineRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{lines: lines, fetchedAt: c.now()}
}

func (c *lineCache) invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}
