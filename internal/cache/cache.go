// Package cache holds the per-user content list between mutations.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/joescharf/cadence/internal/models"
)

// Cache stores one content list per user.
type Cache interface {
	// Get returns the cached list and whether it was present.
	Get(ctx context.Context, userID string) ([]*models.ContentItem, bool, error)
	Set(ctx context.Context, userID string, items []*models.ContentItem) error
	Invalidate(ctx context.Context, userID string) error
}

type memoryEntry struct {
	items     []*models.ContentItem
	expiresAt time.Time
}

// MemoryCache is an in-process Cache. A zero TTL never expires entries.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

// NewMemoryCache creates an in-process cache.
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (c *MemoryCache) Get(_ context.Context, userID string) ([]*models.ContentItem, bool, error) {
	c.mu.RLock()
	entry, ok := c.entries[userID]
	c.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	if !entry.expiresAt.IsZero() && c.now().After(entry.expiresAt) {
		_ = c.Invalidate(context.Background(), userID)
		return nil, false, nil
	}
	return cloneItems(entry.items), true, nil
}

func (c *MemoryCache) Set(_ context.Context, userID string, items []*models.ContentItem) error {
	entry := memoryEntry{items: cloneItems(items)}
	if c.ttl > 0 {
		entry.expiresAt = c.now().Add(c.ttl)
	}
	c.mu.Lock()
	c.entries[userID] = entry
	c.mu.Unlock()
	return nil
}

func (c *MemoryCache) Invalidate(_ context.Context, userID string) error {
	c.mu.Lock()
	delete(c.entries, userID)
	c.mu.Unlock()
	return nil
}

// cloneItems copies items so callers cannot mutate cached state.
func cloneItems(items []*models.ContentItem) []*models.ContentItem {
	out := make([]*models.ContentItem, len(items))
	for i, it := range items {
		cp := *it
		cp.Tags = append([]string{}, it.Tags...)
		out[i] = &cp
	}
	return out
}
