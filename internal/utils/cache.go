package utils

import (
	"sort"

	"power-monitor/internal/model"
)

// LatestCache maps a reading key to its most recently accepted (timestamp, value).
// It is not safe for concurrent use; the owning DB serializes access.
type LatestCache struct {
	data map[string]model.Item
}

// NewLatestCache creates an empty cache.
func NewLatestCache() *LatestCache {
	return &LatestCache{data: make(map[string]model.Item, 64)}
}

// Get returns the cached entry for key.
func (c *LatestCache) Get(key string) (model.Item, bool) {
	it, ok := c.data[key]
	return it, ok
}

// Set creates or replaces the entry for key.
func (c *LatestCache) Set(key string, it model.Item) {
	c.data[key] = it
}

// Len returns the number of cached keys.
func (c *LatestCache) Len() int { return len(c.data) }

// Keys returns the cached keys in sorted order.
func (c *LatestCache) Keys() []string {
	keys := make([]string, 0, len(c.data))
	for k := range c.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Reset drops every entry.
func (c *LatestCache) Reset() {
	c.data = make(map[string]model.Item, 64)
}
