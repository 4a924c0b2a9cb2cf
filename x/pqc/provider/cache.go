package provider

import "sync"

// adapterCache maps cache keys to fully constructed adapters. Entries are
// only ever inserted complete, so a lookup never observes a partial adapter.
type adapterCache struct {
	mu      sync.RWMutex
	entries map[string]*SignerAdapter
}

func newAdapterCache() *adapterCache {
	return &adapterCache{entries: make(map[string]*SignerAdapter)}
}

func (c *adapterCache) get(key string) (*SignerAdapter, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	a, ok := c.entries[key]
	return a, ok
}

// getOrInsert stores a unless another adapter is already resident, in which
// case the resident one is returned and inserted is false.
func (c *adapterCache) getOrInsert(key string, a *SignerAdapter) (resident *SignerAdapter, inserted bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.entries[key]; ok {
		return existing, false
	}
	c.entries[key] = a
	return a, true
}

func (c *adapterCache) purge() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := len(c.entries)
	c.entries = make(map[string]*SignerAdapter)
	return n
}

func (c *adapterCache) len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
