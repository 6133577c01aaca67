package embedding

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// EmbeddingCache is an LRU cache for embeddings keyed by text.
type EmbeddingCache struct {
	cache *lru.Cache[string, []float32]
}

// NewEmbeddingCache creates a new cache with the given capacity.
// A non-positive capacity yields a disabled cache that never stores anything.
func NewEmbeddingCache(capacity int) *EmbeddingCache {
	if capacity <= 0 {
		return &EmbeddingCache{}
	}
	c, err := lru.New[string, []float32](capacity)
	if err != nil {
		return &EmbeddingCache{}
	}
	return &EmbeddingCache{cache: c}
}

// Get returns a copy of the cached embedding for key if present.
func (c *EmbeddingCache) Get(key string) ([]float32, bool) {
	if c.cache == nil {
		return nil, false
	}
	v, ok := c.cache.Get(key)
	if !ok {
		return nil, false
	}
	out := make([]float32, len(v))
	copy(out, v)
	return out, true
}

// Set stores a copy of the embedding for key, evicting the least recently used entry if at capacity.
func (c *EmbeddingCache) Set(key string, value []float32) {
	if c.cache == nil {
		return
	}
	stored := make([]float32, len(value))
	copy(stored, value)
	c.cache.Add(key, stored)
}

// Len returns the number of cached embeddings.
func (c *EmbeddingCache) Len() int {
	if c.cache == nil {
		return 0
	}
	return c.cache.Len()
}
