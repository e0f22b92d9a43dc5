package minimap

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

type CacheKey struct {
	X int
	Z int
}

// ColumnCache remembers the last known good sample of world columns. Entries
// never expire; once capacity is reached the least recently used column is
// dropped. Sentinel samples are never stored.
type ColumnCache struct {
	capacity int
	columns  *lru.Cache[CacheKey, ColumnSample]
}

func NewColumnCache(capacity int) *ColumnCache {
	if capacity <= 0 {
		capacity = 1
	}
	columns, err := lru.New[CacheKey, ColumnSample](capacity)
	if err != nil {
		// only returned for a non-positive size
		panic(err)
	}
	return &ColumnCache{
		capacity: capacity,
		columns:  columns,
	}
}

func (c *ColumnCache) Contains(x, z int) bool {
	return c.columns.Contains(CacheKey{X: x, Z: z})
}

func (c *ColumnCache) Get(x, z int) (ColumnSample, bool) {
	return c.columns.Get(CacheKey{X: x, Z: z})
}

func (c *ColumnCache) Put(x, z int, sample ColumnSample) {
	if sample.IsSentinel() {
		return
	}
	c.columns.Add(CacheKey{X: x, Z: z}, sample)
}

func (c *ColumnCache) Len() int {
	return c.columns.Len()
}

func (c *ColumnCache) Capacity() int {
	return c.capacity
}
