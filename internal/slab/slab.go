// Package slab implements the per-size object cache allocator (spec §4.6):
// a thread-safe, page-backed freelist for short-lived fixed-size payloads
// (event data, command argument structs). Distinct from sync.Pool because
// the spec requires refcounted caches that never return pages to the OS
// until the refcount drops to zero, and deterministic page-sized growth —
// acquire/release idiom grounded on the teacher's per-payload pool.go, the
// backing allocation strategy is bespoke.
package slab

import (
	"sync"
)

// PageSize is the unit caches grow by when the freelist is empty.
const PageSize = 4096

// Cache is a freelist allocator for elements of a fixed size, shared by
// every producer that needs payloads of that size.
type Cache struct {
	mu        sync.Mutex
	elemSize  int
	refcount  int
	free      [][]byte
	pageCount int
}

// registry keys caches by element size so object_cache_create can
// increment an existing cache's refcount instead of creating a duplicate.
var (
	registryMu sync.Mutex
	registry   = make(map[int]*Cache)
)

// Create returns the cache for elemSize, creating it on first use and
// incrementing its refcount on every call (spec §4.6: "creates or
// increments the refcount of a cache for elements of elem_size").
func Create(elemSize int) *Cache {
	if elemSize <= 0 {
		elemSize = 1
	}
	registryMu.Lock()
	defer registryMu.Unlock()

	c, ok := registry[elemSize]
	if !ok {
		c = &Cache{elemSize: elemSize}
		registry[elemSize] = c
	}
	c.mu.Lock()
	c.refcount++
	c.mu.Unlock()
	return c
}

// ElemSize returns the fixed element size this cache serves.
func (c *Cache) ElemSize() int {
	return c.elemSize
}

// Alloc returns a zeroed cell of ElemSize() bytes, growing the backing
// pages by one PageSize-aligned chunk when the freelist is empty.
func (c *Cache) Alloc() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.free) == 0 {
		c.growLocked()
	}

	n := len(c.free)
	cell := c.free[n-1]
	c.free = c.free[:n-1]
	for i := range cell {
		cell[i] = 0
	}
	return cell
}

// growLocked adds one page's worth of elements to the freelist. Must be
// called with c.mu held.
func (c *Cache) growLocked() {
	perPage := PageSize / c.elemSize
	if perPage < 1 {
		perPage = 1
	}
	page := make([]byte, perPage*c.elemSize)
	for i := 0; i < perPage; i++ {
		c.free = append(c.free, page[i*c.elemSize:(i+1)*c.elemSize])
	}
	c.pageCount++
}

// Free returns cell to the freelist. It is the caller's responsibility to
// stop using cell afterward; slab does not poison freed memory beyond
// zeroing on next Alloc.
func (c *Cache) Free(cell []byte) {
	if cell == nil {
		return
	}
	c.mu.Lock()
	c.free = append(c.free, cell)
	c.mu.Unlock()
}

// Pages reports how many PageSize chunks have been allocated, for tests
// and status reporting.
func (c *Cache) Pages() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pageCount
}

// Destroy decrements the cache's refcount; pages are only released (by
// dropping every reference so the GC can reclaim them) once the refcount
// reaches zero (spec §4.6).
func Destroy(c *Cache) {
	registryMu.Lock()
	defer registryMu.Unlock()

	c.mu.Lock()
	c.refcount--
	dead := c.refcount <= 0
	if dead {
		c.free = nil
	}
	c.mu.Unlock()

	if dead {
		delete(registry, c.elemSize)
	}
}
