// Package cache provides a small bounded LRU used to memoize query results.
package cache

import "container/list"

// LRU is a fixed-capacity least-recently-used cache. It is not safe for
// concurrent use; the owner is expected to guard it with its own mutex.
type LRU struct {
	capacity int
	order    *list.List
	items    map[string]*list.Element
}

type lruEntry struct {
	key   string
	value any
}

/*
NewLRU creates an LRU cache bounded at capacity entries. Inserting into a
full cache evicts the least-recently-used entry first.
*/
func NewLRU(capacity int) *LRU {
	if capacity < 1 {
		capacity = 1
	}

	return &LRU{
		capacity: capacity,
		order:    list.New(),
		items:    make(map[string]*list.Element, capacity),
	}
}

// Get returns the cached value for key and marks it most recently used.
func (c *LRU) Get(key string) (any, bool) {
	elem, ok := c.items[key]
	if !ok {
		return nil, false
	}

	c.order.MoveToFront(elem)
	return elem.Value.(*lruEntry).value, true
}

// Put stores value under key, evicting the least-recently-used entry when
// the cache is at capacity.
func (c *LRU) Put(key string, value any) {
	if elem, ok := c.items[key]; ok {
		elem.Value.(*lruEntry).value = value
		c.order.MoveToFront(elem)
		return
	}

	if len(c.items) >= c.capacity {
		oldest := c.order.Back()
		if oldest != nil {
			c.order.Remove(oldest)
			delete(c.items, oldest.Value.(*lruEntry).key)
		}
	}

	c.items[key] = c.order.PushFront(&lruEntry{key: key, value: value})
}

// Clear drops every entry. Used as the explicit invalidation hook when the
// owning collection mutates.
func (c *LRU) Clear() {
	c.order.Init()
	c.items = make(map[string]*list.Element, c.capacity)
}

// Len returns the number of cached entries.
func (c *LRU) Len() int {
	return len(c.items)
}
