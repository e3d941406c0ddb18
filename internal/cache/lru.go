// Package cache provides a small TTL-bounded LRU used to memoize summary
// responses between transaction mutations.
package cache

import (
	"container/list"
	"sync"
	"time"
)

type entry[T any] struct {
	key       string
	value     T
	expiresAt time.Time
}

// LRU evicts the least recently used entry once maxSize is exceeded and
// drops entries past their TTL on read or during CleanExpired.
type LRU[T any] struct {
	mu      sync.Mutex
	maxSize int
	ttl     time.Duration
	items   map[string]*list.Element
	order   *list.List
}

func NewLRU[T any](maxSize int, ttl time.Duration) *LRU[T] {
	return &LRU[T]{
		maxSize: maxSize,
		ttl:     ttl,
		items:   make(map[string]*list.Element),
		order:   list.New(),
	}
}

func (c *LRU[T]) Get(key string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero T
	elem, ok := c.items[key]
	if !ok {
		return zero, false
	}

	e := elem.Value.(*entry[T])
	if time.Now().After(e.expiresAt) {
		c.remove(elem)
		return zero, false
	}

	c.order.MoveToFront(elem)
	return e.value, true
}

func (c *LRU[T]) Set(key string, value T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := &entry[T]{key: key, value: value, expiresAt: time.Now().Add(c.ttl)}

	if elem, ok := c.items[key]; ok {
		elem.Value = e
		c.order.MoveToFront(elem)
		return
	}

	c.items[key] = c.order.PushFront(e)

	if c.order.Len() > c.maxSize {
		if oldest := c.order.Back(); oldest != nil {
			c.remove(oldest)
		}
	}
}

func (c *LRU[T]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		c.remove(elem)
	}
}

// Purge drops every entry. Used after mutations that invalidate all keys.
func (c *LRU[T]) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string]*list.Element)
	c.order.Init()
}

// CleanExpired removes expired entries and returns how many were dropped.
func (c *LRU[T]) CleanExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	var stale []*list.Element
	for elem := c.order.Front(); elem != nil; elem = elem.Next() {
		if now.After(elem.Value.(*entry[T]).expiresAt) {
			stale = append(stale, elem)
		}
	}
	for _, elem := range stale {
		c.remove(elem)
	}
	return len(stale)
}

func (c *LRU[T]) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

func (c *LRU[T]) remove(elem *list.Element) {
	e := elem.Value.(*entry[T])
	delete(c.items, e.key)
	c.order.Remove(elem)
}
