package cache

import (
	"container/list"
	"sync"
	"time"
)

// LRU is a size-bounded cache whose entries expire ttl after their last use.
// When full, the least recently used entry is evicted.
type LRU[T any] struct {
	mu      sync.Mutex
	maxSize int
	ttl     time.Duration
	items   map[string]*list.Element
	order   *list.List
	now     func() time.Time
	onEvict func(key string, data T)
}

type entry[T any] struct {
	key       string
	data      T
	expiresAt time.Time
}

type LRUOption[T any] func(*LRU[T])

// WithClock replaces time.Now.
func WithClock[T any](now func() time.Time) LRUOption[T] {
	return func(c *LRU[T]) { c.now = now }
}

// OnEvict registers a callback for entries dropped by expiry or capacity.
// It runs with the cache lock held and must not call back into the cache.
func OnEvict[T any](fn func(key string, data T)) LRUOption[T] {
	return func(c *LRU[T]) { c.onEvict = fn }
}

func NewLRU[T any](maxSize int, ttl time.Duration, opts ...LRUOption[T]) *LRU[T] {
	c := &LRU[T]{
		maxSize: maxSize,
		ttl:     ttl,
		items:   make(map[string]*list.Element),
		order:   list.New(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the entry for key and extends its lifetime.
func (c *LRU[T]) Get(key string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero T
	elem, ok := c.items[key]
	if !ok {
		return zero, false
	}

	e := elem.Value.(*entry[T])
	now := c.now()
	if now.After(e.expiresAt) {
		c.evict(elem)
		return zero, false
	}
	e.expiresAt = now.Add(c.ttl)
	c.order.MoveToFront(elem)
	return e.data, true
}

func (c *LRU[T]) Set(key string, data T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := &entry[T]{key: key, data: data, expiresAt: c.now().Add(c.ttl)}
	if elem, ok := c.items[key]; ok {
		elem.Value = e
		c.order.MoveToFront(elem)
		return
	}

	c.items[key] = c.order.PushFront(e)
	for c.order.Len() > c.maxSize {
		c.evict(c.order.Back())
	}
}

// Delete removes key without calling the eviction callback.
func (c *LRU[T]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		c.remove(elem)
	}
}

// CleanExpired removes all expired entries and returns how many went.
func (c *LRU[T]) CleanExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for elem := c.order.Back(); elem != nil; {
		prev := elem.Prev()
		if now.After(elem.Value.(*entry[T]).expiresAt) {
			c.evict(elem)
			removed++
		}
		elem = prev
	}
	return removed
}

func (c *LRU[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

func (c *LRU[T]) evict(elem *list.Element) {
	e := c.remove(elem)
	if c.onEvict != nil {
		c.onEvict(e.key, e.data)
	}
}

func (c *LRU[T]) remove(elem *list.Element) *entry[T] {
	e := elem.Value.(*entry[T])
	delete(c.items, e.key)
	c.order.Remove(elem)
	return e
}
