package cache

import (
	"container/list"
	"sync"
	"time"
)

// LRUCache bounds entries by count and by idle time. Reads refresh the
// deadline, so an entry expires only after ttl without access.
type LRUCache[T any] struct {
	mu      sync.Mutex
	maxSize int
	ttl     time.Duration
	items   map[string]*list.Element
	order   *list.List
	now     func() time.Time
	onEvict func(key string, value T)
}

type entry[T any] struct {
	key       string
	value     T
	expiresAt time.Time
}

type Option[T any] func(*LRUCache[T])

// WithEvictHook is called, outside the lock, for every entry removed by
// capacity, expiry or Delete. Replacing a key with Set does not fire it.
func WithEvictHook[T any](fn func(key string, value T)) Option[T] {
	return func(c *LRUCache[T]) { c.onEvict = fn }
}

// WithClock overrides time.Now.
func WithClock[T any](now func() time.Time) Option[T] {
	return func(c *LRUCache[T]) { c.now = now }
}

func NewLRUCache[T any](maxSize int, ttl time.Duration, opts ...Option[T]) *LRUCache[T] {
	if maxSize <= 0 {
		maxSize = 1
	}
	c := &LRUCache[T]{
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

func (c *LRUCache[T]) Get(key string) (T, bool) {
	var zero T

	c.mu.Lock()
	elem, ok := c.items[key]
	if !ok {
		c.mu.Unlock()
		return zero, false
	}
	e := elem.Value.(*entry[T])
	now := c.now()
	if now.After(e.expiresAt) {
		c.remove(elem)
		c.mu.Unlock()
		c.evicted(e)
		return zero, false
	}
	e.expiresAt = now.Add(c.ttl)
	c.order.MoveToFront(elem)
	c.mu.Unlock()
	return e.value, true
}

func (c *LRUCache[T]) Set(key string, value T) {
	c.mu.Lock()
	expiresAt := c.now().Add(c.ttl)
	if elem, ok := c.items[key]; ok {
		e := elem.Value.(*entry[T])
		e.value = value
		e.expiresAt = expiresAt
		c.order.MoveToFront(elem)
		c.mu.Unlock()
		return
	}

	c.items[key] = c.order.PushFront(&entry[T]{key: key, value: value, expiresAt: expiresAt})
	var dropped *entry[T]
	if c.order.Len() > c.maxSize {
		if oldest := c.order.Back(); oldest != nil {
			dropped = oldest.Value.(*entry[T])
			c.remove(oldest)
		}
	}
	c.mu.Unlock()

	if dropped != nil {
		c.evicted(dropped)
	}
}

func (c *LRUCache[T]) Delete(key string) {
	c.mu.Lock()
	elem, ok := c.items[key]
	if !ok {
		c.mu.Unlock()
		return
	}
	e := elem.Value.(*entry[T])
	c.remove(elem)
	c.mu.Unlock()
	c.evicted(e)
}

// CleanExpired removes every expired entry and returns the count.
func (c *LRUCache[T]) CleanExpired() int {
	c.mu.Lock()
	now := c.now()
	var gone []*entry[T]
	for elem := c.order.Back(); elem != nil; {
		prev := elem.Prev()
		if e := elem.Value.(*entry[T]); now.After(e.expiresAt) {
			gone = append(gone, e)
			c.remove(elem)
		}
		elem = prev
	}
	c.mu.Unlock()

	for _, e := range gone {
		c.evicted(e)
	}
	return len(gone)
}

func (c *LRUCache[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

func (c *LRUCache[T]) remove(elem *list.Element) {
	delete(c.items, elem.Value.(*entry[T]).key)
	c.order.Remove(elem)
}

func (c *LRUCache[T]) evicted(e *entry[T]) {
	if c.onEvict != nil {
		c.onEvict(e.key, e.value)
	}
}
