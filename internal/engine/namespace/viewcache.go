package namespace

import (
	"container/list"
	"qxsense/internal/shared/observability"
	"sync"
)

// viewCache is a bounded LRU of merged class views keyed by class name.
type viewCache struct {
	mu       sync.Mutex
	capacity int
	items    map[string]*list.Element
	order    *list.List // front = most-recently used
}

type viewEntry struct {
	name string
	view *ClassRecord
}

func newViewCache(capacity int) *viewCache {
	if capacity <= 0 {
		capacity = 1
	}
	return &viewCache{
		capacity: capacity,
		items:    make(map[string]*list.Element, capacity),
		order:    list.New(),
	}
}

func (c *viewCache) get(name string) (*ClassRecord, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[name]
	if !ok {
		observability.ViewCacheMisses.Inc()
		return nil, false
	}
	observability.ViewCacheHits.Inc()
	c.order.MoveToFront(el)
	return el.Value.(*viewEntry).view, true
}

func (c *viewCache) put(name string, view *ClassRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[name]; ok {
		c.order.MoveToFront(el)
		el.Value.(*viewEntry).view = view
		return
	}
	if c.order.Len() >= c.capacity {
		if back := c.order.Back(); back != nil {
			c.order.Remove(back)
			delete(c.items, back.Value.(*viewEntry).name)
		}
	}
	c.items[name] = c.order.PushFront(&viewEntry{name: name, view: view})
}

func (c *viewCache) evict(names ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, name := range names {
		if el, ok := c.items[name]; ok {
			c.order.Remove(el)
			delete(c.items, name)
		}
	}
}

func (c *viewCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

func (c *viewCache) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.order.Init()
	c.items = make(map[string]*list.Element, c.capacity)
}
