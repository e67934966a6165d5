package memcache

import (
	"container/list"
	"errors"
	"sync"
)

// EvictFunc 在条目离开缓存时收到其键与成本。回调由缓存内部的派发
// goroutine 串行调用，调用方无需再做同步，但不应在回调里再写同一缓存。
type EvictFunc func(key string, cost int64)

// Options 描述缓存的成本上限与淘汰回调。
type Options struct {
	// CostLimit 为驻留成本上限（字节），必须大于 0。
	CostLimit int64
	// OnEvict 可为 nil，表示丢弃淘汰通知。
	OnEvict EvictFunc
}

// Cache 是按成本限额的内存缓存，键为字符串，值类型由调用方指定。
// 访问顺序按最近使用排列；写入使总成本超限时从最久未用端淘汰，
// 直到回到限额以内。每个条目离开缓存（被挤出、被覆盖、被删除或被
// 清空）都恰好产生一次淘汰通知，通知经内部队列异步送达。
type Cache[V any] struct {
	limit   int64
	onEvict EvictFunc

	mu    sync.Mutex
	order *list.List
	items map[string]*list.Element
	used  int64

	notifyMu   sync.Mutex
	notifyCond *sync.Cond
	pending    []eviction
	delivering bool
	closed     bool

	done      chan struct{}
	closeOnce sync.Once
}

type entry[V any] struct {
	key   string
	value V
	cost  int64
}

type eviction struct {
	key  string
	cost int64
}

// New 构建缓存并启动通知派发 goroutine。Close 之后不得再写入。
func New[V any](opts Options) (*Cache[V], error) {
	if opts.CostLimit <= 0 {
		return nil, errors.New("cost limit required")
	}

	c := &Cache[V]{
		limit:   opts.CostLimit,
		onEvict: opts.OnEvict,
		order:   list.New(),
		items:   make(map[string]*list.Element),
		done:    make(chan struct{}),
	}
	c.notifyCond = sync.NewCond(&c.notifyMu)
	go c.dispatch()
	return c, nil
}

// Get 返回键对应的值并将其刷新为最近使用。
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[key]
	if !ok {
		var zero V
		return zero, false
	}
	c.order.MoveToFront(elem)
	return elem.Value.(*entry[V]).value, true
}

// Put 写入键值及其成本。键已存在时旧条目视作被淘汰（产生通知），
// 新条目置于最近使用端；若写入后总成本超限，从最久未用端逐个淘汰。
// 成本超过整个限额的条目在写入后立即被淘汰，同样产生通知。
func (c *Cache[V]) Put(key string, value V, cost int64) {
	if cost < 0 {
		cost = 0
	}

	c.mu.Lock()
	if elem, ok := c.items[key]; ok {
		c.dropLocked(elem)
	}

	elem := c.order.PushFront(&entry[V]{key: key, value: value, cost: cost})
	c.items[key] = elem
	c.used += cost

	for c.used > c.limit && c.order.Len() > 0 {
		c.dropLocked(c.order.Back())
	}
	c.mu.Unlock()
}

// Remove 删除键对应的条目并产生淘汰通知，返回条目是否存在。
func (c *Cache[V]) Remove(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[key]
	if !ok {
		return false
	}
	c.dropLocked(elem)
	return true
}

// Purge 清空缓存，每个条目各产生一次淘汰通知。
func (c *Cache[V]) Purge() {
	c.mu.Lock()
	for c.order.Len() > 0 {
		c.dropLocked(c.order.Back())
	}
	c.mu.Unlock()
}

// Len 返回当前驻留条目数。
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Cost 返回当前驻留总成本。
func (c *Cache[V]) Cost() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.used
}

// Limit 返回构建时设定的成本上限。
func (c *Cache[V]) Limit() int64 {
	return c.limit
}

// dropLocked 摘除条目并把淘汰通知放入派发队列，调用方需持有 mu。
func (c *Cache[V]) dropLocked(elem *list.Element) {
	ent := elem.Value.(*entry[V])
	c.order.Remove(elem)
	delete(c.items, ent.key)
	c.used -= ent.cost

	c.notifyMu.Lock()
	c.pending = append(c.pending, eviction{key: ent.key, cost: ent.cost})
	c.notifyCond.Broadcast()
	c.notifyMu.Unlock()
}

// dispatch 串行送达淘汰通知，Close 时先清空队列再退出。
func (c *Cache[V]) dispatch() {
	defer close(c.done)
	for {
		c.notifyMu.Lock()
		for len(c.pending) == 0 && !c.closed {
			c.notifyCond.Wait()
		}
		if len(c.pending) == 0 {
			c.notifyMu.Unlock()
			return
		}
		ev := c.pending[0]
		c.pending = c.pending[1:]
		c.delivering = true
		c.notifyMu.Unlock()

		if c.onEvict != nil {
			c.onEvict(ev.key, ev.cost)
		}

		c.notifyMu.Lock()
		c.delivering = false
		if len(c.pending) == 0 {
			c.notifyCond.Broadcast()
		}
		c.notifyMu.Unlock()
	}
}

// Wait 阻塞到所有已入队的淘汰通知送达完毕。
func (c *Cache[V]) Wait() {
	c.notifyMu.Lock()
	for len(c.pending) > 0 || c.delivering {
		c.notifyCond.Wait()
	}
	c.notifyMu.Unlock()
}

// Close 送达剩余通知后停止派发 goroutine，可安全重复调用。
func (c *Cache[V]) Close() {
	c.closeOnce.Do(func() {
		c.notifyMu.Lock()
		c.closed = true
		c.notifyCond.Broadcast()
		c.notifyMu.Unlock()
		<-c.done
	})
}
