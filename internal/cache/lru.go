// 包 cache：进程内 LRU 缓存（带 TTL）
package cache

import (
	"container/list"
	"sync"
	"time"
)

// 文档注释：本地 LRU 缓存
// 背景：热点键在短周期内重复读取，进程内缓存降低计算与外部调用开销；TTL 可调。
// 约束：容量 <=0 时按 1024 处理；ttl<=0 表示不过期；线程安全。
type LRU[K comparable, V any] struct {
	mu   sync.Mutex
	cap  int
	ttl  time.Duration
	lst  *list.List
	dict map[K]*list.Element
	now  func() time.Time
}

type entry[K comparable, V any] struct {
	k   K
	v   V
	exp time.Time
}

func NewLRU[K comparable, V any](capacity int, ttl time.Duration) *LRU[K, V] {
	if capacity <= 0 {
		capacity = 1024
	}
	return &LRU[K, V]{cap: capacity, ttl: ttl, lst: list.New(), dict: make(map[K]*list.Element), now: time.Now}
}

func (c *LRU[K, V]) Get(k K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.dict[k]; ok {
		it := e.Value.(entry[K, V])
		if c.ttl <= 0 || c.now().Before(it.exp) {
			c.lst.MoveToFront(e)
			return it.v, true
		}
		c.lst.Remove(e)
		delete(c.dict, k)
	}
	var zero V
	return zero, false
}

func (c *LRU[K, V]) Set(k K, v V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	it := entry[K, V]{k: k, v: v, exp: c.now().Add(c.ttl)}
	if e, ok := c.dict[k]; ok {
		e.Value = it
		c.lst.MoveToFront(e)
		return
	}
	c.dict[k] = c.lst.PushFront(it)
	for c.lst.Len() > c.cap {
		back := c.lst.Back()
		if back == nil {
			break
		}
		delete(c.dict, back.Value.(entry[K, V]).k)
		c.lst.Remove(back)
	}
}

func (c *LRU[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lst.Len()
}

// Purge：清空全部条目
func (c *LRU[K, V]) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lst.Init()
	c.dict = make(map[K]*list.Element)
}
