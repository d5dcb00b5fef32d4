package icon

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Cache 以规范化 Key 记忆图标加载结果。只追加、进程内常驻；
// 失败结果不缓存，以便补齐资源后重试。
type Cache struct {
	loader Loader

	mu      sync.RWMutex
	entries map[Key]Image
	group   singleflight.Group
}

// NewCache 包装 loader。
func NewCache(loader Loader) *Cache {
	return &Cache{loader: loader, entries: map[Key]Image{}}
}

// Get 规范化颜色后加载图标；同一 Key 的并发请求只会触发一次底层加载。
func (c *Cache) Get(ctx context.Context, name, fg, bg string) (Image, error) {
	key, err := NewKey(name, fg, bg)
	if err != nil {
		return Image{}, err
	}
	return c.Load(ctx, key)
}

// Load 实现 Loader，使 Cache 可以叠加在任意 Loader 之上。
func (c *Cache) Load(ctx context.Context, key Key) (Image, error) {
	c.mu.RLock()
	img, ok := c.entries[key]
	c.mu.RUnlock()
	if ok {
		return img, nil
	}

	v, err, _ := c.group.Do(key.String(), func() (any, error) {
		c.mu.RLock()
		img, ok := c.entries[key]
		c.mu.RUnlock()
		if ok {
			return img, nil
		}
		img, err := c.loader.Load(ctx, key)
		if err != nil {
			return Image{}, err
		}
		c.mu.Lock()
		c.entries[key] = img
		c.mu.Unlock()
		return img, nil
	})
	if err != nil {
		return Image{}, err
	}
	return v.(Image), nil
}

// Len 返回已缓存的条目数。
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
