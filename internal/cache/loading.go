package cache

import (
	"context"
	"time"

	"golang.org/x/sync/singleflight"
)

// LoadingCache fronts a loader with an LRU. Concurrent misses on the same
// key share one load; failed loads are not cached.
type LoadingCache[T any] struct {
	lru   *LRUCache[T]
	group singleflight.Group
}

func NewLoadingCache[T any](maxSize int, ttl time.Duration) *LoadingCache[T] {
	return &LoadingCache[T]{lru: NewLRUCache[T](maxSize, ttl)}
}

// Get returns the cached value for key or calls load once for all waiters.
func (c *LoadingCache[T]) Get(ctx context.Context, key string, load func(context.Context) (T, error)) (T, error) {
	if v, ok := c.lru.Get(key); ok {
		return v, nil
	}

	ch := c.group.DoChan(key, func() (any, error) {
		v, err := load(context.WithoutCancel(ctx))
		if err != nil {
			return v, err
		}
		c.lru.Set(key, v)
		return v, nil
	})

	select {
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	case res := <-ch:
		v, _ := res.Val.(T)
		return v, res.Err
	}
}

func (c *LoadingCache[T]) Invalidate(key string) {
	c.group.Forget(key)
	c.lru.Delete(key)
}

func (c *LoadingCache[T]) InvalidatePrefix(prefix string) int {
	return c.lru.DeletePrefix(prefix)
}

func (c *LoadingCache[T]) CleanExpired() int {
	return c.lru.CleanExpired()
}

func (c *LoadingCache[T]) Size() int {
	return c.lru.Size()
}
