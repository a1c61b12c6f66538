// Package memo provides the memoization capability used by route resolution.
//
// Resolution functions are pure in their inputs, so results can be cached by
// key and recomputed only when the underlying directory listing changes. The
// caller owns invalidation: when a directory changes, it invalidates that
// directory's key and the keys of its ancestors.
//
//	cache, _ := memo.NewLRU[string, *Tree](1024, func(k string) string { return k })
//	tree, err := cache.Get(ctx, dir, func(ctx context.Context) (*Tree, error) {
//	    return build(ctx, dir)
//	})
package memo

import (
	"context"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"
)

// Cache memoizes values by key.
type Cache[K comparable, V any] interface {
	// Get returns the cached value for key, calling compute on a miss.
	// Concurrent misses for the same key share one computation.
	// Errors are never cached.
	Get(ctx context.Context, key K, compute func(context.Context) (V, error)) (V, error)

	// Invalidate drops every entry whose key matches and returns the count.
	Invalidate(match func(K) bool) int

	// Purge drops every entry.
	Purge()
}

// LRU is a bounded Cache backed by an LRU.
//
// Results computed while an invalidation happened are returned to the caller
// but not stored, so a later Get observes the post-invalidation state.
type LRU[K comparable, V any] struct {
	cache   *lru.Cache[K, V]
	group   singleflight.Group
	keyFunc func(K) string

	mu    sync.Mutex
	epoch uint64
}

// NewLRU creates an LRU cache holding at most size entries. keyFunc maps a
// key to a string unique among live keys; it is used to share in-flight
// computations.
func NewLRU[K comparable, V any](size int, keyFunc func(K) string) (*LRU[K, V], error) {
	cache, err := lru.New[K, V](size)
	if err != nil {
		return nil, err
	}
	return &LRU[K, V]{cache: cache, keyFunc: keyFunc}, nil
}

// Get implements Cache.
func (c *LRU[K, V]) Get(ctx context.Context, key K, compute func(context.Context) (V, error)) (V, error) {
	if v, ok := c.cache.Get(key); ok {
		return v, nil
	}

	result, err, _ := c.group.Do(c.keyFunc(key), func() (any, error) {
		if v, ok := c.cache.Get(key); ok {
			return v, nil
		}

		c.mu.Lock()
		epoch := c.epoch
		c.mu.Unlock()

		v, err := compute(ctx)
		if err != nil {
			return v, err
		}

		c.mu.Lock()
		if c.epoch == epoch {
			c.cache.Add(key, v)
		}
		c.mu.Unlock()
		return v, nil
	})
	if err != nil {
		var zero V
		return zero, err
	}
	v, _ := result.(V)
	return v, nil
}

// Invalidate implements Cache.
func (c *LRU[K, V]) Invalidate(match func(K) bool) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.epoch++

	n := 0
	for _, key := range c.cache.Keys() {
		if match(key) {
			c.cache.Remove(key)
			n++
		}
	}
	return n
}

// Purge implements Cache.
func (c *LRU[K, V]) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.epoch++
	c.cache.Purge()
}

// Len returns the number of cached entries.
func (c *LRU[K, V]) Len() int {
	return c.cache.Len()
}

// None returns a Cache that never stores anything.
func None[K comparable, V any]() Cache[K, V] {
	return none[K, V]{}
}

type none[K comparable, V any] struct{}

func (none[K, V]) Get(ctx context.Context, _ K, compute func(context.Context) (V, error)) (V, error) {
	return compute(ctx)
}

func (none[K, V]) Invalidate(func(K) bool) int { return 0 }

func (none[K, V]) Purge() {}
