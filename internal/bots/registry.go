package bots

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Loader fetches the persisted state for one key.
type Loader[T any] func(ctx context.Context, id string) (T, error)

// Registry is a lazily populated, process-lifetime cache of live bot state keyed by bot id.
//
// Concurrent misses for the same id share one load. A load that started before an
// Invalidate or Put for any key is returned to its callers but not cached, so a toggle
// cannot be overwritten by a stale read.
type Registry[T any] struct {
	load Loader[T]

	mu    sync.RWMutex
	items map[string]T
	gen   uint64

	group singleflight.Group
}

func NewRegistry[T any](load Loader[T]) *Registry[T] {
	return &Registry[T]{load: load, items: map[string]T{}}
}

func (r *Registry[T]) Get(ctx context.Context, id string) (T, error) {
	r.mu.RLock()
	v, ok := r.items[id]
	gen := r.gen
	r.mu.RUnlock()
	if ok {
		return v, nil
	}

	res, err, _ := r.group.Do(id, func() (any, error) {
		loaded, err := r.load(ctx, id)
		if err != nil {
			return loaded, err
		}
		r.mu.Lock()
		if r.gen == gen {
			r.items[id] = loaded
		}
		r.mu.Unlock()
		return loaded, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return res.(T), nil
}

// Put replaces the cached state after a successful write.
func (r *Registry[T]) Put(id string, v T) {
	r.mu.Lock()
	r.items[id] = v
	r.gen++
	r.mu.Unlock()
	r.group.Forget(id)
}

func (r *Registry[T]) Invalidate(id string) {
	r.mu.Lock()
	delete(r.items, id)
	r.gen++
	r.mu.Unlock()
	r.group.Forget(id)
}

func (r *Registry[T]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items)
}
