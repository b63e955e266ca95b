// Package registry stores non-owning handler references per event type.
package registry

import (
	"sync"

	"asyncevent/internal/event"
)

// Registry is the concrete implementation of the event.Registry interface.
// Each event type owns a bucket with its own lock, so operations on
// different types never serialize each other. The bucket map lock is only
// taken for writing when a bucket is created or the registry is cleared.
type Registry struct {
	mu      sync.RWMutex
	buckets map[*event.Type]*bucket
}

type bucket struct {
	mu   sync.Mutex
	refs map[any]event.Ref
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		buckets: make(map[*event.Type]*bucket),
	}
}

// Add implements event.Registry.Add.
func (r *Registry) Add(t *event.Type, ref event.Ref) bool {
	b := r.bucket(t, true)

	b.mu.Lock()
	defer b.mu.Unlock()

	key := ref.Key()
	if _, exists := b.refs[key]; exists {
		return false
	}
	b.refs[key] = ref

	return true
}

// Remove implements event.Registry.Remove.
func (r *Registry) Remove(t *event.Type, key any) bool {
	b := r.bucket(t, false)
	if b == nil {
		return false
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.refs[key]; !exists {
		return false
	}
	delete(b.refs, key)

	return true
}

// Live implements event.Registry.Live.
func (r *Registry) Live(t *event.Type) []event.Live {
	b := r.bucket(t, false)
	if b == nil {
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.refs) == 0 {
		return nil
	}

	live := make([]event.Live, 0, len(b.refs))
	for _, ref := range b.refs {
		if fn, ok := ref.Resolve(); ok {
			live = append(live, event.Live{Name: ref.Name(), Fn: fn})
		}
	}

	return live
}

// Prune implements event.Registry.Prune.
// It runs under the bucket lock, so a reference added by a concurrent Add is
// either already visible and live, or is inserted after the prune finished.
func (r *Registry) Prune(t *event.Type) int {
	b := r.bucket(t, false)
	if b == nil {
		return 0
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	pruned := 0
	for key, ref := range b.refs {
		if _, ok := ref.Resolve(); !ok {
			delete(b.refs, key)
			pruned++
		}
	}

	return pruned
}

// Len implements event.Registry.Len.
func (r *Registry) Len(t *event.Type) int {
	b := r.bucket(t, false)
	if b == nil {
		return 0
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	return len(b.refs)
}

// Types implements event.Registry.Types.
func (r *Registry) Types() []*event.Type {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.buckets) == 0 {
		return nil
	}

	types := make([]*event.Type, 0, len(r.buckets))
	for t := range r.buckets {
		types = append(types, t)
	}
	return types
}

// Clear implements event.Registry.Clear.
// Buckets are emptied in place, so callers already holding a bucket keep
// writing into the live registry.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, b := range r.buckets {
		b.mu.Lock()
		b.refs = make(map[any]event.Ref)
		b.mu.Unlock()
	}
}

func (r *Registry) bucket(t *event.Type, create bool) *bucket {
	r.mu.RLock()
	b, ok := r.buckets[t]
	r.mu.RUnlock()

	if ok || !create {
		return b
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// another writer may have created it in between
	if b, ok := r.buckets[t]; ok {
		return b
	}

	b = &bucket{refs: make(map[any]event.Ref)}
	r.buckets[t] = b

	return b
}
