// Package resolver turns an event type into the ordered list of types a
// dispatch has to visit.
package resolver

import (
	"fmt"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"

	"asyncevent/internal/event"
)

// DefaultCacheSize bounds the number of cached chains.
const DefaultCacheSize = 100

// Resolver resolves type chains and memoizes them in an LRU cache.
// The type tree is immutable, so a cached chain never goes stale.
type Resolver struct {
	cache  *lru.Cache[*event.Type, []*event.Type]
	hits   atomic.Uint64
	misses atomic.Uint64
}

// Stats reports cache effectiveness.
type Stats struct {
	Hits    uint64
	Misses  uint64
	Entries int
}

// New creates a resolver caching up to size chains.
func New(size int) (*Resolver, error) {
	if size <= 0 {
		return nil, fmt.Errorf("resolver cache size must be positive, got %d", size)
	}

	cache, err := lru.New[*event.Type, []*event.Type](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create resolver cache: %w", err)
	}

	return &Resolver{cache: cache}, nil
}

// Resolve returns t followed by each of its ancestors, ending at event.Root.
// A nil type resolves as event.Root. The returned slice is shared between
// callers and must not be modified.
func (r *Resolver) Resolve(t *event.Type) []*event.Type {
	if t == nil {
		t = event.Root
	}

	if chain, ok := r.cache.Get(t); ok {
		r.hits.Add(1)
		return chain
	}
	r.misses.Add(1)

	chain := walk(t)
	r.cache.Add(t, chain)

	return chain
}

// Stats returns hit and miss counters and the number of cached chains.
func (r *Resolver) Stats() Stats {
	return Stats{
		Hits:    r.hits.Load(),
		Misses:  r.misses.Load(),
		Entries: r.cache.Len(),
	}
}

// Purge drops every cached chain.
func (r *Resolver) Purge() {
	r.cache.Purge()
}

func walk(t *event.Type) []*event.Type {
	var chain []*event.Type
	for cur := t; cur != nil; cur = cur.Parent() {
		chain = append(chain, cur)
	}

	// types built outside NewType may not be rooted
	if chain[len(chain)-1] != event.Root {
		chain = append(chain, event.Root)
	}

	return chain
}
