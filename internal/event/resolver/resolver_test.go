package resolver_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"asyncevent/internal/event"
	"asyncevent/internal/event/resolver"
)

func TestNew(t *testing.T) {
	t.Parallel()

	_, err := resolver.New(0)
	require.Error(t, err)

	_, err = resolver.New(-1)
	require.Error(t, err)

	r, err := resolver.New(resolver.DefaultCacheSize)
	require.NoError(t, err)
	assert.Equal(t, resolver.Stats{}, r.Stats())
}

func TestResolver_Resolve(t *testing.T) {
	t.Parallel()

	user := event.NewType("User", nil)
	created := event.NewType("UserCreated", user)
	verified := event.NewType("UserVerified", created)

	tests := []struct {
		name string
		typ  *event.Type
		want []*event.Type
	}{
		{name: "root", typ: event.Root, want: []*event.Type{event.Root}},
		{name: "nil resolves as root", typ: nil, want: []*event.Type{event.Root}},
		{name: "direct child", typ: user, want: []*event.Type{user, event.Root}},
		{name: "most specific first", typ: verified, want: []*event.Type{verified, created, user, event.Root}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r, err := resolver.New(resolver.DefaultCacheSize)
			require.NoError(t, err)

			assert.Equal(t, tt.want, r.Resolve(tt.typ))
		})
	}

	t.Run("unrooted type gets root appended", func(t *testing.T) {
		t.Parallel()

		r, err := resolver.New(resolver.DefaultCacheSize)
		require.NoError(t, err)

		orphan := new(event.Type)
		got := r.Resolve(orphan)
		require.Len(t, got, 2)
		assert.Same(t, orphan, got[0])
		assert.Same(t, event.Root, got[1])
	})
}

func TestResolver_Caching(t *testing.T) {
	t.Parallel()

	typ := event.NewType("Cached", nil)
	r, err := resolver.New(resolver.DefaultCacheSize)
	require.NoError(t, err)

	first := r.Resolve(typ)
	second := r.Resolve(typ)

	assert.Same(t, &first[0], &second[0])
	assert.Equal(t, resolver.Stats{Hits: 1, Misses: 1, Entries: 1}, r.Stats())

	r.Purge()
	r.Resolve(typ)
	assert.Equal(t, resolver.Stats{Hits: 1, Misses: 2, Entries: 1}, r.Stats())
}

func TestResolver_Eviction(t *testing.T) {
	t.Parallel()

	a := event.NewType("A", nil)
	b := event.NewType("B", nil)
	c := event.NewType("C", nil)

	r, err := resolver.New(2)
	require.NoError(t, err)

	r.Resolve(a)
	r.Resolve(b)
	r.Resolve(a) // a becomes most recently used
	r.Resolve(c) // evicts b

	assert.Equal(t, 2, r.Stats().Entries)

	before := r.Stats()
	r.Resolve(a)
	r.Resolve(b)
	after := r.Stats()

	assert.Equal(t, before.Hits+1, after.Hits)
	assert.Equal(t, before.Misses+1, after.Misses)
}

func TestResolver_Concurrent(t *testing.T) {
	t.Parallel()

	parent := event.NewType("Parent", nil)
	types := make([]*event.Type, 20)
	for i := range types {
		types[i] = event.NewType("Child", parent)
	}

	r, err := resolver.New(8)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				typ := types[(i+j)%len(types)]
				chain := r.Resolve(typ)
				assert.Equal(t, []*event.Type{typ, parent, event.Root}, chain)
			}
		}()
	}
	wg.Wait()

	stats := r.Stats()
	assert.Equal(t, uint64(8*200), stats.Hits+stats.Misses)
	assert.LessOrEqual(t, stats.Entries, 8)
}
