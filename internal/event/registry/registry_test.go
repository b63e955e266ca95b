package registry_test

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"asyncevent/internal/event"
	"asyncevent/internal/event/registry"
)

// stubRef is a reference whose liveness the test controls.
type stubRef struct {
	key  string
	dead atomic.Bool
}

func newStubRef(key string) *stubRef {
	return &stubRef{key: key}
}

func (r *stubRef) Resolve() (event.HandlerFunc, bool) {
	if r.dead.Load() {
		return nil, false
	}
	return func(context.Context, event.Event) {}, true
}

func (r *stubRef) Key() any     { return r.key }
func (r *stubRef) Name() string { return r.key }

func TestRegistry_Add(t *testing.T) {
	t.Parallel()

	typ := event.NewType("Added", nil)
	r := registry.New()

	assert.True(t, r.Add(typ, newStubRef("a")))
	assert.False(t, r.Add(typ, newStubRef("a")), "equal keys are one subscription")
	assert.True(t, r.Add(typ, newStubRef("b")))
	assert.True(t, r.Add(event.Root, newStubRef("a")), "types are independent")

	assert.Equal(t, 2, r.Len(typ))
	assert.Equal(t, 1, r.Len(event.Root))
	assert.ElementsMatch(t, []*event.Type{typ, event.Root}, r.Types())
}

func TestRegistry_Remove(t *testing.T) {
	t.Parallel()

	typ := event.NewType("Removed", nil)
	r := registry.New()

	assert.False(t, r.Remove(typ, "a"), "unknown type")

	r.Add(typ, newStubRef("a"))
	assert.False(t, r.Remove(typ, "b"))
	assert.True(t, r.Remove(typ, "a"))
	assert.False(t, r.Remove(typ, "a"))
	assert.Zero(t, r.Len(typ))
}

func TestRegistry_Live(t *testing.T) {
	t.Parallel()

	typ := event.NewType("Live", nil)
	r := registry.New()

	assert.Empty(t, r.Live(typ))

	alive := newStubRef("alive")
	dead := newStubRef("dead")
	dead.dead.Store(true)
	r.Add(typ, alive)
	r.Add(typ, dead)

	live := r.Live(typ)
	require.Len(t, live, 1)
	assert.Equal(t, "alive", live[0].Name)
	assert.NotNil(t, live[0].Fn)

	assert.Equal(t, 2, r.Len(typ), "live does not prune")
}

func TestRegistry_Prune(t *testing.T) {
	t.Parallel()

	typ := event.NewType("Pruned", nil)
	r := registry.New()

	assert.Zero(t, r.Prune(typ))

	refs := []*stubRef{newStubRef("a"), newStubRef("b"), newStubRef("c")}
	for _, ref := range refs {
		r.Add(typ, ref)
	}
	refs[0].dead.Store(true)
	refs[2].dead.Store(true)

	assert.Equal(t, 2, r.Prune(typ))
	assert.Equal(t, 1, r.Len(typ))
	assert.Zero(t, r.Prune(typ))
}

func TestRegistry_PruneKeepsConcurrentAdds(t *testing.T) {
	t.Parallel()

	typ := event.NewType("Contended", nil)
	other := event.NewType("Other", nil)
	r := registry.New()

	for i := 0; i < 100; i++ {
		ref := newStubRef(fmt.Sprintf("dead-%d", i))
		ref.dead.Store(true)
		r.Add(typ, ref)
	}

	const adders, perAdder = 4, 250

	var wg sync.WaitGroup
	for i := 0; i < adders; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perAdder; j++ {
				r.Add(typ, newStubRef(keyFor(i, j)))
			}
		}()
	}

	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			r.Prune(typ)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			r.Add(other, newStubRef(keyFor(99, i)))
			r.Live(other)
		}
	}()
	wg.Wait()

	r.Prune(typ)
	assert.Equal(t, adders*perAdder, r.Len(typ))
	assert.Len(t, r.Live(typ), adders*perAdder)
	assert.Equal(t, 100, r.Len(other))
}

func TestRegistry_Clear(t *testing.T) {
	t.Parallel()

	a := event.NewType("A", nil)
	b := event.NewType("B", a)
	r := registry.New()

	r.Add(a, newStubRef("x"))
	r.Add(b, newStubRef("y"))
	r.Clear()

	assert.Zero(t, r.Len(a))
	assert.Zero(t, r.Len(b))
	assert.Empty(t, r.Live(a))

	assert.True(t, r.Add(a, newStubRef("x")), "registry is usable after clear")
	assert.Equal(t, 1, r.Len(a))
}

func keyFor(i, j int) string {
	return fmt.Sprintf("%d-%d", i, j)
}
