package ecs

import "github.com/thirdroom/simcore/internal/core/shm"

// View is a read-only window onto a World's shared stores, safe to use from a
// consumer goroutine. It never touches the allocator or the destroy queue.
type View struct {
	registry  *Registry
	alive     *shm.Store
	highWater *shm.Cell
}

// EachAlive calls fn for every entity whose alive flag is set at the moment
// it is inspected. An entity may die while fn runs; its slots stay readable
// until the reclamation watermark passes the tick this view is serving.
func (v *View) EachAlive(fn func(EntityID)) {
	n := v.highWater.Load()
	for i := uint32(0); i < n; i++ {
		if v.alive.Uint32(i, 0) == 1 {
			fn(EntityID(i))
		}
	}
}

func (v *View) Alive(id EntityID) bool {
	return uint32(id) < v.highWater.Load() && v.alive.Uint32(uint32(id), 0) == 1
}

// Store looks up a component store by name. The registry is immutable once
// the world is built, so concurrent lookups are safe.
func (v *View) Store(name string) (*shm.Store, bool) {
	return v.registry.Store(name)
}

// EachStore calls fn for every registered store, the alive flags included.
func (v *View) EachStore(fn func(*shm.Store)) {
	v.registry.Each(fn)
}
