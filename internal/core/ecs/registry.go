package ecs

import (
	"fmt"

	"github.com/thirdroom/simcore/internal/core/shm"
)

// Registry tracks all component stores by name and supports bulk reset of an
// entity's slots when its id is handed back to the allocator.
type Registry struct {
	stores []*shm.Store
	byName map[string]*shm.Store
}

func NewRegistry() *Registry {
	return &Registry{
		stores: make([]*shm.Store, 0, 16),
		byName: make(map[string]*shm.Store, 16),
	}
}

// Register adds a component store to the registry.
func (r *Registry) Register(s *shm.Store) error {
	if _, ok := r.byName[s.Name()]; ok {
		return fmt.Errorf("register %q: %w", s.Name(), shm.ErrDuplicateField)
	}
	r.stores = append(r.stores, s)
	r.byName[s.Name()] = s
	return nil
}

func (r *Registry) Store(name string) (*shm.Store, bool) {
	s, ok := r.byName[name]
	return s, ok
}

// ResetAll zeroes the given entity's slot in every registered store.
func (r *Registry) ResetAll(id EntityID) {
	for _, s := range r.stores {
		s.Zero(uint32(id))
	}
}

func (r *Registry) Each(fn func(*shm.Store)) {
	for _, s := range r.stores {
		fn(s)
	}
}

func (r *Registry) Len() int { return len(r.stores) }
