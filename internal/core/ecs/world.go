package ecs

import (
	"fmt"

	"github.com/thirdroom/simcore/internal/core/shm"
)

// AliveStore is the reserved store holding one liveness flag per entity.
const AliveStore = "alive"

// World is the simulation thread's ECS container. It owns the allocator, the
// component registry, and a deferred destruction queue flushed by
// CleanupSystem each tick. Every store lives in a shared region so consumer
// threads read the same words through a View.
type World struct {
	alloc        *Allocator
	registry     *Registry
	alive        *shm.Store
	highWater    *shm.Cell
	destroyQueue []EntityID
}

// RegionWords reports how many region words NewWorld needs.
func RegionWords(capacity int, fields []shm.Field) int {
	return 1 + capacity + shm.WordsFor(capacity, fields)
}

// NewWorld lays out the alive flags and every field in r.
func NewWorld(r *shm.Region, capacity int, fields []shm.Field) (*World, error) {
	hw, err := shm.NewCell(r)
	if err != nil {
		return nil, fmt.Errorf("high water cell: %w", err)
	}
	alive, err := shm.NewStore(r, capacity, shm.Field{Name: AliveStore, Kind: shm.KindU32, Elements: 1})
	if err != nil {
		return nil, fmt.Errorf("alive store: %w", err)
	}
	stores, err := shm.Layout(r, capacity, fields)
	if err != nil {
		return nil, fmt.Errorf("component layout: %w", err)
	}
	w := &World{
		alloc:        NewAllocator(capacity, hw),
		registry:     NewRegistry(),
		alive:        alive,
		highWater:    hw,
		destroyQueue: make([]EntityID, 0, 64),
	}
	if err := w.registry.Register(alive); err != nil {
		return nil, err
	}
	for _, s := range stores {
		if err := w.registry.Register(s); err != nil {
			return nil, err
		}
	}
	return w, nil
}

func (w *World) Allocator() *Allocator { return w.alloc }
func (w *World) Registry() *Registry   { return w.registry }

func (w *World) CreateEntity() (EntityID, error) {
	id, err := w.alloc.Allocate()
	if err != nil {
		return 0, err
	}
	w.alive.SetUint32(uint32(id), 0, 1)
	return id, nil
}

func (w *World) Alive(id EntityID) bool {
	return w.alloc.Allocated(id) && w.alive.Uint32(uint32(id), 0) == 1
}

// Count returns the number of allocated ids, including dead ones still
// waiting for reclamation.
func (w *World) Count() int { return w.alloc.Count() }

func (w *World) Store(name string) (*shm.Store, bool) {
	return w.registry.Store(name)
}

// MarkForDestruction queues an entity for end-of-tick cleanup.
func (w *World) MarkForDestruction(id EntityID) {
	w.destroyQueue = append(w.destroyQueue, id)
}

// FlushDestroyQueue clears the alive flag of every queued entity and hands its
// id to recycle. Component slots are left untouched: a lagging consumer may
// still be reading them. Called by CleanupSystem at the end of each tick.
func (w *World) FlushDestroyQueue(recycle func(EntityID)) int {
	n := 0
	for _, id := range w.destroyQueue {
		if !w.Alive(id) {
			continue
		}
		w.alive.SetUint32(uint32(id), 0, 0)
		recycle(id)
		n++
	}
	w.destroyQueue = w.destroyQueue[:0]
	return n
}

// DisposeEntity zeroes the entity's slots in every store and returns the id to
// the allocator. Only call it once no consumer can still read the entity.
func (w *World) DisposeEntity(id EntityID) error {
	if !w.alloc.Allocated(id) {
		return fmt.Errorf("dispose %d: %w", id, ErrNotAllocated)
	}
	w.registry.ResetAll(id)
	return w.alloc.Free(id)
}

// HighWater is one past the largest id ever allocated.
func (w *World) HighWater() uint32 { return w.highWater.Load() }

// View returns the read-only handle consumer threads use.
func (w *World) View() *View {
	return &View{registry: w.registry, alive: w.alive, highWater: w.highWater}
}
