package ecs

import (
	"errors"
	"fmt"

	"github.com/thirdroom/simcore/internal/core/shm"
)

// EntityID is an opaque index into every component store. It is unique among
// live entities only; the reclamation protocol decides when it may be reused.
type EntityID uint32

var (
	ErrCapacity     = errors.New("ecs: entity capacity exhausted")
	ErrNotAllocated = errors.New("ecs: entity not allocated")
)

// Allocator hands out entity ids with a FIFO free queue, so ids come back in
// the order they were freed. The high-water mark is published to shared
// memory so consumer threads know how far to scan.
type Allocator struct {
	capacity  uint32
	live      []bool
	freeQueue []EntityID
	head      int
	count     int
	highWater *shm.Cell
}

func NewAllocator(capacity int, highWater *shm.Cell) *Allocator {
	return &Allocator{
		capacity:  uint32(capacity),
		live:      make([]bool, 0, capacity),
		freeQueue: make([]EntityID, 0, 256),
		highWater: highWater,
	}
}

// Allocate returns a previously freed id if any, otherwise the next fresh one.
func (a *Allocator) Allocate() (EntityID, error) {
	if a.head < len(a.freeQueue) {
		id := a.freeQueue[a.head]
		a.head++
		if a.head == len(a.freeQueue) {
			a.freeQueue = a.freeQueue[:0]
			a.head = 0
		}
		a.live[id] = true
		a.count++
		return id, nil
	}
	next := uint32(len(a.live))
	if next >= a.capacity {
		return 0, fmt.Errorf("allocate beyond %d: %w", a.capacity, ErrCapacity)
	}
	a.live = append(a.live, true)
	a.count++
	a.highWater.Store(next + 1)
	return EntityID(next), nil
}

// Free returns id to the allocator.
func (a *Allocator) Free(id EntityID) error {
	if !a.Allocated(id) {
		return fmt.Errorf("free %d: %w", id, ErrNotAllocated)
	}
	a.live[id] = false
	a.count--
	a.freeQueue = append(a.freeQueue, id)
	return nil
}

func (a *Allocator) Allocated(id EntityID) bool {
	return int(id) < len(a.live) && a.live[id]
}

// Count returns the number of allocated ids.
func (a *Allocator) Count() int { return a.count }

func (a *Allocator) Capacity() int { return int(a.capacity) }
