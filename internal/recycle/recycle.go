// Package recycle decides when a destroyed entity's id may be handed back to
// the allocator. Ids freed during a tick collect in an active bin; each tick
// the bin is sealed into a historian tagged with the tick, and sealed bins
// are disposed only once every consumer thread has acknowledged that tick.
//
// All methods are called from the simulation thread only.
package recycle

import (
	"go.uber.org/multierr"

	"github.com/thirdroom/simcore/internal/core/ecs"
	"github.com/thirdroom/simcore/internal/core/historian"
	"github.com/thirdroom/simcore/internal/core/pool"
)

// Bin is the list of ids freed during one tick.
type Bin []ecs.EntityID

// DisposeFunc hands an id back to the allocator.
type DisposeFunc func(ecs.EntityID) error

const binCapacity = 64

// Context is the reclamation state machine: one active bin, a pool of empty
// bins and a historian of sealed ones.
type Context struct {
	active    *Bin
	pool      *pool.Pool[*Bin]
	historian *historian.Historian[*Bin]
}

func NewContext() *Context {
	p := pool.New(
		func() *Bin {
			b := make(Bin, 0, binCapacity)
			return &b
		},
		func(b *Bin) { *b = (*b)[:0] },
	)
	return &Context{
		active:    p.Obtain(),
		pool:      p,
		historian: historian.New[*Bin](),
	}
}

// Recycle queues id for deferred release.
func (c *Context) Recycle(id ecs.EntityID) {
	*c.active = append(*c.active, id)
}

// Advance seals the active bin under tick and swaps in an empty one. The
// sealed bin is never cleared in place, so a bin's tag is the tick it was
// sealed at: ids recycled during tick T are tagged T+1.
func (c *Context) Advance(tick uint32) {
	next := c.pool.Obtain()
	c.historian.Add(tick, c.active)
	c.active = next
}

// Release disposes every id in every sealed bin tagged at or before
// watermark, then returns the bins to the pool. A failing dispose does not
// stop the remaining ids; all failures are combined, first one leading.
// It returns the number of ids passed to dispose.
func (c *Context) Release(watermark uint32, dispose DisposeFunc) (int, error) {
	var (
		err      error
		released int
	)
	for _, b := range c.historian.Trim(watermark) {
		for _, id := range *b {
			released++
			err = multierr.Append(err, dispose(id))
		}
		c.pool.Release(b)
	}
	return released, err
}

// Active returns the ids recycled since the last Advance. The slice is
// invalidated by the next Advance.
func (c *Context) Active() Bin { return *c.active }

func (c *Context) ActiveLen() int { return len(*c.active) }

// Pending returns the number of sealed bins awaiting release.
func (c *Context) Pending() int { return c.historian.Len() }

// PendingIDs returns the number of ids in sealed bins awaiting release.
func (c *Context) PendingIDs() int {
	n := 0
	for _, b := range c.historian.History() {
		n += len(*b)
	}
	return n
}

// OldestPending returns the tag of the oldest sealed bin still held.
func (c *Context) OldestPending() (uint32, bool) { return c.historian.Oldest() }

// PoolFree returns the number of empty bins cached for reuse.
func (c *Context) PoolFree() int { return c.pool.Free() }

// Sealed returns the ids sealed at exactly tick.
func (c *Context) Sealed(tick uint32) (Bin, bool) {
	b, ok := c.historian.Get(tick)
	if !ok {
		return nil, false
	}
	return *b, true
}
