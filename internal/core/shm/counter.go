package shm

import "sync/atomic"

// AtomicCounter is a 4-byte shared cell manipulated only by atomic
// read-modify-write. Every mutator returns the value held before the operation.
type AtomicCounter struct {
	p *uint32
}

// NewCounter allocates one word in r for a counter.
func NewCounter(r *Region) (*AtomicCounter, error) {
	off, err := r.Alloc(1)
	if err != nil {
		return nil, err
	}
	return &AtomicCounter{p: &r.words[off]}, nil
}

func (c *AtomicCounter) Increment() uint32 { return c.Add(1) }
func (c *AtomicCounter) Decrement() uint32 { return c.Subtract(1) }

func (c *AtomicCounter) Add(n uint32) uint32 {
	return atomic.AddUint32(c.p, n) - n
}

func (c *AtomicCounter) Subtract(n uint32) uint32 {
	return atomic.AddUint32(c.p, ^(n - 1)) + n
}

func (c *AtomicCounter) Load() uint32 { return atomic.LoadUint32(c.p) }

// Cell is a single latest-value-wins word. It keeps no history: a reader only
// ever sees the most recent store.
type Cell struct {
	p *uint32
}

func NewCell(r *Region) (*Cell, error) {
	off, err := r.Alloc(1)
	if err != nil {
		return nil, err
	}
	return &Cell{p: &r.words[off]}, nil
}

func (c *Cell) Load() uint32   { return atomic.LoadUint32(c.p) }
func (c *Cell) Store(v uint32) { atomic.StoreUint32(c.p, v) }

// StoreMax publishes v unless the cell already holds a larger value.
// It reports whether v was written.
func (c *Cell) StoreMax(v uint32) bool {
	for {
		cur := atomic.LoadUint32(c.p)
		if v <= cur {
			return false
		}
		if atomic.CompareAndSwapUint32(c.p, cur, v) {
			return true
		}
	}
}
