// Package pool caches reusable containers to avoid allocation churn on the
// simulation thread.
package pool

// Pool is a free-list cache. It is not safe for concurrent use and performs
// no double-release detection: a caller must release an item at most once
// and must drop every reference to it afterwards.
type Pool[T any] struct {
	create  func() T
	dispose func(T)
	free    []T
}

// New returns an empty pool. dispose resets an item before it is cached, for
// example truncating a slice to zero length; it may be nil.
func New[T any](create func() T, dispose func(T)) *Pool[T] {
	return &Pool[T]{create: create, dispose: dispose}
}

// Obtain pops the most recently released item, or creates a new one.
func (p *Pool[T]) Obtain() T {
	if n := len(p.free); n > 0 {
		item := p.free[n-1]
		var zero T
		p.free[n-1] = zero
		p.free = p.free[:n-1]
		return item
	}
	return p.create()
}

// Release resets item and pushes it onto the free list.
func (p *Pool[T]) Release(item T) {
	if p.dispose != nil {
		p.dispose(item)
	}
	p.free = append(p.free, item)
}

// Free returns the number of cached items.
func (p *Pool[T]) Free() int { return len(p.free) }
