// Package shm models the memory shared between the simulation, render and
// main threads. A Region is a fixed block of 32-bit words allocated once per
// session; every field that crosses threads lives at a fixed offset inside it
// and is only touched through atomic loads and stores.
package shm

import (
	"errors"
	"fmt"
)

// WordSize is the width in bytes of every cell in a Region.
const WordSize = 4

var ErrRegionFull = errors.New("shm: region capacity exceeded")

// Region is a bump-allocated block of shared words. Allocation happens during
// session setup on one goroutine; after that the layout is fixed and the
// words are read and written concurrently through Cell, AtomicCounter and Store.
type Region struct {
	words []uint32
	next  int
}

func NewRegion(words int) *Region {
	return &Region{words: make([]uint32, words)}
}

// Alloc reserves n consecutive words and returns the offset of the first.
func (r *Region) Alloc(n int) (int, error) {
	if n < 0 {
		return 0, fmt.Errorf("shm: negative allocation %d", n)
	}
	if r.next+n > len(r.words) {
		return 0, fmt.Errorf("alloc %d words at %d of %d: %w", n, r.next, len(r.words), ErrRegionFull)
	}
	off := r.next
	r.next += n
	return off, nil
}

func (r *Region) Cap() int     { return len(r.words) }
func (r *Region) Used() int    { return r.next }
func (r *Region) ByteLen() int { return len(r.words) * WordSize }

func (r *Region) slice(off, n int) []uint32 {
	return r.words[off : off+n : off+n]
}
