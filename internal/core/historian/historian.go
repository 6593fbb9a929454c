// Package historian keeps a tick-ordered log of sealed values that is only
// ever appended to and trimmed from the front.
package historian

import "slices"

// Historian stores (tick, value) pairs in two parallel slices. Ticks passed to
// Add must strictly increase; this is not checked.
type Historian[T any] struct {
	history    []T
	timestamps []uint32
}

func New[T any]() *Historian[T] {
	return &Historian[T]{}
}

// Add appends value tagged with tick.
func (h *Historian[T]) Add(tick uint32, value T) {
	h.history = append(h.history, value)
	h.timestamps = append(h.timestamps, tick)
}

// Trim removes and returns, oldest first, every leading entry whose tick is at
// or before watermark. Later entries stay in place and in order.
func (h *Historian[T]) Trim(watermark uint32) []T {
	n := 0
	for n < len(h.timestamps) && h.timestamps[n] <= watermark {
		n++
	}
	if n == 0 {
		return nil
	}

	out := make([]T, n)
	copy(out, h.history[:n])

	rest := copy(h.history, h.history[n:])
	var zero T
	for i := rest; i < len(h.history); i++ {
		h.history[i] = zero
	}
	h.history = h.history[:rest]
	h.timestamps = h.timestamps[:copy(h.timestamps, h.timestamps[n:])]
	return out
}

// Get looks up the value sealed at exactly tick.
func (h *Historian[T]) Get(tick uint32) (T, bool) {
	i, ok := slices.BinarySearch(h.timestamps, tick)
	if !ok {
		var zero T
		return zero, false
	}
	return h.history[i], true
}

func (h *Historian[T]) Len() int { return len(h.timestamps) }

// Oldest returns the tick of the first entry still held.
func (h *Historian[T]) Oldest() (uint32, bool) {
	if len(h.timestamps) == 0 {
		return 0, false
	}
	return h.timestamps[0], true
}

// Timestamps returns a copy of the held ticks.
func (h *Historian[T]) Timestamps() []uint32 {
	return slices.Clone(h.timestamps)
}

// History returns a copy of the held values.
func (h *Historian[T]) History() []T {
	return slices.Clone(h.history)
}
