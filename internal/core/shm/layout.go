package shm

import (
	"errors"
	"fmt"
)

// Field describes one component property. Elements is 1 for scalars.
type Field struct {
	Name     string
	Kind     Kind
	Elements int
}

var ErrDuplicateField = errors.New("shm: duplicate field name")

// Layout allocates a Store per field inside r, in declaration order, each sized
// for capacity entities. All stores share r so every thread observes the same
// words without copying.
func Layout(r *Region, capacity int, fields []Field) ([]*Store, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("shm: capacity must be positive, got %d", capacity)
	}
	seen := make(map[string]struct{}, len(fields))
	stores := make([]*Store, 0, len(fields))
	for _, f := range fields {
		if _, dup := seen[f.Name]; dup {
			return nil, fmt.Errorf("field %q: %w", f.Name, ErrDuplicateField)
		}
		seen[f.Name] = struct{}{}
		s, err := NewStore(r, capacity, f)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", f.Name, err)
		}
		stores = append(stores, s)
	}
	return stores, nil
}

// NewStore allocates a single store in r.
func NewStore(r *Region, capacity int, f Field) (*Store, error) {
	n := f.Elements
	if n <= 0 {
		n = 1
	}
	off, err := r.Alloc(capacity * n)
	if err != nil {
		return nil, err
	}
	s := &Store{
		name:     f.Name,
		kind:     f.Kind,
		capacity: capacity,
		elems:    make([][]uint32, n),
	}
	for i := 0; i < n; i++ {
		s.elems[i] = r.slice(off+i*capacity, capacity)
	}
	return s, nil
}

// WordsFor reports how many region words Layout needs for fields at capacity.
func WordsFor(capacity int, fields []Field) int {
	total := 0
	for _, f := range fields {
		n := f.Elements
		if n <= 0 {
			n = 1
		}
		total += capacity * n
	}
	return total
}
