package shm

import (
	"fmt"
	"math"
	"sync/atomic"
)

// Kind is the element type of a component field. All kinds are 32 bits wide
// so every slot can be read and written atomically.
type Kind uint8

const (
	KindF32 Kind = iota
	KindU32
	KindI32
)

func (k Kind) String() string {
	switch k {
	case KindF32:
		return "f32"
	case KindU32:
		return "u32"
	case KindI32:
		return "i32"
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// ParseKind maps a schema type name to a Kind.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "f32", "float32":
		return KindF32, nil
	case "u32", "uint32":
		return KindU32, nil
	case "i32", "int32":
		return KindI32, nil
	}
	return 0, fmt.Errorf("shm: unknown field type %q", s)
}

// Store is a component property store: one fixed-capacity array per element,
// indexed by entity id. A vector-valued field with n elements is a tuple of n
// arrays, each capacity words long.
type Store struct {
	name     string
	kind     Kind
	capacity int
	elems    [][]uint32
}

func (s *Store) Name() string  { return s.name }
func (s *Store) Kind() Kind    { return s.kind }
func (s *Store) Capacity() int { return s.capacity }
func (s *Store) Elements() int { return len(s.elems) }

// Get loads the raw word for element elem of entity id.
func (s *Store) Get(id uint32, elem int) uint32 {
	return atomic.LoadUint32(&s.elems[elem][id])
}

func (s *Store) Set(id uint32, elem int, v uint32) {
	atomic.StoreUint32(&s.elems[elem][id], v)
}

func (s *Store) Float32(id uint32, elem int) float32 {
	return math.Float32frombits(s.Get(id, elem))
}

func (s *Store) SetFloat32(id uint32, elem int, v float32) {
	s.Set(id, elem, math.Float32bits(v))
}

func (s *Store) Uint32(id uint32, elem int) uint32 { return s.Get(id, elem) }

func (s *Store) SetUint32(id uint32, elem int, v uint32) { s.Set(id, elem, v) }

func (s *Store) Int32(id uint32, elem int) int32 { return int32(s.Get(id, elem)) }

func (s *Store) SetInt32(id uint32, elem int, v int32) { s.Set(id, elem, uint32(v)) }

// Zero clears every element of the slot for id.
func (s *Store) Zero(id uint32) {
	for _, arr := range s.elems {
		atomic.StoreUint32(&arr[id], 0)
	}
}
